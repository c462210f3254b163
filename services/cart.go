package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"restaurant-ordering-api/apperr"
	"restaurant-ordering-api/auth"
	"restaurant-ordering-api/models"
)

type CartAddInput struct {
	ItemID   uint `json:"item_id" validate:"required"`
	Quantity *int `json:"quantity"`
}

type CartUpdateInput struct {
	ItemID   uint `json:"item_id" validate:"required"`
	Quantity *int `json:"quantity" validate:"required"`
}

// CartLine is one rendered cart row.
type CartLine struct {
	ItemID    uint            `json:"item"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartView struct {
	Customer uint            `json:"customer"`
	Items    []CartLine      `json:"items"`
	Total    decimal.Decimal `json:"total"`
}

// CartService maintains the one cart each customer has. Concurrent writes
// to the same line are last-write-wins.
type CartService struct {
	db *gorm.DB
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

// Add puts quantity (default 1) of an item in the cart, adding to an existing line.
func (s *CartService) Add(ctx context.Context, actor auth.Actor, in CartAddInput) (*models.CartItem, error) {
	if err := requireCustomer(actor); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	qty := 1
	if in.Quantity != nil {
		qty = *in.Quantity
	}
	if qty < 1 {
		return nil, apperr.ValidationFields(map[string]string{"quantity": "Ensure this value is greater than or equal to 1."})
	}

	var line models.CartItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := findItem(tx, in.ItemID)
		if err != nil {
			return err
		}
		var cart models.Cart
		if err := tx.Where(models.Cart{CustomerID: actor.UserID}).FirstOrCreate(&cart).Error; err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if err := checkSameRestaurant(tx, cart.ID, item); err != nil {
			return err
		}

		err = tx.Where("cart_id = ? AND item_id = ?", cart.ID, item.ID).First(&line).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			line = models.CartItem{CartID: cart.ID, ItemID: item.ID, Quantity: qty}
			if err := tx.Create(&line).Error; err != nil {
				return fmt.Errorf("add cart line: %w", err)
			}
		case err != nil:
			return fmt.Errorf("load cart line: %w", err)
		default:
			if err := tx.Model(&line).Update("quantity", gorm.Expr("quantity + ?", qty)).Error; err != nil {
				return fmt.Errorf("increment cart line: %w", err)
			}
			if err := tx.First(&line, line.ID).Error; err != nil {
				return fmt.Errorf("reload cart line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// Update overwrites a line's quantity. A quantity of zero or less removes the
// line and reports removed=true.
func (s *CartService) Update(ctx context.Context, actor auth.Actor, in CartUpdateInput) (line *models.CartItem, removed bool, err error) {
	if err := requireCustomer(actor); err != nil {
		return nil, false, err
	}
	if err := validateInput(in); err != nil {
		return nil, false, err
	}
	db := s.db.WithContext(ctx)
	cart, err := s.cart(db, actor)
	if err != nil {
		return nil, false, err
	}
	line, err = findLine(db, cart.ID, in.ItemID)
	if err != nil {
		return nil, false, err
	}
	if *in.Quantity <= 0 {
		if err := db.Delete(line).Error; err != nil {
			return nil, false, fmt.Errorf("remove cart line: %w", err)
		}
		return nil, true, nil
	}
	if err := db.Model(line).Update("quantity", *in.Quantity).Error; err != nil {
		return nil, false, fmt.Errorf("update cart line: %w", err)
	}
	line.Quantity = *in.Quantity
	return line, false, nil
}

// Remove deletes a line. A line that is not in the cart is NotFound.
func (s *CartService) Remove(ctx context.Context, actor auth.Actor, itemID uint) error {
	if err := requireCustomer(actor); err != nil {
		return err
	}
	if itemID == 0 {
		return apperr.ValidationFields(map[string]string{"item_id": "This field is required."})
	}
	db := s.db.WithContext(ctx)
	cart, err := s.cart(db, actor)
	if err != nil {
		return err
	}
	line, err := findLine(db, cart.ID, itemID)
	if err != nil {
		return err
	}
	if err := db.Delete(line).Error; err != nil {
		return fmt.Errorf("remove cart line: %w", err)
	}
	return nil
}

// View renders the cart with current prices.
func (s *CartService) View(ctx context.Context, actor auth.Actor) (*CartView, error) {
	if err := requireCustomer(actor); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	cart, err := s.cart(db, actor)
	if err != nil {
		return nil, err
	}
	var lines []models.CartItem
	if err := db.Preload("Item").Where("cart_id = ?", cart.ID).Order("id").Find(&lines).Error; err != nil {
		return nil, fmt.Errorf("load cart lines: %w", err)
	}

	view := &CartView{Customer: actor.UserID, Items: make([]CartLine, 0, len(lines)), Total: decimal.Zero}
	for _, l := range lines {
		if l.Item == nil {
			continue
		}
		total := l.Item.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		view.Items = append(view.Items, CartLine{
			ItemID:    l.ItemID,
			Name:      l.Item.Name,
			Price:     l.Item.Price,
			Quantity:  l.Quantity,
			LineTotal: total,
		})
		view.Total = view.Total.Add(total)
	}
	return view, nil
}

func (s *CartService) cart(db *gorm.DB, actor auth.Actor) (*models.Cart, error) {
	var cart models.Cart
	err := db.Where("customer_id = ?", actor.UserID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Cart not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return &cart, nil
}

func findLine(db *gorm.DB, cartID, itemID uint) (*models.CartItem, error) {
	var line models.CartItem
	err := db.Where("cart_id = ? AND item_id = ?", cartID, itemID).First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Item not found in cart.")
	}
	if err != nil {
		return nil, fmt.Errorf("load cart line: %w", err)
	}
	return &line, nil
}

// checkSameRestaurant rejects item when the cart already holds items of another restaurant.
func checkSameRestaurant(tx *gorm.DB, cartID uint, item *models.Item) error {
	var other int64
	err := tx.Model(&models.CartItem{}).
		Joins("JOIN items ON items.id = cart_items.item_id").
		Joins("JOIN categories ON categories.id = items.category_id").
		Where("cart_items.cart_id = ? AND categories.restaurant_id <> ?", cartID, item.Category.RestaurantID).
		Count(&other).Error
	if err != nil {
		return fmt.Errorf("check cart restaurant: %w", err)
	}
	if other > 0 {
		return apperr.Conflict("Your cart holds items from another restaurant. Place or clear that order first.")
	}
	return nil
}

func requireCustomer(actor auth.Actor) error {
	if !actor.Is(models.RoleCustomer) {
		return apperr.Forbidden("Only customers can use a cart.")
	}
	return nil
}
