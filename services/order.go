package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"restaurant-ordering-api/apperr"
	"restaurant-ordering-api/auth"
	"restaurant-ordering-api/logger"
	"restaurant-ordering-api/metrics"
	"restaurant-ordering-api/models"
)

type OrderService struct {
	db *gorm.DB
}

func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{db: db}
}

// Confirm turns the actor's cart into a Pending order. Totals and unit prices
// are captured from the live catalog, and the cart is emptied, in a single
// transaction; on any failure nothing is written.
func (s *OrderService) Confirm(ctx context.Context, actor auth.Actor) (*models.Order, error) {
	if err := requireCustomer(actor); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		err := tx.Where("customer_id = ?", actor.UserID).First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Cart not found.")
		}
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}

		var lines []models.CartItem
		if err := tx.Preload("Item.Category").Where("cart_id = ?", cart.ID).Order("id").Find(&lines).Error; err != nil {
			return fmt.Errorf("load cart lines: %w", err)
		}
		if len(lines) == 0 {
			return apperr.Validation("Cart is empty.")
		}

		order, err = buildOrder(actor.UserID, lines)
		if err != nil {
			return err
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.CheckoutFailures.WithLabelValues(string(apperr.KindOf(err))).Inc()
		return nil, err
	}

	metrics.OrdersPlaced.Inc()
	metrics.OrderValue.Observe(order.TotalPrice.InexactFloat64())
	logger.FromContext(ctx).Info("order placed",
		"order_id", order.ID, "customer_id", actor.UserID,
		"restaurant_id", order.RestaurantID, "total", order.TotalPrice.StringFixed(2))
	return order, nil
}

// buildOrder snapshots lines into an unsaved order. The restaurant comes from
// the first line; every other line must belong to the same restaurant.
func buildOrder(customerID uint, lines []models.CartItem) (*models.Order, error) {
	first := lines[0]
	if first.Item == nil || first.Item.Category == nil {
		return nil, fmt.Errorf("cart line %d: item %d has no category", first.ID, first.ItemID)
	}
	order := &models.Order{
		CustomerID:   customerID,
		RestaurantID: first.Item.Category.RestaurantID,
		Status:       models.StatusPending,
		TotalPrice:   decimal.Zero,
		Items:        make([]models.OrderItem, 0, len(lines)),
	}
	for _, l := range lines {
		if l.Item == nil || l.Item.Category == nil {
			return nil, fmt.Errorf("cart line %d: item %d has no category", l.ID, l.ItemID)
		}
		if l.Item.Category.RestaurantID != order.RestaurantID {
			return nil, apperr.Conflict("Cart holds items from more than one restaurant.")
		}
		oi := models.OrderItem{
			ItemID:   l.ItemID,
			Name:     l.Item.Name,
			Quantity: l.Quantity,
			Price:    l.Item.Price,
		}
		order.Items = append(order.Items, oi)
		order.TotalPrice = order.TotalPrice.Add(oi.LineTotal())
	}
	return order, nil
}

// ListForCustomer returns the actor's orders, newest first.
func (s *OrderService) ListForCustomer(ctx context.Context, actor auth.Actor) ([]models.Order, error) {
	if err := requireCustomer(actor); err != nil {
		return nil, err
	}
	orders := []models.Order{}
	err := s.db.WithContext(ctx).Preload("Items").
		Where("customer_id = ?", actor.UserID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) GetForCustomer(ctx context.Context, actor auth.Actor, id uint) (*models.Order, error) {
	if err := requireCustomer(actor); err != nil {
		return nil, err
	}
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items").First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Order not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order.CustomerID != actor.UserID {
		return nil, apperr.Forbidden("This order does not belong to you.")
	}
	return &order, nil
}

// ListForRestaurant returns a restaurant's orders to its owner or employees.
func (s *OrderService) ListForRestaurant(ctx context.Context, actor auth.Actor, restaurantID uint) ([]models.Order, error) {
	db := s.db.WithContext(ctx)
	r, err := findRestaurant(db, restaurantID)
	if err != nil {
		return nil, err
	}
	if r.OwnerID != actor.UserID {
		var staff int64
		err := db.Model(&models.User{}).
			Where("id = ? AND role = ? AND restaurant_id = ?", actor.UserID, models.RoleEmployee, r.ID).
			Count(&staff).Error
		if err != nil {
			return nil, fmt.Errorf("check employee: %w", err)
		}
		if staff == 0 {
			return nil, apperr.Forbidden("You do not work at this restaurant.")
		}
	}
	orders := []models.Order{}
	err = db.Preload("Items").Where("restaurant_id = ?", r.ID).Order("created_at DESC, id DESC").Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
