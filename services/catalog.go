package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"restaurant-ordering-api/apperr"
	"restaurant-ordering-api/auth"
	"restaurant-ordering-api/logger"
	"restaurant-ordering-api/models"
	"restaurant-ordering-api/permission"
	"restaurant-ordering-api/storage"
)

// maxItemPrice is the largest value a decimal(8,2) column holds.
var maxItemPrice = decimal.RequireFromString("999999.99")

// sniffLen is how much of an upload is read to detect its real type.
const sniffLen = 512

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

type CategoryInput struct {
	Name         string `json:"name" validate:"required,max=50"`
	Slug         string `json:"slug" validate:"max=50"`
	RestaurantID uint   `json:"restaurant" validate:"required"`
}

type CategoryUpdateInput struct {
	CategoryID uint   `json:"category_id" validate:"required"`
	Name       string `json:"name" validate:"required,max=50"`
	Slug       string `json:"slug" validate:"max=50"`
}

type ItemInput struct {
	CategoryID uint             `json:"category" validate:"required"`
	Name       string           `json:"name" validate:"required,max=255"`
	Details    string           `json:"details" validate:"required,max=500"`
	Price      *decimal.Decimal `json:"price" validate:"required"`
}

// ItemUpdateInput changes only the fields that are present.
type ItemUpdateInput struct {
	ItemID     uint             `json:"item_id" validate:"required"`
	CategoryID *uint            `json:"category"`
	Name       *string          `json:"name" validate:"omitempty,max=255"`
	Details    *string          `json:"details" validate:"omitempty,max=500"`
	Price      *decimal.Decimal `json:"price"`
}

// Image is an uploaded picture for an item.
type Image struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// CatalogService manages categories and items. Every mutation goes through
// the permission resolver for the restaurant that owns the target.
type CatalogService struct {
	db       *gorm.DB
	resolver *permission.Resolver
	disk     storage.Disk
}

func NewCatalogService(db *gorm.DB, resolver *permission.Resolver, disk storage.Disk) *CatalogService {
	return &CatalogService{db: db, resolver: resolver, disk: disk}
}

func (s *CatalogService) CreateCategory(ctx context.Context, actor auth.Actor, in CategoryInput) (*models.Category, error) {
	db := s.db.WithContext(ctx)
	r, err := findRestaurant(db, in.RestaurantID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Authorize(ctx, actor.UserID, r, permission.Create, "categories"); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	c := &models.Category{Name: in.Name, Slug: categorySlug(in.Slug, in.Name), RestaurantID: r.ID}
	if err := db.Create(c).Error; err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	logger.FromContext(ctx).Info("category created", "category_id", c.ID, "restaurant_id", r.ID)
	return c, nil
}

// UpdateCategory renames a category. The owning restaurant never changes.
func (s *CatalogService) UpdateCategory(ctx context.Context, actor auth.Actor, in CategoryUpdateInput) (*models.Category, error) {
	db := s.db.WithContext(ctx)
	c, err := findCategory(db, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Authorize(ctx, actor.UserID, c.Restaurant, permission.Update, "this category"); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	c.Name = in.Name
	c.Slug = categorySlug(in.Slug, in.Name)
	if err := db.Model(c).Select("name", "slug").Updates(c).Error; err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

// DeleteCategory removes a category with its items and any cart lines holding them.
func (s *CatalogService) DeleteCategory(ctx context.Context, actor auth.Actor, categoryID uint) error {
	db := s.db.WithContext(ctx)
	c, err := findCategory(db, categoryID)
	if err != nil {
		return err
	}
	if err := s.resolver.Authorize(ctx, actor.UserID, c.Restaurant, permission.Delete, "this category"); err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		items := tx.Model(&models.Item{}).Select("id").Where("category_id = ?", c.ID)
		if err := tx.Where("item_id IN (?)", items).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("delete category cart items: %w", err)
		}
		if err := tx.Where("category_id = ?", c.ID).Delete(&models.Item{}).Error; err != nil {
			return fmt.Errorf("delete category items: %w", err)
		}
		if err := tx.Delete(c).Error; err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
}

func (s *CatalogService) CreateItem(ctx context.Context, actor auth.Actor, in ItemInput) (*models.Item, error) {
	db := s.db.WithContext(ctx)
	c, err := findCategory(db, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Authorize(ctx, actor.UserID, c.Restaurant, permission.Create, "items"); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := checkPrice(*in.Price); err != nil {
		return nil, err
	}
	item := &models.Item{CategoryID: c.ID, Name: in.Name, Details: in.Details, Price: *in.Price}
	if err := db.Create(item).Error; err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	logger.FromContext(ctx).Info("item created", "item_id", item.ID, "restaurant_id", c.RestaurantID)
	return item, nil
}

// UpdateItem applies a partial update. An item may only move between
// categories of the same restaurant.
func (s *CatalogService) UpdateItem(ctx context.Context, actor auth.Actor, in ItemUpdateInput) (*models.Item, error) {
	db := s.db.WithContext(ctx)
	item, err := findItem(db, in.ItemID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Authorize(ctx, actor.UserID, item.Category.Restaurant, permission.Update, "this item"); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var fields []string
	if in.CategoryID != nil && *in.CategoryID != item.CategoryID {
		target, err := findCategory(db, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		if target.RestaurantID != item.Category.RestaurantID {
			return nil, apperr.ValidationFields(map[string]string{"category": "Category belongs to another restaurant."})
		}
		item.CategoryID = target.ID
		fields = append(fields, "category_id")
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, apperr.ValidationFields(map[string]string{"name": "This field may not be blank."})
		}
		item.Name = *in.Name
		fields = append(fields, "name")
	}
	if in.Details != nil {
		item.Details = *in.Details
		fields = append(fields, "details")
	}
	if in.Price != nil {
		if err := checkPrice(*in.Price); err != nil {
			return nil, err
		}
		item.Price = *in.Price
		fields = append(fields, "price")
	}
	if len(fields) == 0 {
		return item, nil
	}
	if err := db.Model(item).Select(fields).Updates(item).Error; err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return item, nil
}

// DeleteItem removes an item and the cart lines holding it. Past orders keep
// their snapshot lines.
func (s *CatalogService) DeleteItem(ctx context.Context, actor auth.Actor, itemID uint) error {
	db := s.db.WithContext(ctx)
	item, err := findItem(db, itemID)
	if err != nil {
		return err
	}
	if err := s.resolver.Authorize(ctx, actor.UserID, item.Category.Restaurant, permission.Delete, "this item"); err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", item.ID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("delete item cart lines: %w", err)
		}
		if err := tx.Delete(item).Error; err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		return nil
	})
}

// SetItemImage stores img on the disk and points the item at it.
func (s *CatalogService) SetItemImage(ctx context.Context, actor auth.Actor, itemID uint, img Image) (*models.Item, error) {
	db := s.db.WithContext(ctx)
	item, err := findItem(db, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Authorize(ctx, actor.UserID, item.Category.Restaurant, permission.Update, "this item"); err != nil {
		return nil, err
	}
	ext := strings.ToLower(path.Ext(img.Filename))
	contentType, ok := imageTypes[ext]
	if !ok {
		return nil, apperr.ValidationFields(map[string]string{"image": "Upload a valid image (jpg, png, gif or webp)."})
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(img.Body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read item image: %w", err)
	}
	head = head[:n]
	if !mimetype.Detect(head).Is(contentType) {
		return nil, apperr.ValidationFields(map[string]string{"image": "The file content is not a valid image."})
	}

	key := fmt.Sprintf("items/%d/%s%s", item.ID, uuid.NewString(), ext)
	body := io.MultiReader(bytes.NewReader(head), img.Body)
	if err := s.disk.Put(ctx, key, body, contentType); err != nil {
		return nil, fmt.Errorf("store item image: %w", err)
	}
	url := s.disk.URL(key)
	if err := db.Model(item).Update("image_url", url).Error; err != nil {
		if derr := s.disk.Delete(ctx, key); derr != nil {
			logger.FromContext(ctx).Warn("orphaned item image", "key", key, "error", derr)
		}
		return nil, fmt.Errorf("update item image: %w", err)
	}
	item.ImageURL = &url
	return item, nil
}

// ListCategories is the public menu index of a restaurant.
func (s *CatalogService) ListCategories(ctx context.Context, restaurantID uint) ([]models.Category, error) {
	db := s.db.WithContext(ctx)
	if _, err := findRestaurant(db, restaurantID); err != nil {
		return nil, err
	}
	categories := []models.Category{}
	if err := db.Where("restaurant_id = ?", restaurantID).Order("id").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// ListItems is the public item listing of a category.
func (s *CatalogService) ListItems(ctx context.Context, categoryID uint) ([]models.Item, error) {
	db := s.db.WithContext(ctx)
	if _, err := findCategory(db, categoryID); err != nil {
		return nil, err
	}
	items := []models.Item{}
	if err := db.Where("category_id = ?", categoryID).Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func categorySlug(slug, name string) string {
	if s := slugify(slug); s != "" {
		return s
	}
	return slugify(name)
}

func checkPrice(p decimal.Decimal) error {
	switch {
	case p.IsNegative():
		return apperr.ValidationFields(map[string]string{"price": "Ensure this value is greater than or equal to 0."})
	case !p.Equal(p.Truncate(2)):
		return apperr.ValidationFields(map[string]string{"price": "Ensure that there are no more than 2 decimal places."})
	case p.GreaterThan(maxItemPrice):
		return apperr.ValidationFields(map[string]string{"price": "Ensure that there are no more than 8 digits in total."})
	}
	return nil
}

func findCategory(db *gorm.DB, id uint) (*models.Category, error) {
	var c models.Category
	err := db.Preload("Restaurant").First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Category not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("load category: %w", err)
	}
	return &c, nil
}

func findItem(db *gorm.DB, id uint) (*models.Item, error) {
	var item models.Item
	err := db.Preload("Category.Restaurant").First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Item not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}
	return &item, nil
}
