package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"restaurant-ordering-api/apperr"
	"restaurant-ordering-api/auth"
	"restaurant-ordering-api/logger"
	"restaurant-ordering-api/models"
)

type RestaurantInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Location string `json:"location" validate:"required,max=255"`
}

// PermissionInput sets all three capabilities of one employee at once.
type PermissionInput struct {
	EmployeeEmail string `json:"employee_email" validate:"required,email"`
	RestaurantID  uint   `json:"restaurant_id" validate:"required"`
	CanCreate     bool   `json:"can_create"`
	CanUpdate     bool   `json:"can_update"`
	CanDelete     bool   `json:"can_delete"`
}

// RestaurantEmployees is one owned restaurant with its employees.
type RestaurantEmployees struct {
	ID        uint          `json:"id"`
	Name      string        `json:"name"`
	Location  string        `json:"location"`
	Employees []models.User `json:"employees"`
}

type RestaurantService struct {
	db *gorm.DB
}

func NewRestaurantService(db *gorm.DB) *RestaurantService {
	return &RestaurantService{db: db}
}

// ListForActor returns the restaurants an owner owns, or the one an employee works at.
func (s *RestaurantService) ListForActor(ctx context.Context, actor auth.Actor) ([]models.Restaurant, error) {
	db := s.db.WithContext(ctx)
	restaurants := []models.Restaurant{}
	switch actor.Role {
	case models.RoleOwner:
		if err := db.Where("owner_id = ?", actor.UserID).Order("id").Find(&restaurants).Error; err != nil {
			return nil, fmt.Errorf("list restaurants: %w", err)
		}
	case models.RoleEmployee:
		sub := db.Model(&models.User{}).Select("restaurant_id").Where("id = ?", actor.UserID)
		if err := db.Where("id = (?)", sub).Find(&restaurants).Error; err != nil {
			return nil, fmt.Errorf("list restaurants: %w", err)
		}
	}
	return restaurants, nil
}

// ListAll is the public directory, optionally filtered by a name or location fragment.
func (s *RestaurantService) ListAll(ctx context.Context, search string) ([]models.Restaurant, error) {
	q := s.db.WithContext(ctx).Order("id")
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("name LIKE ? OR location LIKE ?", like, like)
	}
	restaurants := []models.Restaurant{}
	if err := q.Find(&restaurants).Error; err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	return restaurants, nil
}

func (s *RestaurantService) Get(ctx context.Context, id uint) (*models.Restaurant, error) {
	return findRestaurant(s.db.WithContext(ctx), id)
}

func (s *RestaurantService) Create(ctx context.Context, actor auth.Actor, in RestaurantInput) (*models.Restaurant, error) {
	if !actor.Is(models.RoleOwner) {
		return nil, apperr.Forbidden("Only owners can create restaurants.")
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	r := &models.Restaurant{OwnerID: actor.UserID, Name: in.Name, Location: in.Location}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, fmt.Errorf("create restaurant: %w", err)
	}
	logger.FromContext(ctx).Info("restaurant created", "restaurant_id", r.ID, "owner_id", actor.UserID)
	return r, nil
}

// Delete removes a restaurant and everything reachable from it. Employees keep
// their accounts but lose the link and must be verified again elsewhere.
func (s *RestaurantService) Delete(ctx context.Context, actor auth.Actor, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.owned(tx, actor, id)
		if err != nil {
			return err
		}

		categories := tx.Model(&models.Category{}).Select("id").Where("restaurant_id = ?", r.ID)
		items := tx.Model(&models.Item{}).Select("id").Where("category_id IN (?)", categories)
		orders := tx.Model(&models.Order{}).Select("id").Where("restaurant_id = ?", r.ID)

		steps := []struct {
			what string
			run  func() error
		}{
			{"cart items", func() error { return tx.Where("item_id IN (?)", items).Delete(&models.CartItem{}).Error }},
			{"items", func() error { return tx.Where("category_id IN (?)", categories).Delete(&models.Item{}).Error }},
			{"order items", func() error { return tx.Where("order_id IN (?)", orders).Delete(&models.OrderItem{}).Error }},
			{"orders", func() error { return tx.Where("restaurant_id = ?", r.ID).Delete(&models.Order{}).Error }},
			{"categories", func() error { return tx.Where("restaurant_id = ?", r.ID).Delete(&models.Category{}).Error }},
			{"permissions", func() error {
				return tx.Where("restaurant_id = ?", r.ID).Delete(&models.EmployeePermission{}).Error
			}},
			{"employees", func() error {
				return tx.Model(&models.User{}).
					Where("restaurant_id = ? AND role = ?", r.ID, models.RoleEmployee).
					Updates(map[string]any{"restaurant_id": nil, "is_active": false, "is_verified": false}).Error
			}},
			{"restaurant", func() error { return tx.Delete(r).Error }},
		}
		for _, step := range steps {
			if err := step.run(); err != nil {
				return fmt.Errorf("delete restaurant %s: %w", step.what, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info("restaurant deleted", "restaurant_id", id, "owner_id", actor.UserID)
	return nil
}

// Employees lists the employees of a restaurant the actor owns.
func (s *RestaurantService) Employees(ctx context.Context, actor auth.Actor, restaurantID uint) ([]models.User, error) {
	if !actor.Is(models.RoleOwner) {
		return nil, apperr.Forbidden("Only owners can view their restaurant employees.")
	}
	db := s.db.WithContext(ctx)
	r, err := s.owned(db, actor, restaurantID)
	if err != nil {
		return nil, err
	}
	return employeesOf(db, r.ID)
}

// EmployeesByRestaurant groups employees under each restaurant the actor owns.
func (s *RestaurantService) EmployeesByRestaurant(ctx context.Context, actor auth.Actor) ([]RestaurantEmployees, error) {
	if !actor.Is(models.RoleOwner) {
		return nil, apperr.Forbidden("Only owners can view their restaurant employees.")
	}
	restaurants, err := s.ListForActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	out := make([]RestaurantEmployees, 0, len(restaurants))
	for _, r := range restaurants {
		employees, err := employeesOf(db, r.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, RestaurantEmployees{ID: r.ID, Name: r.Name, Location: r.Location, Employees: employees})
	}
	return out, nil
}

// SetPermission creates or overwrites the permission row of an employee.
func (s *RestaurantService) SetPermission(ctx context.Context, actor auth.Actor, in PermissionInput) (*models.EmployeePermission, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	var perm models.EmployeePermission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := findRestaurant(tx, in.RestaurantID)
		if err != nil {
			return err
		}
		if r.OwnerID != actor.UserID {
			return apperr.Forbidden("You can only set permissions for your own restaurant's employees.")
		}
		var employee models.User
		err = tx.Where("email = ? AND restaurant_id = ? AND role = ?", normalizeEmail(in.EmployeeEmail), r.ID, models.RoleEmployee).
			First(&employee).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Employee not found.")
		}
		if err != nil {
			return fmt.Errorf("load employee: %w", err)
		}

		err = tx.Where(models.EmployeePermission{EmployeeID: employee.ID}).
			Assign(models.EmployeePermission{RestaurantID: r.ID}).
			FirstOrCreate(&perm).Error
		if err != nil {
			return fmt.Errorf("load permission: %w", err)
		}
		perm.CanCreate = in.CanCreate
		perm.CanUpdate = in.CanUpdate
		perm.CanDelete = in.CanDelete
		// Select so that false values are written too.
		return tx.Model(&perm).Select("restaurant_id", "can_create", "can_update", "can_delete").Updates(&perm).Error
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("permission changed",
		"employee_id", perm.EmployeeID, "restaurant_id", perm.RestaurantID,
		"can_create", perm.CanCreate, "can_update", perm.CanUpdate, "can_delete", perm.CanDelete)
	return &perm, nil
}

func (s *RestaurantService) owned(db *gorm.DB, actor auth.Actor, id uint) (*models.Restaurant, error) {
	var r models.Restaurant
	err := db.Where("id = ? AND owner_id = ?", id, actor.UserID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Restaurant not found or not owned by you.")
	}
	if err != nil {
		return nil, fmt.Errorf("load restaurant: %w", err)
	}
	return &r, nil
}

func employeesOf(db *gorm.DB, restaurantID uint) ([]models.User, error) {
	employees := []models.User{}
	err := db.Where("restaurant_id = ? AND role = ?", restaurantID, models.RoleEmployee).Order("id").Find(&employees).Error
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return employees, nil
}
