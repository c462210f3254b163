// Package permission decides whether an actor may mutate a restaurant's catalog.
//
// There are exactly two tiers: the restaurant's owner may do anything, and
// an employee may do what their EmployeePermission row grants. Decisions are
// never cached; every call reads the current row.
package permission

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"restaurant-ordering-api/apperr"
	"restaurant-ordering-api/metrics"
	"restaurant-ordering-api/models"
)

// Action is a catalog mutation.
type Action string

const (
	Create Action = "create"
	Update Action = "update"
	Delete Action = "delete"
)

func (a Action) Valid() bool {
	return a == Create || a == Update || a == Delete
}

type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// CanPerform reports whether actorID may perform action on restaurant.
func (r *Resolver) CanPerform(ctx context.Context, actorID uint, restaurant *models.Restaurant, action Action) (bool, error) {
	if restaurant == nil {
		return false, apperr.NotFound("Restaurant not found.")
	}
	if !action.Valid() {
		return false, nil
	}
	if restaurant.OwnerID == actorID {
		return true, nil
	}

	var p models.EmployeePermission
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND restaurant_id = ?", actorID, restaurant.ID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("permission: load employee permission: %w", err)
	}
	return grants(p)[action], nil
}

// Authorize is CanPerform turned into an error: nil when allowed, Forbidden otherwise.
// resource names what is being mutated, e.g. "category".
func (r *Resolver) Authorize(ctx context.Context, actorID uint, restaurant *models.Restaurant, action Action, resource string) error {
	ok, err := r.CanPerform(ctx, actorID, restaurant, action)
	if err != nil {
		return err
	}
	if !ok {
		metrics.PermissionDenials.WithLabelValues(string(action)).Inc()
		return apperr.Forbidden("You do not have permission to %s %s.", action, resource)
	}
	return nil
}

func grants(p models.EmployeePermission) map[Action]bool {
	return map[Action]bool{
		Create: p.CanCreate,
		Update: p.CanUpdate,
		Delete: p.CanDelete,
	}
}
