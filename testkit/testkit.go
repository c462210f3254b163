// Package testkit holds fixtures shared by package tests: a throwaway
// database per test and builders for the catalog and its users.
package testkit

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"restaurant-ordering-api/config"
	"restaurant-ordering-api/models"
)

// Password is the plain-text password of every user built by NewUser.
const Password = "password123"

var seq atomic.Int64

// OpenDB returns a migrated sqlite database that lives in t.TempDir().
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewUser creates an active, verified user with the given role.
func NewUser(t *testing.T, db *gorm.DB, role models.UserRole, restaurantID *uint) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)
	n := seq.Add(1)
	u := &models.User{
		Email:        fmt.Sprintf("%s%d@example.com", role, n),
		FirstName:    string(role),
		LastName:     fmt.Sprint(n),
		Phone:        "555-0100",
		PasswordHash: string(hash),
		Role:         role,
		RestaurantID: restaurantID,
		IsActive:     true,
		IsVerified:   true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func NewRestaurant(t *testing.T, db *gorm.DB, owner *models.User) *models.Restaurant {
	t.Helper()
	r := &models.Restaurant{OwnerID: owner.ID, Name: fmt.Sprintf("Bistro %d", seq.Add(1)), Location: "Main St"}
	require.NoError(t, db.Create(r).Error)
	return r
}

func NewCategory(t *testing.T, db *gorm.DB, r *models.Restaurant, name string) *models.Category {
	t.Helper()
	c := &models.Category{RestaurantID: r.ID, Name: name, Slug: fmt.Sprintf("%s-%d", name, seq.Add(1))}
	require.NoError(t, db.Create(c).Error)
	return c
}

// NewItem creates an item priced at price, e.g. "9.50".
func NewItem(t *testing.T, db *gorm.DB, c *models.Category, name, price string) *models.Item {
	t.Helper()
	it := &models.Item{CategoryID: c.ID, Name: name, Details: name, Price: decimal.RequireFromString(price)}
	require.NoError(t, db.Create(it).Error)
	return it
}

// Grant stores an EmployeePermission row.
func Grant(t *testing.T, db *gorm.DB, employee *models.User, r *models.Restaurant, create, update, del bool) {
	t.Helper()
	p := &models.EmployeePermission{
		EmployeeID:   employee.ID,
		RestaurantID: r.ID,
		CanCreate:    create,
		CanUpdate:    update,
		CanDelete:    del,
	}
	require.NoError(t, db.Create(p).Error)
}

// PNG is the smallest byte sequence detected as image/png.
var PNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
