package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Restaurant struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	OwnerID   uint      `json:"owner" gorm:"not null;index"`
	Owner     *User     `json:"-" gorm:"foreignKey:OwnerID"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	Location  string    `json:"location" gorm:"size:255;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

type Category struct {
	ID           uint        `json:"id" gorm:"primaryKey"`
	Name         string      `json:"name" gorm:"size:50;not null"`
	Slug         string      `json:"slug" gorm:"size:50;not null;index"`
	RestaurantID uint        `json:"restaurant" gorm:"not null;index"`
	Restaurant   *Restaurant `json:"-" gorm:"foreignKey:RestaurantID"`
	CreatedAt    time.Time   `json:"-"`
	UpdatedAt    time.Time   `json:"-"`
}

type Item struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	CategoryID uint            `json:"category" gorm:"not null;index"`
	Category   *Category       `json:"-" gorm:"foreignKey:CategoryID"`
	Name       string          `json:"name" gorm:"size:255;not null"`
	Details    string          `json:"details" gorm:"size:500"`
	ImageURL   *string         `json:"image_url" gorm:"size:255"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(8,2);not null"`
	CreatedAt  time.Time       `json:"-"`
	UpdatedAt  time.Time       `json:"-"`
}

// EmployeePermission grants an employee capabilities over the catalog of one restaurant.
// At most one row exists per employee.
type EmployeePermission struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	EmployeeID   uint      `json:"employee" gorm:"uniqueIndex;not null"`
	Employee     *User     `json:"-" gorm:"foreignKey:EmployeeID"`
	RestaurantID uint      `json:"restaurant" gorm:"not null;index"`
	CanCreate    bool      `json:"can_create" gorm:"not null;default:false"`
	CanUpdate    bool      `json:"can_update" gorm:"not null;default:false"`
	CanDelete    bool      `json:"can_delete" gorm:"not null;default:false"`
	UpdatedAt    time.Time `json:"updated_at"`
}
