package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is free-form on purpose; checkout only ever writes StatusPending.
type OrderStatus string

const StatusPending OrderStatus = "Pending"

type Order struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	CustomerID   uint            `json:"customer" gorm:"not null;index"`
	RestaurantID uint            `json:"restaurant" gorm:"not null;index"`
	TotalPrice   decimal.Decimal `json:"total_price" gorm:"type:decimal(10,2);not null"`
	Status       OrderStatus     `json:"status" gorm:"size:50;not null;default:'Pending'"`
	Items        []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time       `json:"created_at"`
}

// OrderItem is a snapshot of a cart line; Price and Name never follow later catalog edits.
type OrderItem struct {
	ID       uint            `json:"-" gorm:"primaryKey"`
	OrderID  uint            `json:"-" gorm:"not null;index"`
	ItemID   uint            `json:"item" gorm:"not null;index"`
	Name     string          `json:"name" gorm:"size:255"`
	Quantity int             `json:"quantity" gorm:"not null"`
	Price    decimal.Decimal `json:"price" gorm:"type:decimal(8,2);not null"`
}

// LineTotal is Quantity × Price.
func (oi OrderItem) LineTotal() decimal.Decimal {
	return oi.Price.Mul(decimal.NewFromInt(int64(oi.Quantity)))
}
