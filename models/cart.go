package models

import "time"

// Cart is the per-customer staging area; exactly one per customer.
type Cart struct {
	ID         uint       `json:"-" gorm:"primaryKey"`
	CustomerID uint       `json:"customer" gorm:"uniqueIndex;not null"`
	Items      []CartItem `json:"items" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time  `json:"created_at"`
}

type CartItem struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	CartID    uint      `json:"-" gorm:"uniqueIndex:idx_cart_item;not null"`
	ItemID    uint      `json:"item" gorm:"uniqueIndex:idx_cart_item;not null"`
	Item      *Item     `json:"-" gorm:"foreignKey:ItemID"`
	Quantity  int       `json:"quantity" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"-"`
}
