package models

import (
	"time"
)

// UserRole defines allowed roles in the system
type UserRole string

const (
	RoleOwner    UserRole = "owner"
	RoleEmployee UserRole = "employee"
	RoleCustomer UserRole = "customer"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleOwner, RoleEmployee, RoleCustomer:
		return true
	}
	return false
}

type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Email        string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	FirstName    string     `json:"first_name" gorm:"size:50;not null"`
	LastName     string     `json:"last_name" gorm:"size:50;not null"`
	Phone        string     `json:"phone" gorm:"size:20;not null"`
	PasswordHash string     `json:"-" gorm:"not null"`
	Role         UserRole   `json:"role" gorm:"size:30;not null;index"`
	RestaurantID *uint      `json:"restaurant_id" gorm:"index"`
	IsActive     bool       `json:"is_active" gorm:"not null;default:false"`
	IsVerified   bool       `json:"is_verified" gorm:"not null;default:false"`
	IsStaff      bool       `json:"-" gorm:"not null;default:false"`
	IsSuperuser  bool       `json:"-" gorm:"not null;default:false"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"date_joined"`
	UpdatedAt    time.Time  `json:"-"`
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// OneTimePassword is the email verification code issued to an owner.
// A user holds at most one code; redeeming it stamps ConsumedAt.
type OneTimePassword struct {
	ID         uint       `json:"-" gorm:"primaryKey"`
	UserID     uint       `json:"-" gorm:"uniqueIndex;not null"`
	User       User       `json:"-" gorm:"foreignKey:UserID"`
	Code       string     `json:"-" gorm:"uniqueIndex;size:6;not null"`
	ExpiresAt  time.Time  `json:"-" gorm:"not null"`
	ConsumedAt *time.Time `json:"-"`
	CreatedAt  time.Time  `json:"-"`
}

// RevokedToken holds the jti of a logged-out JWT until it would have expired anyway.
type RevokedToken struct {
	JTI       string    `gorm:"primaryKey;size:64"`
	UserID    uint      `gorm:"index;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}
