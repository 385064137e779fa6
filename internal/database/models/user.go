package models

import "github.com/google/uuid"

type User struct {
	Base
	Username     string  `gorm:"uniqueIndex;not null" json:"username"`
	Email        *string `gorm:"uniqueIndex" json:"email,omitempty"`
	Phone        *string `gorm:"uniqueIndex" json:"phone,omitempty"`
	PasswordHash string  `gorm:"not null" json:"-"`

	// Users are created inactive and activated on first OTP verification.
	IsActive  bool `gorm:"default:false" json:"is_active"`
	IsPremium bool `gorm:"default:false" json:"is_premium"`

	SubscriptionID *uuid.UUID `gorm:"type:uuid" json:"subscription_id,omitempty"`

	// Relationships
	Memberships []CompanyMembership `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}
