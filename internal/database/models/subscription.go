package models

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionPending SubscriptionStatus = "pending"
	SubscriptionActive  SubscriptionStatus = "active"
)

type Subscription struct {
	Base
	UserID   uuid.UUID          `gorm:"type:uuid;index;not null" json:"user_id"`
	PlanType string             `gorm:"not null" json:"plan_type"` // 6month, yearly, unlimited
	Price    int64              `json:"price,omitempty"`
	Status   SubscriptionStatus `gorm:"not null;default:'pending';index" json:"status"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	PaymentID  string `gorm:"index" json:"payment_id,omitempty"`
	PaymentURL string `json:"payment_url,omitempty"`

	// Relationships
	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
