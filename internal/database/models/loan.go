package models

import (
	"time"

	"github.com/google/uuid"
)

// AssetLoan records custody handed to an internal user or an external
// free-text recipient. Exactly one of RecipientID / ExternalRecipient is set.
type AssetLoan struct {
	Base
	AssetID   uuid.UUID `gorm:"type:uuid;index;not null" json:"asset_id"`
	CompanyID uuid.UUID `gorm:"type:uuid;index;not null" json:"company_id"`

	RecipientID       *uuid.UUID `gorm:"type:uuid" json:"recipient_id,omitempty"`
	ExternalRecipient string     `json:"external_recipient,omitempty"`

	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Details   string     `json:"details,omitempty"`
	IsActive  bool       `gorm:"default:true;index" json:"is_active"`

	// Relationships
	Asset     *Asset   `gorm:"foreignKey:AssetID" json:"-"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"-"`
	Recipient *User    `gorm:"foreignKey:RecipientID" json:"-"`
}

func (AssetLoan) TableName() string {
	return "asset_loans"
}
