package models

import (
	"time"

	"github.com/google/uuid"
)

type AssetStatus string

const (
	AssetStatusActive      AssetStatus = "active"
	AssetStatusInactive    AssetStatus = "inactive"
	AssetStatusMaintenance AssetStatus = "maintenance"
	AssetStatusDisposed    AssetStatus = "disposed" // terminal
	AssetStatusOnLoan      AssetStatus = "on_loan"
)

type AssetEventType string

const (
	EventRegistered    AssetEventType = "registered"
	EventScanned       AssetEventType = "scanned"
	EventMoved         AssetEventType = "moved"
	EventAssigned      AssetEventType = "assigned"
	EventLoaned        AssetEventType = "loaned"
	EventReturned      AssetEventType = "returned"
	EventStatusChanged AssetEventType = "status_changed"
)

// AssetCategory is immutable reference data shared by all companies.
type AssetCategory struct {
	Base
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Code        int    `gorm:"uniqueIndex;not null" json:"code"`
	Description string `json:"description,omitempty"`
}

func (AssetCategory) TableName() string {
	return "asset_categories"
}

type Asset struct {
	Base
	CompanyID  uuid.UUID `gorm:"type:uuid;index;not null" json:"company_id"`
	CategoryID uuid.UUID `gorm:"type:uuid;not null" json:"category_id"`

	// Business identifier and RFID tag are globally unique, not per-company.
	Code    string `gorm:"uniqueIndex;not null" json:"code"` // e.g. P-58290
	// Column pinned: the default naming strategy would split RFIDTag into
	// rf_id_tag, which the raw lookup queries do not expect.
	RFIDTag string `gorm:"column:rfid_tag;uniqueIndex;not null" json:"rfid_tag"`

	Name           string      `gorm:"not null" json:"name"`
	Model          string      `json:"model,omitempty"`
	SerialNumber   string      `json:"serial_number,omitempty"`
	TechnicalSpecs string      `json:"technical_specs,omitempty"`
	Location       string      `json:"location,omitempty"`
	Custodian      string      `json:"custodian,omitempty"`
	Value          int64       `json:"value,omitempty"`
	Description    string      `json:"description,omitempty"`
	Status         AssetStatus `gorm:"not null;index;default:'active'" json:"status"`

	RegistrationDate *time.Time `json:"registration_date,omitempty"`
	WarrantyEndDate  *time.Time `json:"warranty_end_date,omitempty"`

	// Relationships
	Company  *Company       `gorm:"foreignKey:CompanyID" json:"-"`
	Category *AssetCategory `gorm:"foreignKey:CategoryID" json:"-"`
	History  []AssetStatusHistory `gorm:"foreignKey:AssetID" json:"-"`
}

func (Asset) TableName() string {
	return "assets"
}

// AssetStatusHistory is append-only: one row per status transition,
// never mutated or deleted.
type AssetStatusHistory struct {
	Base
	AssetID   uuid.UUID      `gorm:"type:uuid;index;not null" json:"asset_id"`
	Status    AssetStatus    `gorm:"not null" json:"status"`
	EventType AssetEventType `gorm:"not null" json:"event_type"`
	UserID    *uuid.UUID     `gorm:"type:uuid" json:"user_id,omitempty"`
	Location  string         `json:"location,omitempty"`
	Details   string         `json:"details,omitempty"`
}

func (AssetStatusHistory) TableName() string {
	return "asset_status_history"
}
