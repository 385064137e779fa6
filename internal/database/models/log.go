package models

import "github.com/google/uuid"

// Log is the generic append-only action log used for security and
// administrative auditing (signups, logins, admin actions).
type Log struct {
	Base
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	CompanyID  *uuid.UUID `gorm:"type:uuid;index" json:"company_id,omitempty"`
	Action     string     `gorm:"not null;index" json:"action"`
	EntityType string     `gorm:"index" json:"entity_type,omitempty"`
	EntityID   *uuid.UUID `gorm:"type:uuid" json:"entity_id,omitempty"`
	Details    string     `json:"details,omitempty"`
}

func (Log) TableName() string {
	return "logs"
}
