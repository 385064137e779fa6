package models

import (
	"time"

	"github.com/google/uuid"
)

type WorkflowActionType string

const (
	ActionAdded         WorkflowActionType = "added"
	ActionEdited        WorkflowActionType = "edited"
	ActionTransferred   WorkflowActionType = "transferred"
	ActionStatusChanged WorkflowActionType = "status_changed"
	ActionOfflineScan   WorkflowActionType = "offline_scan"
)

// WorkFlow is the append-only audit trail of asset-affecting actions,
// distinct from the generic Log.
type WorkFlow struct {
	Base
	CompanyID uuid.UUID  `gorm:"type:uuid;not null;index:idx_workflows_company_occurred" json:"company_id"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	AdminName string     `json:"admin_name,omitempty"`

	AssetID   *uuid.UUID `gorm:"type:uuid;index" json:"asset_id,omitempty"`
	AssetName string     `json:"asset_name,omitempty"`

	ActionType WorkflowActionType `gorm:"not null;index" json:"action_type"`
	Details    string             `json:"details,omitempty"`

	OccurredAt   time.Time `gorm:"index:idx_workflows_company_occurred" json:"occurred_at"`
	IsOffline    bool      `gorm:"default:false" json:"is_offline"`
	IsActionable bool      `gorm:"default:false" json:"is_actionable"`

	// Relationships
	Company *Company `gorm:"foreignKey:CompanyID" json:"-"`
	Asset   *Asset   `gorm:"foreignKey:AssetID" json:"-"`
}

func (WorkFlow) TableName() string {
	return "work_flows"
}
