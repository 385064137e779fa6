package models

import (
	"time"

	"github.com/google/uuid"
)

type MembershipStatus string

const (
	MembershipActive            MembershipStatus = "active"
	MembershipPendingInvitation MembershipStatus = "pending_invitation"
	MembershipPendingRemoval    MembershipStatus = "pending_removal"
)

type Company struct {
	Base
	Name string `gorm:"uniqueIndex;not null" json:"name"`

	// Deactivation is soft: the row stays, the flag flips.
	IsActive bool `gorm:"default:true" json:"is_active"`

	// Relationships
	Members []CompanyMembership `gorm:"foreignKey:CompanyID" json:"-"`
	Assets  []Asset             `gorm:"foreignKey:CompanyID" json:"-"`
}

func (Company) TableName() string {
	return "companies"
}

// CompanyMembership links a user to a company with a role and the
// fine-grained capability flags that only matter for the A2 tier.
type CompanyMembership struct {
	Base
	UserID    uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_user_company" json:"user_id"`
	CompanyID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_user_company;index" json:"company_id"`
	Role      string           `gorm:"not null" json:"role"` // S, A1, A2, O
	Status    MembershipStatus `gorm:"not null;default:'active'" json:"status"`

	CanManageGovernmentAdmins bool `gorm:"default:false" json:"can_manage_government_admins"`
	CanManageOperators        bool `gorm:"default:false" json:"can_manage_operators"`
	CanDeleteGovernment       bool `gorm:"default:false" json:"can_delete_government"`

	InvitedByID *uuid.UUID `gorm:"type:uuid" json:"invited_by_id,omitempty"`
	JoinedAt    time.Time  `json:"joined_at"`

	// Relationships
	User    *User    `gorm:"foreignKey:UserID" json:"-"`
	Company *Company `gorm:"foreignKey:CompanyID" json:"-"`
	Inviter *User    `gorm:"foreignKey:InvitedByID" json:"-"`
}

func (CompanyMembership) TableName() string {
	return "company_memberships"
}
