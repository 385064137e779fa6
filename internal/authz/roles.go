// Package authz centralizes the role hierarchy, capability flags, and
// per-role field visibility that used to be duplicated across services.
package authz

import (
	"github.com/google/uuid"
	"github.com/tagvault/tagvault/internal/apperr"
)

// Role is the closed four-tier hierarchy. The short codes are what gets
// persisted on memberships and carried in responses.
type Role string

const (
	RoleSuperAdmin Role = "S"  // unrestricted across all companies
	RoleOwner      Role = "A1" // "government owner", one per company
	RoleAdmin      Role = "A2" // non-owner admin, restricted by flags
	RoleOperator   Role = "O"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSuperAdmin, RoleOwner, RoleAdmin, RoleOperator:
		return Role(s), nil
	}
	return "", apperr.Validation("invalid role %q", s)
}

// assignable maps an assigner's tier to the roles it may grant.
var assignable = map[Role][]Role{
	RoleSuperAdmin: {RoleSuperAdmin, RoleOwner, RoleAdmin, RoleOperator},
	RoleOwner:      {RoleAdmin, RoleOperator},
	RoleAdmin:      {RoleOperator},
	RoleOperator:   {},
}

// CanAssign reports whether an assigner of role r may grant target.
func (r Role) CanAssign(target Role) bool {
	for _, t := range assignable[r] {
		if t == target {
			return true
		}
	}
	return false
}

// ValidateAssignment rejects role grants outside the assigner's tier.
func ValidateAssignment(assigner, target Role) error {
	if !assigner.CanAssign(target) {
		return apperr.Forbidden("role %s cannot assign role %s", assigner, target)
	}
	return nil
}

// Flags are the fine-grained capabilities only meaningful for the A2 tier.
// A1 memberships are created with all three set.
type Flags struct {
	ManageGovernmentAdmins bool
	ManageOperators        bool
	DeleteGovernment       bool
}

// Actor is the request identity resolved once per request from storage.
type Actor struct {
	ID       uuid.UUID
	Username string
	Email    string
	Phone    string
	Active   bool
	Premium  bool

	// Primary membership; Super admins have no company scope.
	Role      Role
	CompanyID *uuid.UUID
	Flags     Flags
}

// InCompany reports whether the actor's scope covers companyID.
// Super admins cover everything.
func (a Actor) InCompany(companyID uuid.UUID) bool {
	if a.Role == RoleSuperAdmin {
		return true
	}
	return a.CompanyID != nil && *a.CompanyID == companyID
}
