package authz

import (
	"github.com/google/uuid"
	"github.com/tagvault/tagvault/internal/apperr"
)

// Action is a coarse permission checked against the role/flag table.
type Action string

const (
	ActionManageCategories Action = "manage_categories"
	ActionManageAssets     Action = "manage_assets"
	ActionViewAssets       Action = "view_assets"
	ActionManageLoans      Action = "manage_loans"
	ActionManageUsers      Action = "manage_users"
	ActionManageCompany    Action = "manage_company"
	ActionDeleteCompany    Action = "delete_company"
	ActionManageLocations  Action = "manage_locations"
	ActionViewWorkflows    Action = "view_workflows"
	ActionViewReports      Action = "view_reports"
	ActionViewLogs         Action = "view_logs"
)

// Can is the single capability check: role and flags in, allow/deny out.
// Company scoping is checked separately via Actor.InCompany.
func Can(role Role, flags Flags, action Action) bool {
	if role == RoleSuperAdmin {
		return true
	}
	switch action {
	case ActionManageCategories, ActionViewReports, ActionViewLogs:
		return false // super admin only
	case ActionManageAssets, ActionManageLocations, ActionViewWorkflows:
		return role == RoleOwner || role == RoleAdmin
	case ActionViewAssets:
		return true
	case ActionManageLoans:
		return role == RoleOwner
	case ActionManageUsers:
		if role == RoleOwner {
			return true
		}
		return role == RoleAdmin && flags.ManageOperators
	case ActionManageCompany:
		return role == RoleOwner && flags.ManageGovernmentAdmins
	case ActionDeleteCompany:
		return flags.DeleteGovernment
	}
	return false
}

// Require converts a denied check into a Forbidden error.
func Require(actor Actor, action Action) error {
	if !Can(actor.Role, actor.Flags, action) {
		return apperr.Forbidden("role %s is not allowed to %s", actor.Role, action)
	}
	return nil
}

// ErrCompanyScope is the uniform rejection for cross-company access.
func ErrCompanyScope(companyID uuid.UUID) error {
	return apperr.Forbidden("no access to company %s", companyID)
}

// Rules is the per-role field-visibility matrix. AllowedFields masks reads,
// EditableFields gates update payloads, MaxRecords caps page sizes
// (0 means unlimited).
type Rules struct {
	Role           Role
	AllowedFields  map[string][]string
	EditableFields map[string][]string
	MaxRecords     int
}

// RulesFor builds the visibility rules for a role. A2's editable "users"
// set is non-empty only when the manage-operators flag is granted.
func RulesFor(role Role, flags Flags) Rules {
	switch role {
	case RoleSuperAdmin:
		return Rules{
			Role: role,
			AllowedFields: map[string][]string{
				"users":     {"id", "username", "phone", "email", "role", "company_id", "is_active", "can_delete_government", "can_manage_government_admins", "can_manage_operators"},
				"companies": {"id", "name", "is_active"},
				"assets":    {"id", "company_id", "name", "code", "location", "status", "rfid_tag", "custodian", "model", "serial_number", "value"},
			},
			EditableFields: map[string][]string{
				"users":     {"username", "phone", "email", "role", "company_id", "is_active", "can_delete_government", "can_manage_government_admins", "can_manage_operators"},
				"companies": {"name", "is_active"},
				"assets":    {"name", "code", "location", "status", "rfid_tag", "custodian", "model", "serial_number", "technical_specs", "value", "description"},
			},
			MaxRecords: 0,
		}
	case RoleOwner:
		return Rules{
			Role: role,
			AllowedFields: map[string][]string{
				"users":  {"id", "username", "phone", "email", "role", "company_id", "is_active", "can_delete_government", "can_manage_government_admins", "can_manage_operators"},
				"assets": {"id", "name", "code", "location", "status", "rfid_tag", "custodian", "model", "serial_number", "value"},
			},
			EditableFields: map[string][]string{
				"users":  {"username", "phone", "email", "role", "is_active", "can_delete_government", "can_manage_government_admins", "can_manage_operators"},
				"assets": {"name", "code", "location", "status", "rfid_tag", "custodian", "model", "serial_number", "technical_specs", "value", "description"},
			},
			MaxRecords: 1000,
		}
	case RoleAdmin:
		editableUsers := []string{}
		if flags.ManageOperators {
			editableUsers = []string{"username", "phone", "email", "is_active"}
		}
		return Rules{
			Role: role,
			AllowedFields: map[string][]string{
				"users":  {"id", "username", "phone", "email", "role", "company_id", "is_active"},
				"assets": {"id", "name", "code", "location", "status"},
			},
			EditableFields: map[string][]string{
				"users":  editableUsers,
				"assets": {"location", "status"},
			},
			MaxRecords: 100,
		}
	default:
		return Rules{
			Role: RoleOperator,
			AllowedFields: map[string][]string{
				"assets": {"id", "name", "code", "location"},
			},
			EditableFields: map[string][]string{},
			MaxRecords:     50,
		}
	}
}

// Mask drops every key of full that is not read-visible for the entity.
func (r Rules) Mask(entity string, full map[string]any) map[string]any {
	allowed, ok := r.AllowedFields[entity]
	if !ok {
		return map[string]any{}
	}
	out := make(map[string]any, len(allowed))
	for _, f := range allowed {
		if v, present := full[f]; present {
			out[f] = v
		}
	}
	return out
}

// ValidateEditable rejects an update payload touching any field outside the
// role's editable set. No partial application: one bad field fails the call.
func (r Rules) ValidateEditable(entity string, fields []string) error {
	editable := r.EditableFields[entity]
	for _, f := range fields {
		ok := false
		for _, e := range editable {
			if e == f {
				ok = true
				break
			}
		}
		if !ok {
			return apperr.Forbidden("field %q of %s is not editable for role %s", f, entity, r.Role)
		}
	}
	return nil
}

// CapPageSize clamps a requested page size to the role's max-records limit.
func (r Rules) CapPageSize(perPage int) int {
	if r.MaxRecords > 0 && perPage > r.MaxRecords {
		return r.MaxRecords
	}
	return perPage
}
