package authz_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/tagvault/tagvault/internal/apperr"
	"github.com/tagvault/tagvault/internal/authz"
)

func TestRole_CanAssign(t *testing.T) {
	tests := []struct {
		name     string
		assigner authz.Role
		target   authz.Role
		allowed  bool
	}{
		{"super assigns super", authz.RoleSuperAdmin, authz.RoleSuperAdmin, true},
		{"super assigns owner", authz.RoleSuperAdmin, authz.RoleOwner, true},
		{"super assigns operator", authz.RoleSuperAdmin, authz.RoleOperator, true},
		{"owner assigns admin", authz.RoleOwner, authz.RoleAdmin, true},
		{"owner assigns operator", authz.RoleOwner, authz.RoleOperator, true},
		{"owner cannot assign owner", authz.RoleOwner, authz.RoleOwner, false},
		{"owner cannot assign super", authz.RoleOwner, authz.RoleSuperAdmin, false},
		{"admin assigns operator", authz.RoleAdmin, authz.RoleOperator, true},
		{"admin cannot assign admin", authz.RoleAdmin, authz.RoleAdmin, false},
		{"operator assigns nothing", authz.RoleOperator, authz.RoleOperator, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.assigner.CanAssign(tt.target))
		})
	}
}

func TestValidateAssignment(t *testing.T) {
	err := authz.ValidateAssignment(authz.RoleAdmin, authz.RoleOwner)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	assert.NoError(t, authz.ValidateAssignment(authz.RoleOwner, authz.RoleOperator))
}

func TestParseRole(t *testing.T) {
	for _, code := range []string{"S", "A1", "A2", "O"} {
		_, err := authz.ParseRole(code)
		assert.NoError(t, err)
	}

	_, err := authz.ParseRole("X")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestCan(t *testing.T) {
	t.Run("super admin can do everything", func(t *testing.T) {
		for _, action := range []authz.Action{
			authz.ActionManageCategories, authz.ActionManageAssets,
			authz.ActionManageLoans, authz.ActionManageUsers,
			authz.ActionDeleteCompany, authz.ActionViewReports,
			authz.ActionViewLogs,
		} {
			assert.True(t, authz.Can(authz.RoleSuperAdmin, authz.Flags{}, action), string(action))
		}
	})

	t.Run("categories and reports are super only", func(t *testing.T) {
		assert.False(t, authz.Can(authz.RoleOwner, authz.Flags{}, authz.ActionManageCategories))
		assert.False(t, authz.Can(authz.RoleOwner, authz.Flags{}, authz.ActionViewReports))
		assert.False(t, authz.Can(authz.RoleOwner, authz.Flags{}, authz.ActionViewLogs))
	})

	t.Run("loans are owner only", func(t *testing.T) {
		assert.True(t, authz.Can(authz.RoleOwner, authz.Flags{}, authz.ActionManageLoans))
		assert.False(t, authz.Can(authz.RoleAdmin, authz.Flags{}, authz.ActionManageLoans))
		assert.False(t, authz.Can(authz.RoleOperator, authz.Flags{}, authz.ActionManageLoans))
	})

	t.Run("admin user management requires flag", func(t *testing.T) {
		assert.False(t, authz.Can(authz.RoleAdmin, authz.Flags{}, authz.ActionManageUsers))
		assert.True(t, authz.Can(authz.RoleAdmin, authz.Flags{ManageOperators: true}, authz.ActionManageUsers))
	})

	t.Run("company delete requires flag", func(t *testing.T) {
		assert.False(t, authz.Can(authz.RoleOwner, authz.Flags{}, authz.ActionDeleteCompany))
		assert.True(t, authz.Can(authz.RoleOwner, authz.Flags{DeleteGovernment: true}, authz.ActionDeleteCompany))
	})

	t.Run("operators can only view assets", func(t *testing.T) {
		assert.True(t, authz.Can(authz.RoleOperator, authz.Flags{}, authz.ActionViewAssets))
		assert.False(t, authz.Can(authz.RoleOperator, authz.Flags{}, authz.ActionManageAssets))
		assert.False(t, authz.Can(authz.RoleOperator, authz.Flags{}, authz.ActionViewWorkflows))
	})
}

func TestRulesFor(t *testing.T) {
	t.Run("max records per tier", func(t *testing.T) {
		assert.Equal(t, 0, authz.RulesFor(authz.RoleSuperAdmin, authz.Flags{}).MaxRecords)
		assert.Equal(t, 1000, authz.RulesFor(authz.RoleOwner, authz.Flags{}).MaxRecords)
		assert.Equal(t, 100, authz.RulesFor(authz.RoleAdmin, authz.Flags{}).MaxRecords)
		assert.Equal(t, 50, authz.RulesFor(authz.RoleOperator, authz.Flags{}).MaxRecords)
	})

	t.Run("admin user editing gated on flag", func(t *testing.T) {
		without := authz.RulesFor(authz.RoleAdmin, authz.Flags{})
		assert.Empty(t, without.EditableFields["users"])

		with := authz.RulesFor(authz.RoleAdmin, authz.Flags{ManageOperators: true})
		assert.NotEmpty(t, with.EditableFields["users"])
	})

	t.Run("operator sees only the basics", func(t *testing.T) {
		rules := authz.RulesFor(authz.RoleOperator, authz.Flags{})
		assert.ElementsMatch(t, []string{"id", "name", "code", "location"}, rules.AllowedFields["assets"])
		_, hasUsers := rules.AllowedFields["users"]
		assert.False(t, hasUsers)
	})
}

func TestRules_Mask(t *testing.T) {
	rules := authz.RulesFor(authz.RoleOperator, authz.Flags{})

	full := map[string]any{
		"id":       "abc",
		"name":     "Printer",
		"code":     "P-1",
		"location": "HQ",
		"rfid_tag": "secret-tag",
		"value":    int64(100),
	}
	masked := rules.Mask("assets", full)

	assert.Equal(t, "Printer", masked["name"])
	_, hasTag := masked["rfid_tag"]
	assert.False(t, hasTag)
	_, hasValue := masked["value"]
	assert.False(t, hasValue)
}

func TestRules_ValidateEditable(t *testing.T) {
	rules := authz.RulesFor(authz.RoleAdmin, authz.Flags{})

	assert.NoError(t, rules.ValidateEditable("assets", []string{"location", "status"}))

	err := rules.ValidateEditable("assets", []string{"location", "rfid_tag"})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestRules_CapPageSize(t *testing.T) {
	assert.Equal(t, 50, authz.RulesFor(authz.RoleOperator, authz.Flags{}).CapPageSize(200))
	assert.Equal(t, 20, authz.RulesFor(authz.RoleOperator, authz.Flags{}).CapPageSize(20))
	assert.Equal(t, 5000, authz.RulesFor(authz.RoleSuperAdmin, authz.Flags{}).CapPageSize(5000))
}

func TestActor_InCompany(t *testing.T) {
	companyID := uuid.New()
	otherID := uuid.New()

	super := authz.Actor{Role: authz.RoleSuperAdmin}
	assert.True(t, super.InCompany(companyID))

	owner := authz.Actor{Role: authz.RoleOwner, CompanyID: &companyID}
	assert.True(t, owner.InCompany(companyID))
	assert.False(t, owner.InCompany(otherID))

	unscoped := authz.Actor{Role: authz.RoleOperator}
	assert.False(t, unscoped.InCompany(companyID))
}
