package users_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagvault/tagvault/internal/apperr"
	"github.com/tagvault/tagvault/internal/authz"
	"github.com/tagvault/tagvault/internal/database/models"
	"github.com/tagvault/tagvault/internal/testutil"
	"github.com/tagvault/tagvault/internal/users"
	"gorm.io/gorm"
)

func setupUserTest(t *testing.T) (*gorm.DB, *users.Service, authz.Actor, *models.Company) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	svc := users.NewService(db, testutil.NewTestAuditLogger(t, db))
	company := testutil.CreateTestCompany(t, db)
	owner := testutil.CreateTestUser(t, db, company, authz.RoleOwner)
	actor := testutil.TestActor(t, db, owner, company, authz.RoleOwner)
	return db, svc, actor, company
}

func TestService_CreateUser(t *testing.T) {
	db, svc, actor, company := setupUserTest(t)
	ctx := testutil.TestContext(t)

	t.Run("owner provisions an active admin", func(t *testing.T) {
		user, err := svc.CreateUser(ctx, actor, company.ID, users.CreateInput{
			Username: "clerk",
			Email:    "clerk@example.com",
			Password: "Password123",
			Role:     authz.RoleAdmin,
			Flags:    authz.Flags{ManageOperators: true},
		})
		require.NoError(t, err)
		assert.True(t, user.IsActive)

		var membership models.CompanyMembership
		require.NoError(t, db.
			Where("user_id = ? AND company_id = ?", user.ID, company.ID).
			First(&membership).Error)
		assert.Equal(t, string(authz.RoleAdmin), membership.Role)
		assert.True(t, membership.CanManageOperators)
		require.NotNil(t, membership.InvitedByID)
		assert.Equal(t, actor.ID, *membership.InvitedByID)
	})

	t.Run("owner cannot provision an owner", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, actor, company.ID, users.CreateInput{
			Username: "rival",
			Email:    "rival@example.com",
			Password: "Password123",
			Role:     authz.RoleOwner,
		})
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("admin without flag cannot manage users", func(t *testing.T) {
		admin := testutil.CreateTestUser(t, db, company, authz.RoleAdmin)
		adminActor := testutil.TestActor(t, db, admin, company, authz.RoleAdmin)

		_, err := svc.CreateUser(ctx, adminActor, company.ID, users.CreateInput{
			Username: "helper",
			Email:    "helper@example.com",
			Password: "Password123",
			Role:     authz.RoleOperator,
		})
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("flagged admin provisions operators only", func(t *testing.T) {
		admin := testutil.CreateTestUser(t, db, company, authz.RoleAdmin)
		adminActor := testutil.TestActor(t, db, admin, company, authz.RoleAdmin)
		adminActor.Flags = authz.Flags{ManageOperators: true}

		_, err := svc.CreateUser(ctx, adminActor, company.ID, users.CreateInput{
			Username: "scanner1",
			Email:    "scanner1@example.com",
			Password: "Password123",
			Role:     authz.RoleOperator,
		})
		assert.NoError(t, err)

		_, err = svc.CreateUser(ctx, adminActor, company.ID, users.CreateInput{
			Username: "peer",
			Email:    "peer@example.com",
			Password: "Password123",
			Role:     authz.RoleAdmin,
		})
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, actor, company.ID, users.CreateInput{
			Username: "clerk",
			Email:    "clerk2@example.com",
			Password: "Password123",
			Role:     authz.RoleOperator,
		})
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})

	t.Run("requires contact detail", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, actor, company.ID, users.CreateInput{
			Username: "silent",
			Password: "Password123",
			Role:     authz.RoleOperator,
		})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})
}

func TestService_UpdateUser(t *testing.T) {
	db, svc, actor, company := setupUserTest(t)
	ctx := testutil.TestContext(t)

	target := testutil.CreateTestUser(t, db, company, authz.RoleOperator)

	t.Run("owner edits member details", func(t *testing.T) {
		username := "renamed-operator"
		updated, err := svc.UpdateUser(ctx, actor, company.ID, target.ID, users.UpdateInput{
			Username: &username,
		})
		require.NoError(t, err)
		assert.Equal(t, "renamed-operator", updated.Username)
	})

	t.Run("owner cannot edit a peer owner", func(t *testing.T) {
		peer := testutil.CreateTestUser(t, db, company, authz.RoleOwner)
		active := false
		_, err := svc.UpdateUser(ctx, actor, company.ID, peer.ID, users.UpdateInput{
			IsActive: &active,
		})
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("non-member is not found", func(t *testing.T) {
		stranger := testutil.CreateTestUser(t, db, nil, authz.RoleOperator)
		username := "ghost"
		_, err := svc.UpdateUser(ctx, actor, company.ID, stranger.ID, users.UpdateInput{
			Username: &username,
		})
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

func TestService_ChangeRole(t *testing.T) {
	db, svc, actor, company := setupUserTest(t)
	ctx := testutil.TestContext(t)

	t.Run("promote operator to admin with flags", func(t *testing.T) {
		target := testutil.CreateTestUser(t, db, company, authz.RoleOperator)

		membership, err := svc.ChangeRole(ctx, actor, company.ID, target.ID,
			authz.RoleAdmin, authz.Flags{ManageOperators: true})
		require.NoError(t, err)
		assert.Equal(t, string(authz.RoleAdmin), membership.Role)
		assert.True(t, membership.CanManageOperators)
		assert.False(t, membership.CanDeleteGovernment)
	})

	t.Run("demotion to operator drops flags", func(t *testing.T) {
		target := testutil.CreateTestUser(t, db, company, authz.RoleAdmin)

		membership, err := svc.ChangeRole(ctx, actor, company.ID, target.ID,
			authz.RoleOperator, authz.Flags{ManageOperators: true})
		require.NoError(t, err)
		assert.Equal(t, string(authz.RoleOperator), membership.Role)
		assert.False(t, membership.CanManageOperators)
	})

	t.Run("owner cannot promote to owner", func(t *testing.T) {
		target := testutil.CreateTestUser(t, db, company, authz.RoleAdmin)

		_, err := svc.ChangeRole(ctx, actor, company.ID, target.ID, authz.RoleOwner, authz.Flags{})
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("super admin promotion to owner forces all flags", func(t *testing.T) {
		target := testutil.CreateTestUser(t, db, company, authz.RoleAdmin)
		super := authz.Actor{Role: authz.RoleSuperAdmin, Username: "root", Active: true}

		membership, err := svc.ChangeRole(ctx, super, company.ID, target.ID, authz.RoleOwner, authz.Flags{})
		require.NoError(t, err)
		assert.True(t, membership.CanManageGovernmentAdmins)
		assert.True(t, membership.CanManageOperators)
		assert.True(t, membership.CanDeleteGovernment)
	})
}

func TestService_DeleteUser(t *testing.T) {
	db, svc, actor, company := setupUserTest(t)
	ctx := testutil.TestContext(t)

	t.Run("removes member and account", func(t *testing.T) {
		target := testutil.CreateTestUser(t, db, company, authz.RoleOperator)

		require.NoError(t, svc.DeleteUser(ctx, actor, company.ID, target.ID))

		var count int64
		require.NoError(t, db.Model(&models.CompanyMembership{}).
			Where("user_id = ?", target.ID).Count(&count).Error)
		assert.EqualValues(t, 0, count)

		err := db.First(&models.User{}, "id = ?", target.ID).Error
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("self-delete rejected", func(t *testing.T) {
		err := svc.DeleteUser(ctx, actor, company.ID, actor.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("owner cannot delete a peer owner", func(t *testing.T) {
		peer := testutil.CreateTestUser(t, db, company, authz.RoleOwner)
		err := svc.DeleteUser(ctx, actor, company.ID, peer.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})
}

func TestService_ListUsers(t *testing.T) {
	db, svc, actor, company := setupUserTest(t)
	ctx := testutil.TestContext(t)

	for i := 0; i < 3; i++ {
		testutil.CreateTestUser(t, db, company, authz.RoleOperator)
	}

	t.Run("lists memberships with users", func(t *testing.T) {
		rows, total, err := svc.ListUsers(ctx, actor, company.ID, 1, 50)
		require.NoError(t, err)
		assert.EqualValues(t, 4, total) // owner plus three operators
		require.Len(t, rows, 4)
		assert.NotEmpty(t, rows[0].User.Username)
	})

	t.Run("foreign company forbidden", func(t *testing.T) {
		other := testutil.CreateTestCompany(t, db)
		_, _, err := svc.ListUsers(ctx, actor, other.ID, 1, 50)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})
}

func TestService_Profile(t *testing.T) {
	_, svc, actor, company := setupUserTest(t)
	ctx := testutil.TestContext(t)

	profile, err := svc.Profile(ctx, actor.ID)
	require.NoError(t, err)
	assert.Equal(t, actor.Username, profile.User.Username)
	require.Len(t, profile.Memberships, 1)
	assert.Equal(t, company.ID, profile.Memberships[0].CompanyID)
}
