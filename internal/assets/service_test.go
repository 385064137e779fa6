package assets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagvault/tagvault/internal/apperr"
	"github.com/tagvault/tagvault/internal/assets"
	"github.com/tagvault/tagvault/internal/authz"
	"github.com/tagvault/tagvault/internal/database/models"
	"github.com/tagvault/tagvault/internal/testutil"
	"gorm.io/gorm"
)

func setupAssetTest(t *testing.T) (*gorm.DB, *assets.Service, authz.Actor, *models.Company, *models.AssetCategory) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	svc := assets.NewService(db, testutil.NewTestAuditLogger(t, db))
	company := testutil.CreateTestCompany(t, db)
	owner := testutil.CreateTestUser(t, db, company, authz.RoleOwner)
	actor := testutil.TestActor(t, db, owner, company, authz.RoleOwner)
	category := testutil.CreateTestCategory(t, db)
	return db, svc, actor, company, category
}

func superActor() authz.Actor {
	return authz.Actor{Role: authz.RoleSuperAdmin, Username: "root", Active: true}
}

func TestService_CreateCategory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	svc := assets.NewService(db, testutil.NewTestAuditLogger(t, db))
	ctx := testutil.TestContext(t)

	t.Run("super admin creates category", func(t *testing.T) {
		category, err := svc.CreateCategory(ctx, superActor(), assets.CreateCategoryInput{
			Name: "Electronics",
			Code: 100,
		})
		require.NoError(t, err)
		assert.Equal(t, "Electronics", category.Name)
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		_, err := svc.CreateCategory(ctx, superActor(), assets.CreateCategoryInput{
			Name: "Electronics",
			Code: 101,
		})
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})

	t.Run("owner is forbidden", func(t *testing.T) {
		_, err := svc.CreateCategory(ctx, authz.Actor{Role: authz.RoleOwner}, assets.CreateCategoryInput{
			Name: "Vehicles",
			Code: 200,
		})
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})
}

func TestService_CreateAsset(t *testing.T) {
	db, svc, actor, company, category := setupAssetTest(t)
	ctx := testutil.TestContext(t)

	t.Run("registers asset with history and workflow", func(t *testing.T) {
		asset, err := svc.CreateAsset(ctx, actor, assets.CreateAssetInput{
			CompanyID:  company.ID,
			CategoryID: category.ID,
			Code:       "P-10001",
			RFIDTag:    "RFID-10001",
			Name:       "Laptop",
			Location:   "HQ",
		})
		require.NoError(t, err)
		assert.Equal(t, models.AssetStatusActive, asset.Status)
		assert.NotNil(t, asset.RegistrationDate)

		var history models.AssetStatusHistory
		require.NoError(t, db.Where("asset_id = ?", asset.ID).First(&history).Error)
		assert.Equal(t, models.EventRegistered, history.EventType)

		var wf models.WorkFlow
		require.NoError(t, db.Where("asset_id = ?", asset.ID).First(&wf).Error)
		assert.Equal(t, models.ActionAdded, wf.ActionType)
		assert.Equal(t, actor.Username, wf.AdminName)
	})

	t.Run("duplicate code conflicts", func(t *testing.T) {
		_, err := svc.CreateAsset(ctx, actor, assets.CreateAssetInput{
			CompanyID:  company.ID,
			CategoryID: category.ID,
			Code:       "P-10001",
			RFIDTag:    "RFID-99999",
			Name:       "Other",
		})
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})

	t.Run("duplicate rfid tag conflicts", func(t *testing.T) {
		_, err := svc.CreateAsset(ctx, actor, assets.CreateAssetInput{
			CompanyID:  company.ID,
			CategoryID: category.ID,
			Code:       "P-99999",
			RFIDTag:    "RFID-10001",
			Name:       "Other",
		})
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})

	t.Run("unknown category is not found", func(t *testing.T) {
		_, err := svc.CreateAsset(ctx, actor, assets.CreateAssetInput{
			CompanyID:  company.ID,
			CategoryID: testutil.CreateTestCompany(t, db).ID, // not a category id
			Code:       "P-20000",
			RFIDTag:    "RFID-20000",
			Name:       "Ghost",
		})
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("cross-company is forbidden", func(t *testing.T) {
		other := testutil.CreateTestCompany(t, db)
		_, err := svc.CreateAsset(ctx, actor, assets.CreateAssetInput{
			CompanyID:  other.ID,
			CategoryID: category.ID,
			Code:       "P-30000",
			RFIDTag:    "RFID-30000",
			Name:       "Foreign",
		})
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})
}

func TestService_UpdateAsset(t *testing.T) {
	db, svc, actor, company, category := setupAssetTest(t)
	ctx := testutil.TestContext(t)
	asset := testutil.CreateTestAsset(t, db, company.ID, category.ID)

	t.Run("location change is a transfer", func(t *testing.T) {
		loc := "Warehouse B"
		updated, err := svc.UpdateAsset(ctx, actor, asset.ID, assets.UpdateInput{Location: &loc})
		require.NoError(t, err)
		assert.Equal(t, "Warehouse B", updated.Location)

		var wf models.WorkFlow
		require.NoError(t, db.
			Where("asset_id = ? AND action_type = ?", asset.ID, models.ActionTransferred).
			First(&wf).Error)
	})

	t.Run("status change appends history", func(t *testing.T) {
		status := models.AssetStatusMaintenance
		updated, err := svc.UpdateAsset(ctx, actor, asset.ID, assets.UpdateInput{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, models.AssetStatusMaintenance, updated.Status)

		var history models.AssetStatusHistory
		require.NoError(t, db.
			Where("asset_id = ? AND event_type = ?", asset.ID, models.EventStatusChanged).
			First(&history).Error)
		assert.Equal(t, models.AssetStatusMaintenance, history.Status)
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		status := models.AssetStatus("broken")
		_, err := svc.UpdateAsset(ctx, actor, asset.ID, assets.UpdateInput{Status: &status})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("admin cannot edit restricted fields", func(t *testing.T) {
		admin := testutil.CreateTestUser(t, db, company, authz.RoleAdmin)
		adminActor := testutil.TestActor(t, db, admin, company, authz.RoleAdmin)

		name := "Renamed"
		_, err := svc.UpdateAsset(ctx, adminActor, asset.ID, assets.UpdateInput{Name: &name})
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

		loc := "Allowed Spot"
		_, err = svc.UpdateAsset(ctx, adminActor, asset.ID, assets.UpdateInput{Location: &loc})
		assert.NoError(t, err)
	})

	t.Run("disposed is terminal", func(t *testing.T) {
		disposed := models.AssetStatusDisposed
		_, err := svc.UpdateAsset(ctx, actor, asset.ID, assets.UpdateInput{Status: &disposed})
		require.NoError(t, err)

		active := models.AssetStatusActive
		_, err = svc.UpdateAsset(ctx, actor, asset.ID, assets.UpdateInput{Status: &active})
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})
}

func TestService_ListAssets(t *testing.T) {
	db, svc, actor, company, category := setupAssetTest(t)
	ctx := testutil.TestContext(t)

	for i := 0; i < 5; i++ {
		testutil.CreateTestAsset(t, db, company.ID, category.ID)
	}

	t.Run("lists company assets", func(t *testing.T) {
		rows, total, err := svc.ListAssets(ctx, actor, company.ID, assets.ListFilter{PerPage: 3})
		require.NoError(t, err)
		assert.EqualValues(t, 5, total)
		assert.Len(t, rows, 3)
	})

	t.Run("page size capped by role", func(t *testing.T) {
		admin := testutil.CreateTestUser(t, db, company, authz.RoleAdmin)
		adminActor := testutil.TestActor(t, db, admin, company, authz.RoleAdmin)

		_, _, err := svc.ListAssets(ctx, adminActor, company.ID, assets.ListFilter{PerPage: 5000})
		require.NoError(t, err)
	})

	t.Run("status filter", func(t *testing.T) {
		asset := testutil.CreateTestAsset(t, db, company.ID, category.ID)
		status := models.AssetStatusInactive
		_, err := svc.UpdateAsset(ctx, actor, asset.ID, assets.UpdateInput{Status: &status})
		require.NoError(t, err)

		rows, total, err := svc.ListAssets(ctx, actor, company.ID, assets.ListFilter{
			Status: models.AssetStatusInactive,
		})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Len(t, rows, 1)
	})

	t.Run("foreign company forbidden", func(t *testing.T) {
		other := testutil.CreateTestCompany(t, db)
		_, _, err := svc.ListAssets(ctx, actor, other.ID, assets.ListFilter{})
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})
}

func TestService_Scan(t *testing.T) {
	db, svc, actor, company, category := setupAssetTest(t)
	ctx := testutil.TestContext(t)
	asset := testutil.CreateTestAsset(t, db, company.ID, category.ID)

	t.Run("resolves tag and records the read", func(t *testing.T) {
		found, err := svc.Scan(ctx, actor, assets.ScanInput{
			RFIDTag:  asset.RFIDTag,
			Location: "Dock 3",
		})
		require.NoError(t, err)
		assert.Equal(t, asset.ID, found.ID)

		var history models.AssetStatusHistory
		require.NoError(t, db.
			Where("asset_id = ? AND event_type = ?", asset.ID, models.EventScanned).
			First(&history).Error)
		assert.Equal(t, "Dock 3", history.Location)
	})

	t.Run("offline read is flagged actionable", func(t *testing.T) {
		_, err := svc.Scan(ctx, actor, assets.ScanInput{
			RFIDTag:   asset.RFIDTag,
			IsOffline: true,
		})
		require.NoError(t, err)

		var wf models.WorkFlow
		require.NoError(t, db.
			Where("asset_id = ? AND is_offline = ?", asset.ID, true).
			First(&wf).Error)
		assert.True(t, wf.IsActionable)
		assert.Equal(t, models.ActionOfflineScan, wf.ActionType)
	})

	t.Run("unknown tag is not found", func(t *testing.T) {
		_, err := svc.Scan(ctx, actor, assets.ScanInput{RFIDTag: "RFID-NOPE"})
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}
