package workflow_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagvault/tagvault/internal/apperr"
	"github.com/tagvault/tagvault/internal/authz"
	"github.com/tagvault/tagvault/internal/database/models"
	"github.com/tagvault/tagvault/internal/testutil"
	"github.com/tagvault/tagvault/internal/workflow"
	"gorm.io/gorm"
)

func TestAppend(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	company := testutil.CreateTestCompany(t, db)

	t.Run("defaults occurred_at", func(t *testing.T) {
		err := workflow.Append(db, workflow.Entry{
			CompanyID:  company.ID,
			AdminName:  "owner",
			ActionType: models.ActionAdded,
			Details:    "seed",
		})
		require.NoError(t, err)

		var row models.WorkFlow
		require.NoError(t, db.Where("company_id = ?", company.ID).First(&row).Error)
		assert.WithinDuration(t, time.Now(), row.OccurredAt, 5*time.Second)
	})

	t.Run("rolls back with the enclosing transaction", func(t *testing.T) {
		sentinel := apperr.Conflict("abort")
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := workflow.Append(tx, workflow.Entry{
				CompanyID:  company.ID,
				AdminName:  "owner",
				ActionType: models.ActionEdited,
				Details:    "doomed",
			}); err != nil {
				return err
			}
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)

		var count int64
		require.NoError(t, db.Model(&models.WorkFlow{}).
			Where("details = ?", "doomed").Count(&count).Error)
		assert.EqualValues(t, 0, count)
	})
}

func TestService_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	svc := workflow.NewService(db)
	ctx := testutil.TestContext(t)

	company := testutil.CreateTestCompany(t, db)
	owner := testutil.CreateTestUser(t, db, company, authz.RoleOwner)
	actor := testutil.TestActor(t, db, owner, company, authz.RoleOwner)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seed := []struct {
		action models.WorkflowActionType
		at     time.Time
	}{
		{models.ActionAdded, base},
		{models.ActionEdited, base.Add(1 * time.Hour)},
		{models.ActionTransferred, base.Add(2 * time.Hour)},
		{models.ActionEdited, base.Add(3 * time.Hour)},
	}
	for _, s := range seed {
		require.NoError(t, workflow.Append(db, workflow.Entry{
			CompanyID:  company.ID,
			AdminName:  actor.Username,
			ActionType: s.action,
			OccurredAt: s.at,
		}))
	}

	t.Run("newest first", func(t *testing.T) {
		rows, total, err := svc.List(ctx, actor, company.ID, workflow.ListFilter{})
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)
		require.Len(t, rows, 4)
		assert.Equal(t, models.ActionEdited, rows[0].ActionType)
		assert.True(t, rows[0].OccurredAt.After(rows[3].OccurredAt))
	})

	t.Run("filter by action type", func(t *testing.T) {
		rows, total, err := svc.List(ctx, actor, company.ID, workflow.ListFilter{
			ActionType: models.ActionEdited,
		})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, rows, 2)
	})

	t.Run("time bounds are inclusive", func(t *testing.T) {
		from := base.Add(1 * time.Hour)
		to := base.Add(2 * time.Hour)
		rows, total, err := svc.List(ctx, actor, company.ID, workflow.ListFilter{
			From: &from,
			To:   &to,
		})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		require.Len(t, rows, 2)
		assert.Equal(t, models.ActionTransferred, rows[0].ActionType)
		assert.Equal(t, models.ActionEdited, rows[1].ActionType)
	})

	t.Run("operator is forbidden", func(t *testing.T) {
		op := testutil.CreateTestUser(t, db, company, authz.RoleOperator)
		opActor := testutil.TestActor(t, db, op, company, authz.RoleOperator)

		_, _, err := svc.List(ctx, opActor, company.ID, workflow.ListFilter{})
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("foreign company is forbidden", func(t *testing.T) {
		other := testutil.CreateTestCompany(t, db)
		_, _, err := svc.List(ctx, actor, other.ID, workflow.ListFilter{})
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("super admin sees any company", func(t *testing.T) {
		super := authz.Actor{Role: authz.RoleSuperAdmin, Username: "root", Active: true}
		_, total, err := svc.List(ctx, super, company.ID, workflow.ListFilter{})
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)
	})
}
