// Package loans hands asset custody to an internal user or external
// recipient and takes it back. Loan creation and return each mutate the
// loan, the asset status, its history, and the workflow trail in one
// transaction.
package loans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tagvault/tagvault/internal/apperr"
	"github.com/tagvault/tagvault/internal/audit"
	"github.com/tagvault/tagvault/internal/authz"
	"github.com/tagvault/tagvault/internal/database/models"
	"github.com/tagvault/tagvault/internal/workflow"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	audit *audit.Logger
}

func NewService(db *gorm.DB, auditLog *audit.Logger) *Service {
	return &Service{db: db, audit: auditLog}
}

type CreateInput struct {
	AssetID           uuid.UUID
	RecipientID       *uuid.UUID
	ExternalRecipient string
	EndDate           *time.Time
	Details           string
}

// CreateLoan lends an asset out. Exactly one recipient kind must be given;
// disposed assets and assets already on an active loan are rejected.
func (s *Service) CreateLoan(ctx context.Context, actor authz.Actor, input CreateInput) (*models.AssetLoan, error) {
	if err := authz.Require(actor, authz.ActionManageLoans); err != nil {
		return nil, err
	}

	hasInternal := input.RecipientID != nil
	hasExternal := input.ExternalRecipient != ""
	if hasInternal == hasExternal {
		return nil, apperr.Validation("exactly one of recipient_id or external_recipient must be set")
	}

	db := s.db.WithContext(ctx)

	var asset models.Asset
	if err := db.First(&asset, "id = ?", input.AssetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("asset not found")
		}
		return nil, err
	}
	if !actor.InCompany(asset.CompanyID) {
		return nil, authz.ErrCompanyScope(asset.CompanyID)
	}
	if asset.Status == models.AssetStatusDisposed {
		return nil, apperr.Conflict("disposed assets cannot be loaned")
	}

	if hasInternal {
		var recipient models.User
		if err := db.First(&recipient, "id = ?", *input.RecipientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFound("recipient user not found")
			}
			return nil, err
		}
	}

	var active int64
	if err := db.Model(&models.AssetLoan{}).
		Where("asset_id = ? AND is_active = ?", input.AssetID, true).
		Count(&active).Error; err != nil {
		return nil, err
	}
	if active > 0 {
		return nil, apperr.Conflict("asset is already on an active loan")
	}

	loan := models.AssetLoan{
		AssetID:           asset.ID,
		CompanyID:         asset.CompanyID,
		RecipientID:       input.RecipientID,
		ExternalRecipient: input.ExternalRecipient,
		StartDate:         time.Now(),
		EndDate:           input.EndDate,
		Details:           input.Details,
		IsActive:          true,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var again int64
		if err := tx.Model(&models.AssetLoan{}).
			Where("asset_id = ? AND is_active = ?", input.AssetID, true).
			Count(&again).Error; err != nil {
			return err
		}
		if again > 0 {
			return apperr.Conflict("asset is already on an active loan")
		}
		if err := tx.Create(&loan).Error; err != nil {
			return err
		}
		if err := tx.Model(&asset).Update("status", models.AssetStatusOnLoan).Error; err != nil {
			return err
		}
		history := models.AssetStatusHistory{
			AssetID:   asset.ID,
			Status:    models.AssetStatusOnLoan,
			EventType: models.EventLoaned,
			UserID:    &actor.ID,
			Location:  asset.Location,
			Details:   loanRecipient(&loan),
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}
		return workflow.Append(tx, workflow.Entry{
			CompanyID:  asset.CompanyID,
			UserID:     &actor.ID,
			AdminName:  actor.Username,
			AssetID:    &asset.ID,
			AssetName:  asset.Name,
			ActionType: models.ActionStatusChanged,
			Details:    fmt.Sprintf("Asset %s loaned to %s", asset.Code, loanRecipient(&loan)),
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.Entry{
		UserID:     &actor.ID,
		CompanyID:  &asset.CompanyID,
		Action:     "LOAN_CREATED",
		EntityType: "LOAN",
		EntityID:   &loan.ID,
		Details:    "Asset " + asset.Code + " loaned out",
	})
	return &loan, nil
}

// ReturnLoan ends an active loan. Returning an already-returned loan is a
// conflict, not a no-op.
func (s *Service) ReturnLoan(ctx context.Context, actor authz.Actor, loanID uuid.UUID) (*models.AssetLoan, error) {
	if err := authz.Require(actor, authz.ActionManageLoans); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var loan models.AssetLoan
	if err := db.First(&loan, "id = ?", loanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("loan not found")
		}
		return nil, err
	}
	if !actor.InCompany(loan.CompanyID) {
		return nil, authz.ErrCompanyScope(loan.CompanyID)
	}
	if !loan.IsActive {
		return nil, apperr.Conflict("loan has already been returned")
	}

	var asset models.Asset
	if err := db.First(&asset, "id = ?", loan.AssetID).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.AssetLoan{}).
			Where("id = ? AND is_active = ?", loan.ID, true).
			Updates(map[string]any{"is_active": false, "end_date": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("loan has already been returned")
		}
		if err := tx.Model(&asset).Update("status", models.AssetStatusActive).Error; err != nil {
			return err
		}
		history := models.AssetStatusHistory{
			AssetID:   asset.ID,
			Status:    models.AssetStatusActive,
			EventType: models.EventReturned,
			UserID:    &actor.ID,
			Location:  asset.Location,
			Details:   "Loan returned",
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}
		return workflow.Append(tx, workflow.Entry{
			CompanyID:  asset.CompanyID,
			UserID:     &actor.ID,
			AdminName:  actor.Username,
			AssetID:    &asset.ID,
			AssetName:  asset.Name,
			ActionType: models.ActionStatusChanged,
			Details:    fmt.Sprintf("Asset %s returned from loan", asset.Code),
		})
	})
	if err != nil {
		return nil, err
	}

	loan.IsActive = false
	loan.EndDate = &now

	s.audit.Log(ctx, audit.Entry{
		UserID:     &actor.ID,
		CompanyID:  &asset.CompanyID,
		Action:     "LOAN_RETURNED",
		EntityType: "LOAN",
		EntityID:   &loan.ID,
		Details:    "Asset " + asset.Code + " returned",
	})
	return &loan, nil
}

type ListFilter struct {
	ActiveOnly bool
	AssetID    *uuid.UUID
	Page       int
	PerPage    int
}

// ListLoans returns a company's loans, newest first.
func (s *Service) ListLoans(ctx context.Context, actor authz.Actor, companyID uuid.UUID, filter ListFilter) ([]models.AssetLoan, int64, error) {
	if err := authz.Require(actor, authz.ActionManageLoans); err != nil {
		return nil, 0, err
	}
	if !actor.InCompany(companyID) {
		return nil, 0, authz.ErrCompanyScope(companyID)
	}

	query := s.db.WithContext(ctx).Model(&models.AssetLoan{}).
		Where("company_id = ?", companyID)
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.AssetID != nil {
		query = query.Where("asset_id = ?", *filter.AssetID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := authz.RulesFor(actor.Role, actor.Flags).CapPageSize(filter.PerPage)
	if perPage < 1 {
		perPage = 20
	}

	var rows []models.AssetLoan
	err := query.
		Order("start_date DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&rows).Error
	return rows, total, err
}

func loanRecipient(loan *models.AssetLoan) string {
	if loan.RecipientID != nil {
		return "user " + loan.RecipientID.String()
	}
	return loan.ExternalRecipient
}
