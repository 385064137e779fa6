// Package reports aggregates per-company figures for the super admin view.
package reports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tagvault/tagvault/internal/apperr"
	"github.com/tagvault/tagvault/internal/authz"
	"github.com/tagvault/tagvault/internal/database/models"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CompanyReport summarizes one tenant: headcount, asset totals by status,
// and the time of its last recorded activity.
type CompanyReport struct {
	CompanyID         uuid.UUID  `json:"company_id"`
	Name              string     `json:"name"`
	IsActive          bool       `json:"is_active"`
	UserCount         int64      `json:"user_count"`
	AssetCount        int64      `json:"asset_count"`
	ActiveAssets      int64      `json:"active_assets"`
	OnLoanAssets      int64      `json:"on_loan_assets"`
	MaintenanceAssets int64      `json:"maintenance_assets"`
	DisposedAssets    int64      `json:"disposed_assets"`
	LastActivity      *time.Time `json:"last_activity,omitempty"`
}

// CompanyReport builds the summary for one company. Super admin only.
func (s *Service) CompanyReport(ctx context.Context, actor authz.Actor, companyID uuid.UUID) (*CompanyReport, error) {
	if err := authz.Require(actor, authz.ActionViewReports); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var company models.Company
	if err := db.First(&company, "id = ?", companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("company not found")
		}
		return nil, err
	}

	report := &CompanyReport{
		CompanyID: company.ID,
		Name:      company.Name,
		IsActive:  company.IsActive,
	}

	if err := db.Model(&models.CompanyMembership{}).
		Where("company_id = ? AND status = ?", companyID, models.MembershipActive).
		Count(&report.UserCount).Error; err != nil {
		return nil, err
	}

	counts := []struct {
		status models.AssetStatus
		dest   *int64
	}{
		{models.AssetStatusActive, &report.ActiveAssets},
		{models.AssetStatusOnLoan, &report.OnLoanAssets},
		{models.AssetStatusMaintenance, &report.MaintenanceAssets},
		{models.AssetStatusDisposed, &report.DisposedAssets},
	}
	if err := db.Model(&models.Asset{}).
		Where("company_id = ?", companyID).
		Count(&report.AssetCount).Error; err != nil {
		return nil, err
	}
	for _, c := range counts {
		if err := db.Model(&models.Asset{}).
			Where("company_id = ? AND status = ?", companyID, c.status).
			Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	var last models.Log
	err := db.Where("company_id = ?", companyID).
		Order("created_at DESC").
		First(&last).Error
	switch {
	case err == nil:
		report.LastActivity = &last.CreatedAt
	case errors.Is(err, gorm.ErrRecordNotFound):
		// no activity yet
	default:
		return nil, err
	}

	return report, nil
}

// AllCompanies builds the summary for every tenant. Super admin only.
func (s *Service) AllCompanies(ctx context.Context, actor authz.Actor) ([]CompanyReport, error) {
	if err := authz.Require(actor, authz.ActionViewReports); err != nil {
		return nil, err
	}

	var companies []models.Company
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&companies).Error; err != nil {
		return nil, err
	}

	reports := make([]CompanyReport, 0, len(companies))
	for _, c := range companies {
		r, err := s.CompanyReport(ctx, actor, c.ID)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, nil
}
