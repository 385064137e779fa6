// Package workflow maintains the append-only trail of asset-affecting
// actions. Unlike the generic audit log, workflow rows are written inside
// the same transaction as the operation they describe.
package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
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

// Entry describes one workflow row to append.
type Entry struct {
	CompanyID    uuid.UUID
	UserID       *uuid.UUID
	AdminName    string
	AssetID      *uuid.UUID
	AssetName    string
	ActionType   models.WorkflowActionType
	Details      string
	OccurredAt   time.Time
	IsOffline    bool
	IsActionable bool
}

// Append writes one workflow row on tx. Callers pass the transaction of the
// operation being recorded so a failed append rolls the operation back.
func Append(tx *gorm.DB, e Entry) error {
	occurred := e.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	row := models.WorkFlow{
		CompanyID:    e.CompanyID,
		UserID:       e.UserID,
		AdminName:    e.AdminName,
		AssetID:      e.AssetID,
		AssetName:    e.AssetName,
		ActionType:   e.ActionType,
		Details:      e.Details,
		OccurredAt:   occurred,
		IsOffline:    e.IsOffline,
		IsActionable: e.IsActionable,
	}
	return tx.Create(&row).Error
}

// ListFilter narrows a workflow listing. Zero values mean "no filter";
// the time bounds are inclusive.
type ListFilter struct {
	ActionType models.WorkflowActionType
	From       *time.Time
	To         *time.Time
	Page       int
	PerPage    int
}

// List returns the workflow trail for a company, newest first. Operators
// are not allowed in; everyone else is scoped to their own company.
func (s *Service) List(ctx context.Context, actor authz.Actor, companyID uuid.UUID, filter ListFilter) ([]models.WorkFlow, int64, error) {
	if err := authz.Require(actor, authz.ActionViewWorkflows); err != nil {
		return nil, 0, err
	}
	if !actor.InCompany(companyID) {
		return nil, 0, authz.ErrCompanyScope(companyID)
	}

	query := s.db.WithContext(ctx).Model(&models.WorkFlow{}).
		Where("company_id = ?", companyID)

	if filter.ActionType != "" {
		query = query.Where("action_type = ?", filter.ActionType)
	}
	if filter.From != nil {
		query = query.Where("occurred_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("occurred_at <= ?", *filter.To)
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

	var rows []models.WorkFlow
	err := query.
		Order("occurred_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&rows).Error
	return rows, total, err
}
