// Package audit writes the generic action log. Failures here never fail the
// caller: a lost audit row is reported locally and swallowed.
package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tagvault/tagvault/internal/database/models"
	"gorm.io/gorm"
)

type Entry struct {
	UserID     *uuid.UUID
	CompanyID  *uuid.UUID
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	Details    string
}

type Logger struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewLogger(db *gorm.DB, logger *slog.Logger) *Logger {
	return &Logger{db: db, logger: logger}
}

// Log appends one row to the action log outside any caller transaction, so
// audit rows for committed operations survive and audit failures cannot
// roll anything back.
func (l *Logger) Log(ctx context.Context, e Entry) {
	row := models.Log{
		UserID:     e.UserID,
		CompanyID:  e.CompanyID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Details:    e.Details,
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		l.logger.Error("failed to write audit log", "action", e.Action, "error", err)
	}
}

// List returns log rows, newest first, optionally filtered by company.
func (l *Logger) List(ctx context.Context, companyID *uuid.UUID, page, perPage int) ([]models.Log, int64, error) {
	query := l.db.WithContext(ctx).Model(&models.Log{})
	if companyID != nil {
		query = query.Where("company_id = ?", *companyID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.Log
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&logs).Error
	return logs, total, err
}
