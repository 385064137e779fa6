// Package assets implements the asset registry: categories, registration,
// field-restricted updates, listing, and RFID scan resolution.
package assets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tagvault/tagvault/internal/apperr"
	"github.com/tagvault/tagvault/internal/audit"
	"github.com/tagvault/tagvault/internal/authz"
	"github.com/tagvault/tagvault/internal/database"
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

type CreateCategoryInput struct {
	Name        string
	Code        int
	Description string
}

// CreateCategory adds a shared reference category. Super admin only.
func (s *Service) CreateCategory(ctx context.Context, actor authz.Actor, input CreateCategoryInput) (*models.AssetCategory, error) {
	if err := authz.Require(actor, authz.ActionManageCategories); err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, apperr.Validation("category name is required")
	}

	category := models.AssetCategory{
		Name:        input.Name,
		Code:        input.Code,
		Description: input.Description,
	}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return nil, apperr.Conflict("category with this name or code already exists")
		}
		return nil, err
	}
	return &category, nil
}

// ListCategories returns all categories; they are shared reference data and
// visible to every authenticated caller.
func (s *Service) ListCategories(ctx context.Context) ([]models.AssetCategory, error) {
	var categories []models.AssetCategory
	err := s.db.WithContext(ctx).Order("code ASC").Find(&categories).Error
	return categories, err
}

type CreateAssetInput struct {
	CompanyID      uuid.UUID
	CategoryID     uuid.UUID
	Code           string
	RFIDTag        string
	Name           string
	Model          string
	SerialNumber   string
	TechnicalSpecs string
	Location       string
	Custodian      string
	Value          int64
	Description    string
	WarrantyEnd    *time.Time
}

// CreateAsset registers an asset: the row, its first history entry, and the
// workflow record are written in one transaction.
func (s *Service) CreateAsset(ctx context.Context, actor authz.Actor, input CreateAssetInput) (*models.Asset, error) {
	if err := authz.Require(actor, authz.ActionManageAssets); err != nil {
		return nil, err
	}
	if !actor.InCompany(input.CompanyID) {
		return nil, authz.ErrCompanyScope(input.CompanyID)
	}
	if input.Code == "" || input.RFIDTag == "" || input.Name == "" {
		return nil, apperr.Validation("code, rfid_tag, and name are required")
	}

	db := s.db.WithContext(ctx)

	var category models.AssetCategory
	if err := db.First(&category, "id = ?", input.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("category not found")
		}
		return nil, err
	}

	var count int64
	if err := db.Model(&models.Asset{}).
		Where("code = ? OR rfid_tag = ?", input.Code, input.RFIDTag).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.Conflict("asset code or RFID tag already exists")
	}

	now := time.Now()
	asset := models.Asset{
		CompanyID:        input.CompanyID,
		CategoryID:       input.CategoryID,
		Code:             input.Code,
		RFIDTag:          input.RFIDTag,
		Name:             input.Name,
		Model:            input.Model,
		SerialNumber:     input.SerialNumber,
		TechnicalSpecs:   input.TechnicalSpecs,
		Location:         input.Location,
		Custodian:        input.Custodian,
		Value:            input.Value,
		Description:      input.Description,
		Status:           models.AssetStatusActive,
		RegistrationDate: &now,
		WarrantyEndDate:  input.WarrantyEnd,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&asset).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return apperr.Conflict("asset code or RFID tag already exists")
			}
			return err
		}
		history := models.AssetStatusHistory{
			AssetID:   asset.ID,
			Status:    models.AssetStatusActive,
			EventType: models.EventRegistered,
			UserID:    &actor.ID,
			Location:  asset.Location,
			Details:   "Asset registered",
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
			ActionType: models.ActionAdded,
			Details:    fmt.Sprintf("Asset %s registered", asset.Code),
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.Entry{
		UserID:     &actor.ID,
		CompanyID:  &asset.CompanyID,
		Action:     "ASSET_CREATED",
		EntityType: "ASSET",
		EntityID:   &asset.ID,
		Details:    "Asset " + asset.Code + " registered",
	})
	return &asset, nil
}

// UpdateInput carries only the fields present in the request; nil means
// the field was not sent.
type UpdateInput struct {
	Name           *string
	Model          *string
	SerialNumber   *string
	TechnicalSpecs *string
	Location       *string
	Custodian      *string
	Value          *int64
	Description    *string
	Status         *models.AssetStatus
	Code           *string
	RFIDTag        *string
}

// fieldNames maps the populated update fields to their wire names for the
// per-role editable-field check.
func (u UpdateInput) fieldNames() []string {
	var names []string
	add := func(set bool, name string) {
		if set {
			names = append(names, name)
		}
	}
	add(u.Name != nil, "name")
	add(u.Model != nil, "model")
	add(u.SerialNumber != nil, "serial_number")
	add(u.TechnicalSpecs != nil, "technical_specs")
	add(u.Location != nil, "location")
	add(u.Custodian != nil, "custodian")
	add(u.Value != nil, "value")
	add(u.Description != nil, "description")
	add(u.Status != nil, "status")
	add(u.Code != nil, "code")
	add(u.RFIDTag != nil, "rfid_tag")
	return names
}

// UpdateAsset applies a partial update after checking every touched field
// against the caller's editable set. Location changes are recorded as a
// transfer; status changes append a history row.
func (s *Service) UpdateAsset(ctx context.Context, actor authz.Actor, assetID uuid.UUID, input UpdateInput) (*models.Asset, error) {
	if err := authz.Require(actor, authz.ActionManageAssets); err != nil {
		return nil, err
	}

	var asset models.Asset
	if err := s.db.WithContext(ctx).First(&asset, "id = ?", assetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("asset not found")
		}
		return nil, err
	}
	if !actor.InCompany(asset.CompanyID) {
		return nil, authz.ErrCompanyScope(asset.CompanyID)
	}

	rules := authz.RulesFor(actor.Role, actor.Flags)
	if err := rules.ValidateEditable("assets", input.fieldNames()); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	locationChanged := false
	statusChanged := false
	oldStatus := asset.Status
	oldLocation := asset.Location

	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Model != nil {
		updates["model"] = *input.Model
	}
	if input.SerialNumber != nil {
		updates["serial_number"] = *input.SerialNumber
	}
	if input.TechnicalSpecs != nil {
		updates["technical_specs"] = *input.TechnicalSpecs
	}
	if input.Location != nil && *input.Location != asset.Location {
		updates["location"] = *input.Location
		locationChanged = true
	}
	if input.Custodian != nil {
		updates["custodian"] = *input.Custodian
	}
	if input.Value != nil {
		updates["value"] = *input.Value
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Code != nil {
		updates["code"] = *input.Code
	}
	if input.RFIDTag != nil {
		updates["rfid_tag"] = *input.RFIDTag
	}
	if input.Status != nil && *input.Status != asset.Status {
		if asset.Status == models.AssetStatusDisposed {
			return nil, apperr.Conflict("disposed assets cannot change status")
		}
		if _, err := parseStatus(string(*input.Status)); err != nil {
			return nil, err
		}
		updates["status"] = *input.Status
		statusChanged = true
	}

	if len(updates) == 0 {
		return &asset, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&asset).Updates(updates).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return apperr.Conflict("asset code or RFID tag already exists")
			}
			return err
		}

		if statusChanged {
			history := models.AssetStatusHistory{
				AssetID:   asset.ID,
				Status:    *input.Status,
				EventType: models.EventStatusChanged,
				UserID:    &actor.ID,
				Location:  asset.Location,
				Details:   fmt.Sprintf("Status %s -> %s", oldStatus, *input.Status),
			}
			if err := tx.Create(&history).Error; err != nil {
				return err
			}
		}

		actionType := models.ActionEdited
		details := fmt.Sprintf("Asset %s edited", asset.Code)
		switch {
		case locationChanged:
			actionType = models.ActionTransferred
			details = fmt.Sprintf("Asset %s moved from %q to %q", asset.Code, oldLocation, *input.Location)
		case statusChanged:
			actionType = models.ActionStatusChanged
			details = fmt.Sprintf("Asset %s status %s -> %s", asset.Code, oldStatus, *input.Status)
		}

		return workflow.Append(tx, workflow.Entry{
			CompanyID:  asset.CompanyID,
			UserID:     &actor.ID,
			AdminName:  actor.Username,
			AssetID:    &asset.ID,
			AssetName:  asset.Name,
			ActionType: actionType,
			Details:    details,
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).First(&asset, "id = ?", assetID).Error; err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.Entry{
		UserID:     &actor.ID,
		CompanyID:  &asset.CompanyID,
		Action:     "ASSET_UPDATED",
		EntityType: "ASSET",
		EntityID:   &asset.ID,
		Details:    "Asset " + asset.Code + " updated",
	})
	return &asset, nil
}

func parseStatus(s string) (models.AssetStatus, error) {
	switch models.AssetStatus(s) {
	case models.AssetStatusActive, models.AssetStatusInactive,
		models.AssetStatusMaintenance, models.AssetStatusDisposed,
		models.AssetStatusOnLoan:
		return models.AssetStatus(s), nil
	}
	return "", apperr.Validation("invalid asset status %q", s)
}

type ListFilter struct {
	Status   models.AssetStatus
	Category *uuid.UUID
	Page     int
	PerPage  int
}

// ListAssets returns the company's assets, page size capped by the caller's
// role limit.
func (s *Service) ListAssets(ctx context.Context, actor authz.Actor, companyID uuid.UUID, filter ListFilter) ([]models.Asset, int64, error) {
	if err := authz.Require(actor, authz.ActionViewAssets); err != nil {
		return nil, 0, err
	}
	if !actor.InCompany(companyID) {
		return nil, 0, authz.ErrCompanyScope(companyID)
	}

	query := s.db.WithContext(ctx).Model(&models.Asset{}).
		Where("company_id = ?", companyID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != nil {
		query = query.Where("category_id = ?", *filter.Category)
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

	var rows []models.Asset
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&rows).Error
	return rows, total, err
}

// GetAsset returns one asset with its history, scoped to the caller's
// company.
func (s *Service) GetAsset(ctx context.Context, actor authz.Actor, assetID uuid.UUID) (*models.Asset, []models.AssetStatusHistory, error) {
	if err := authz.Require(actor, authz.ActionViewAssets); err != nil {
		return nil, nil, err
	}

	var asset models.Asset
	if err := s.db.WithContext(ctx).First(&asset, "id = ?", assetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("asset not found")
		}
		return nil, nil, err
	}
	if !actor.InCompany(asset.CompanyID) {
		return nil, nil, authz.ErrCompanyScope(asset.CompanyID)
	}

	var history []models.AssetStatusHistory
	err := s.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("created_at DESC").
		Find(&history).Error
	if err != nil {
		return nil, nil, err
	}
	return &asset, history, nil
}

// ScanInput describes an RFID read coming in from a handheld or gateway.
type ScanInput struct {
	RFIDTag   string
	Location  string
	ScannedAt *time.Time
	IsOffline bool
}

// Scan resolves a tag to its asset and records the read: a scanned history
// row plus an offline-scan workflow row flagged actionable when the read
// was captured offline.
func (s *Service) Scan(ctx context.Context, actor authz.Actor, input ScanInput) (*models.Asset, error) {
	if err := authz.Require(actor, authz.ActionViewAssets); err != nil {
		return nil, err
	}
	if input.RFIDTag == "" {
		return nil, apperr.Validation("rfid_tag is required")
	}

	var asset models.Asset
	if err := s.db.WithContext(ctx).First(&asset, "rfid_tag = ?", input.RFIDTag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no asset with this RFID tag")
		}
		return nil, err
	}
	if !actor.InCompany(asset.CompanyID) {
		return nil, authz.ErrCompanyScope(asset.CompanyID)
	}

	occurred := time.Now()
	if input.ScannedAt != nil {
		occurred = *input.ScannedAt
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		history := models.AssetStatusHistory{
			AssetID:   asset.ID,
			Status:    asset.Status,
			EventType: models.EventScanned,
			UserID:    &actor.ID,
			Location:  input.Location,
			Details:   "RFID scan",
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}
		return workflow.Append(tx, workflow.Entry{
			CompanyID:    asset.CompanyID,
			UserID:       &actor.ID,
			AdminName:    actor.Username,
			AssetID:      &asset.ID,
			AssetName:    asset.Name,
			ActionType:   models.ActionOfflineScan,
			Details:      fmt.Sprintf("Asset %s scanned at %q", asset.Code, input.Location),
			OccurredAt:   occurred,
			IsOffline:    input.IsOffline,
			IsActionable: input.IsOffline,
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.Entry{
		UserID:     &actor.ID,
		CompanyID:  &asset.CompanyID,
		Action:     "ASSET_SCANNED",
		EntityType: "ASSET",
		EntityID:   &asset.ID,
		Details:    "Asset " + asset.Code + " scanned",
	})
	return &asset, nil
}
