package geo

import (
	"context"
	"errors"
	"fmt"

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

type UpsertInput struct {
	AssetID        uuid.UUID
	Latitude       float64
	Longitude      float64
	GeofenceRadius *float64
}

// UpsertLocation sets or replaces the single GPS anchor for an asset.
func (s *Service) UpsertLocation(ctx context.Context, actor authz.Actor, input UpsertInput) (*models.AssetLocation, error) {
	if err := authz.Require(actor, authz.ActionManageLocations); err != nil {
		return nil, err
	}
	if input.Latitude < -90 || input.Latitude > 90 || input.Longitude < -180 || input.Longitude > 180 {
		return nil, apperr.Validation("latitude/longitude out of range")
	}
	if input.GeofenceRadius != nil && *input.GeofenceRadius <= 0 {
		return nil, apperr.Validation("geofence radius must be positive")
	}

	asset, err := s.ownedAsset(ctx, actor, input.AssetID)
	if err != nil {
		return nil, err
	}

	var location models.AssetLocation
	err = s.db.WithContext(ctx).Where("asset_id = ?", input.AssetID).First(&location).Error
	switch {
	case err == nil:
		location.Latitude = input.Latitude
		location.Longitude = input.Longitude
		location.GeofenceRadius = input.GeofenceRadius
		err = s.db.WithContext(ctx).Save(&location).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		location = models.AssetLocation{
			AssetID:        input.AssetID,
			Latitude:       input.Latitude,
			Longitude:      input.Longitude,
			GeofenceRadius: input.GeofenceRadius,
		}
		err = s.db.WithContext(ctx).Create(&location).Error
	}
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.Entry{
		UserID:     &actor.ID,
		CompanyID:  &asset.CompanyID,
		Action:     "LOCATION_SET",
		EntityType: "ASSET",
		EntityID:   &asset.ID,
		Details:    fmt.Sprintf("Location anchored for asset %s", asset.Code),
	})
	return &location, nil
}

// GetLocation returns the asset's anchor, scoped to the caller's company.
func (s *Service) GetLocation(ctx context.Context, actor authz.Actor, assetID uuid.UUID) (*models.AssetLocation, error) {
	if err := authz.Require(actor, authz.ActionViewAssets); err != nil {
		return nil, err
	}
	if _, err := s.ownedAsset(ctx, actor, assetID); err != nil {
		return nil, err
	}

	var location models.AssetLocation
	err := s.db.WithContext(ctx).Where("asset_id = ?", assetID).First(&location).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no location anchored for this asset")
		}
		return nil, err
	}
	return &location, nil
}

// CheckResult is the outcome of evaluating an observed position against the
// asset's fence.
type CheckResult struct {
	AssetID        uuid.UUID `json:"asset_id"`
	DistanceMeters float64   `json:"distance_meters"`
	Inside         bool      `json:"inside"`
	HasGeofence    bool      `json:"has_geofence"`
}

// CheckGeofence evaluates an observed position. A breach appends a moved
// history row and a workflow entry flagged actionable.
func (s *Service) CheckGeofence(ctx context.Context, actor authz.Actor, assetID uuid.UUID, lat, lon float64) (*CheckResult, error) {
	if err := authz.Require(actor, authz.ActionViewAssets); err != nil {
		return nil, err
	}

	asset, err := s.ownedAsset(ctx, actor, assetID)
	if err != nil {
		return nil, err
	}

	var location models.AssetLocation
	if err := s.db.WithContext(ctx).Where("asset_id = ?", assetID).First(&location).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no location anchored for this asset")
		}
		return nil, err
	}

	distance, inside := Within(location.Latitude, location.Longitude, location.GeofenceRadius, lat, lon)
	result := &CheckResult{
		AssetID:        assetID,
		DistanceMeters: distance,
		Inside:         inside,
		HasGeofence:    location.GeofenceRadius != nil,
	}
	if inside {
		return result, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		history := models.AssetStatusHistory{
			AssetID:   asset.ID,
			Status:    asset.Status,
			EventType: models.EventMoved,
			UserID:    &actor.ID,
			Details:   fmt.Sprintf("Geofence breach: %.0fm from anchor", distance),
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
			ActionType:   models.ActionTransferred,
			Details:      fmt.Sprintf("Asset %s left its geofence (%.0fm out)", asset.Code, distance),
			IsActionable: true,
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.Entry{
		UserID:     &actor.ID,
		CompanyID:  &asset.CompanyID,
		Action:     "GEOFENCE_BREACH",
		EntityType: "ASSET",
		EntityID:   &asset.ID,
		Details:    fmt.Sprintf("Asset %s outside geofence by %.0fm", asset.Code, distance),
	})
	return result, nil
}

func (s *Service) ownedAsset(ctx context.Context, actor authz.Actor, assetID uuid.UUID) (*models.Asset, error) {
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
	return &asset, nil
}
