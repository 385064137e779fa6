package models

import "github.com/google/uuid"

// AssetLocation holds the single GPS fix per asset. GeofenceRadius is the
// circular boundary in meters; nil means no geofence is configured.
type AssetLocation struct {
	Base
	AssetID        uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"asset_id"`
	Latitude       float64   `gorm:"not null" json:"latitude"`
	Longitude      float64   `gorm:"not null" json:"longitude"`
	GeofenceRadius *float64  `json:"geofence_radius,omitempty"`

	// Relationships
	Asset *Asset `gorm:"foreignKey:AssetID" json:"-"`
}

func (AssetLocation) TableName() string {
	return "asset_locations"
}
