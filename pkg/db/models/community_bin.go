package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/collectz-backend/pkg/enums"
)

// CommunityBin is a shared drop-off point a completed pickup may be emptied into.
type CommunityBin struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LocationName  string                 `gorm:"column:location_name;not null"`
	GPSLat        decimal.Decimal        `gorm:"column:gps_lat;type:numeric(10,7);not null"`
	GPSLng        decimal.Decimal        `gorm:"column:gps_lng;type:numeric(10,7);not null"`
	CapacityLevel enums.BinCapacityLevel `gorm:"column:capacity_level;type:text;not null;default:LOW"`
	LastEmptiedAt *time.Time             `gorm:"column:last_emptied_at"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *CommunityBin) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CapacityLevel == "" {
		b.CapacityLevel = enums.BinCapacityLow
	}
	return nil
}
