package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/collectz-backend/pkg/enums"
)

// PickupRequest is one scheduled collection job. Status moves only through the
// pickups service; rows are never deleted.
type PickupRequest struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	HouseholdID   uuid.UUID          `gorm:"column:household_id;type:uuid;not null"`
	AgentID       *uuid.UUID         `gorm:"column:agent_id;type:uuid"`
	BinID         *uuid.UUID         `gorm:"column:bin_id;type:uuid"`
	Status        enums.PickupStatus `gorm:"column:status;type:text;not null;default:REQUESTED"`
	ScheduledDate time.Time          `gorm:"column:scheduled_date;type:date;not null"`
	TimeWindow    string             `gorm:"column:time_window;not null"`
	WasteType     enums.WasteType    `gorm:"column:waste_type;type:text;not null;default:MIXED"`
	Notes         *string            `gorm:"column:notes"`
	PhotoProofURL *string            `gorm:"column:photo_proof_url"`
	TrackingLabel string             `gorm:"column:tracking_label;not null"`
	AcceptedAt    *time.Time         `gorm:"column:accepted_at"`
	StartedAt     *time.Time         `gorm:"column:started_at"`
	CompletedAt   *time.Time         `gorm:"column:completed_at"`
	CanceledAt    *time.Time         `gorm:"column:canceled_at"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`

	Household *HouseholdProfile `gorm:"foreignKey:HouseholdID"`
	Agent     *AgentProfile     `gorm:"foreignKey:AgentID"`
	Bin       *CommunityBin     `gorm:"foreignKey:BinID"`
	Rating    *Rating           `gorm:"foreignKey:PickupRequestID"`
}

func (p *PickupRequest) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
