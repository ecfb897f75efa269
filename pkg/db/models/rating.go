package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Rating is a household's one-time score for a completed pickup. AgentID is a
// copy of the pickup's agent at rating time.
type Rating struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PickupRequestID uuid.UUID `gorm:"column:pickup_request_id;type:uuid;not null;uniqueIndex:uq_ratings_pickup_request"`
	HouseholdID     uuid.UUID `gorm:"column:household_id;type:uuid;not null"`
	AgentID         uuid.UUID `gorm:"column:agent_id;type:uuid;not null"`
	Score           int       `gorm:"column:score;not null"`
	Comment         *string   `gorm:"column:comment"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *Rating) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
