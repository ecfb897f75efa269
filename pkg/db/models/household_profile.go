package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/collectz-backend/pkg/enums"
)

// HouseholdProfile identifies a waste-generating customer.
type HouseholdProfile struct {
	ID                  uuid.UUID                         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              uuid.UUID                         `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	HouseholdSize       *int                              `gorm:"column:household_size"`
	PreferredPickupDays []string                          `gorm:"column:preferred_pickup_days;serializer:json"`
	SubscriptionStatus  enums.HouseholdSubscriptionStatus `gorm:"column:subscription_status;type:text;not null;default:NONE"`
	CreatedAt           time.Time                         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                         `gorm:"column:updated_at;autoUpdateTime"`

	User *User `gorm:"foreignKey:UserID"`
}

func (h *HouseholdProfile) BeforeCreate(*gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.SubscriptionStatus == "" {
		h.SubscriptionStatus = enums.SubscriptionStatusNone
	}
	return nil
}
