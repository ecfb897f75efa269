package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/collectz-backend/pkg/enums"
)

// AgentProfile identifies a collection worker and carries the reputation
// aggregates maintained by the pickup lifecycle.
type AgentProfile struct {
	ID                     uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID                 uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	KYCStatus              enums.KYCStatus `gorm:"column:kyc_status;type:text;not null;default:PENDING"`
	IDDocumentURL          *string         `gorm:"column:id_document_url"`
	DriverLicenseURL       *string         `gorm:"column:driver_license_url"`
	VehicleRegistrationURL *string         `gorm:"column:vehicle_registration_url"`
	KYCRejectionReason     *string         `gorm:"column:kyc_rejection_reason"`
	AverageRating          decimal.Decimal `gorm:"column:average_rating;type:numeric(3,2);not null;default:0"`
	TotalCompletedPickups  int             `gorm:"column:total_completed_pickups;not null;default:0"`
	CreatedAt              time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	User *User `gorm:"foreignKey:UserID"`
}

func (a *AgentProfile) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.KYCStatus == "" {
		a.KYCStatus = enums.KYCStatusPending
	}
	return nil
}
