package profiles

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/collectz-backend/internal/users"
	"github.com/angelmondragon/collectz-backend/pkg/db/models"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
)

// HouseholdDTO is the public shape of a household profile.
type HouseholdDTO struct {
	ID                  uuid.UUID                         `json:"id"`
	UserID              uuid.UUID                         `json:"user_id"`
	HouseholdSize       *int                              `json:"household_size,omitempty"`
	PreferredPickupDays []string                          `json:"preferred_pickup_days"`
	SubscriptionStatus  enums.HouseholdSubscriptionStatus `json:"subscription_status"`
	CreatedAt           time.Time                         `json:"created_at"`
}

// AgentDTO is the public shape of an agent profile. AverageRating is always
// rendered with two decimals.
type AgentDTO struct {
	ID                    uuid.UUID       `json:"id"`
	UserID                uuid.UUID       `json:"user_id"`
	KYCStatus             enums.KYCStatus `json:"kyc_status"`
	KYCRejectionReason    *string         `json:"kyc_rejection_reason,omitempty"`
	AverageRating         string          `json:"average_rating"`
	TotalCompletedPickups int             `json:"total_completed_pickups"`
	CreatedAt             time.Time       `json:"created_at"`
}

// MeDTO bundles the caller's user row with whichever profile their role owns.
type MeDTO struct {
	User      *users.UserDTO `json:"user"`
	Household *HouseholdDTO  `json:"household,omitempty"`
	Agent     *AgentDTO      `json:"agent,omitempty"`
}

type HouseholdStatsDTO struct {
	TotalPickups       int64                             `json:"total_pickups"`
	CompletedPickups   int64                             `json:"completed_pickups"`
	SubscriptionStatus enums.HouseholdSubscriptionStatus `json:"subscription_status"`
}

type AgentStatsDTO struct {
	TotalPickups     int64           `json:"total_pickups"`
	CompletedPickups int64           `json:"completed_pickups"`
	AverageRating    string          `json:"average_rating"`
	KYCStatus        enums.KYCStatus `json:"kyc_status"`
}

// UpdateHouseholdInput carries the editable household fields; nil leaves a
// field unchanged.
type UpdateHouseholdInput struct {
	HouseholdSize       *int
	PreferredPickupDays []string
}

// UpdateKYCInput is an admin review of an agent's documents.
type UpdateKYCInput struct {
	Status enums.KYCStatus
	Reason *string
}

var weekdays = map[string]struct{}{
	"MONDAY":    {},
	"TUESDAY":   {},
	"WEDNESDAY": {},
	"THURSDAY":  {},
	"FRIDAY":    {},
	"SATURDAY":  {},
	"SUNDAY":    {},
}

// normalizeWeekdays upper-cases and de-duplicates day names, reporting the
// first unknown entry.
func normalizeWeekdays(days []string) ([]string, string, bool) {
	out := make([]string, 0, len(days))
	seen := make(map[string]struct{}, len(days))
	for _, day := range days {
		normalized := strings.ToUpper(strings.TrimSpace(day))
		if _, ok := weekdays[normalized]; !ok {
			return nil, day, false
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out, "", true
}

func HouseholdFromModel(p *models.HouseholdProfile) *HouseholdDTO {
	if p == nil {
		return nil
	}
	days := p.PreferredPickupDays
	if days == nil {
		days = []string{}
	}
	return &HouseholdDTO{
		ID:                  p.ID,
		UserID:              p.UserID,
		HouseholdSize:       p.HouseholdSize,
		PreferredPickupDays: days,
		SubscriptionStatus:  p.SubscriptionStatus,
		CreatedAt:           p.CreatedAt,
	}
}

func AgentFromModel(p *models.AgentProfile) *AgentDTO {
	if p == nil {
		return nil
	}
	return &AgentDTO{
		ID:                    p.ID,
		UserID:                p.UserID,
		KYCStatus:             p.KYCStatus,
		KYCRejectionReason:    p.KYCRejectionReason,
		AverageRating:         p.AverageRating.StringFixed(2),
		TotalCompletedPickups: p.TotalCompletedPickups,
		CreatedAt:             p.CreatedAt,
	}
}
