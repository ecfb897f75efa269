package pickups

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/collectz-backend/pkg/db/models"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
	"github.com/angelmondragon/collectz-backend/pkg/pagination"
)

// CreatePickupInput is what a household submits to book a collection.
// ScheduledDate is reduced to its calendar day in UTC.
type CreatePickupInput struct {
	ScheduledDate time.Time
	TimeWindow    string
	WasteType     *enums.WasteType
	Notes         *string
}

// CompletePickupInput carries the agent's proof of collection.
type CompletePickupInput struct {
	PhotoProofURL string
	BinID         *uuid.UUID
}

// RatePickupInput is the household's score for a completed pickup.
type RatePickupInput struct {
	Score   int
	Comment *string
}

// ListParams describe the list endpoints' query string.
type ListParams struct {
	pagination.Params
	Scope  string
	Status *enums.PickupStatus
}

// HouseholdSummary is the household projection embedded in a pickup.
type HouseholdSummary struct {
	ID      uuid.UUID `json:"id"`
	UserID  uuid.UUID `json:"user_id"`
	Name    string    `json:"name,omitempty"`
	Phone   string    `json:"phone,omitempty"`
	Address *string   `json:"address,omitempty"`
	Quarter *string   `json:"quarter,omitempty"`
}

// AgentSummary is the agent projection embedded in a pickup.
type AgentSummary struct {
	ID                    uuid.UUID `json:"id"`
	UserID                uuid.UUID `json:"user_id"`
	Name                  string    `json:"name,omitempty"`
	Phone                 string    `json:"phone,omitempty"`
	AverageRating         string    `json:"average_rating"`
	TotalCompletedPickups int       `json:"total_completed_pickups"`
}

type BinSummary struct {
	ID            uuid.UUID              `json:"id"`
	LocationName  string                 `json:"location_name"`
	CapacityLevel enums.BinCapacityLevel `json:"capacity_level"`
}

type RatingDTO struct {
	ID        uuid.UUID `json:"id"`
	PickupID  uuid.UUID `json:"pickup_id"`
	AgentID   uuid.UUID `json:"agent_id"`
	Score     int       `json:"score"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PickupDTO is the transport shape of a pickup request. Projections are
// present only when the query loaded them.
type PickupDTO struct {
	ID            uuid.UUID          `json:"id"`
	TrackingLabel string             `json:"tracking_label"`
	Status        enums.PickupStatus `json:"status"`
	ScheduledDate string             `json:"scheduled_date"`
	TimeWindow    string             `json:"time_window"`
	WasteType     enums.WasteType    `json:"waste_type"`
	Notes         *string            `json:"notes,omitempty"`
	PhotoProofURL *string            `json:"photo_proof_url,omitempty"`
	HouseholdID   uuid.UUID          `json:"household_id"`
	AgentID       *uuid.UUID         `json:"agent_id,omitempty"`
	BinID         *uuid.UUID         `json:"bin_id,omitempty"`
	AcceptedAt    *time.Time         `json:"accepted_at,omitempty"`
	StartedAt     *time.Time         `json:"started_at,omitempty"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
	CanceledAt    *time.Time         `json:"canceled_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	Household     *HouseholdSummary  `json:"household,omitempty"`
	Agent         *AgentSummary      `json:"agent,omitempty"`
	Bin           *BinSummary        `json:"bin,omitempty"`
	Rating        *RatingDTO         `json:"rating,omitempty"`
}

// PickupList wraps one page of pickups plus the cursor of the next page.
type PickupList struct {
	Pickups    []PickupDTO `json:"pickups"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// RateResult returns the stored rating and the agent's refreshed average.
type RateResult struct {
	Rating             RatingDTO `json:"rating"`
	AgentAverageRating string    `json:"agent_average_rating"`
}

const scheduledDateLayout = "2006-01-02"

func FromModel(p *models.PickupRequest) PickupDTO {
	dto := PickupDTO{
		ID:            p.ID,
		TrackingLabel: p.TrackingLabel,
		Status:        p.Status,
		ScheduledDate: p.ScheduledDate.UTC().Format(scheduledDateLayout),
		TimeWindow:    p.TimeWindow,
		WasteType:     p.WasteType,
		Notes:         p.Notes,
		PhotoProofURL: p.PhotoProofURL,
		HouseholdID:   p.HouseholdID,
		AgentID:       p.AgentID,
		BinID:         p.BinID,
		AcceptedAt:    p.AcceptedAt,
		StartedAt:     p.StartedAt,
		CompletedAt:   p.CompletedAt,
		CanceledAt:    p.CanceledAt,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.Household != nil {
		summary := &HouseholdSummary{ID: p.Household.ID, UserID: p.Household.UserID}
		if u := p.Household.User; u != nil {
			summary.Name = u.Name
			summary.Phone = u.Phone
			summary.Address = u.Address
			summary.Quarter = u.Quarter
		}
		dto.Household = summary
	}
	if p.Agent != nil {
		summary := &AgentSummary{
			ID:                    p.Agent.ID,
			UserID:                p.Agent.UserID,
			AverageRating:         p.Agent.AverageRating.StringFixed(2),
			TotalCompletedPickups: p.Agent.TotalCompletedPickups,
		}
		if u := p.Agent.User; u != nil {
			summary.Name = u.Name
			summary.Phone = u.Phone
		}
		dto.Agent = summary
	}
	if p.Bin != nil {
		dto.Bin = &BinSummary{ID: p.Bin.ID, LocationName: p.Bin.LocationName, CapacityLevel: p.Bin.CapacityLevel}
	}
	if p.Rating != nil {
		rating := RatingFromModel(p.Rating)
		dto.Rating = &rating
	}
	return dto
}

func RatingFromModel(r *models.Rating) RatingDTO {
	return RatingDTO{
		ID:        r.ID,
		PickupID:  r.PickupRequestID,
		AgentID:   r.AgentID,
		Score:     r.Score,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}
