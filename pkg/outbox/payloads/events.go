package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/collectz-backend/pkg/enums"
)

// PickupRequestedEvent is emitted when a household books a pickup.
type PickupRequestedEvent struct {
	PickupID      uuid.UUID       `json:"pickup_id"`
	HouseholdID   uuid.UUID       `json:"household_id"`
	TrackingLabel string          `json:"tracking_label"`
	ScheduledDate time.Time       `json:"scheduled_date"`
	TimeWindow    string          `json:"time_window"`
	WasteType     enums.WasteType `json:"waste_type"`
}

// PickupTransitionEvent covers accept, start, complete and cancel. The
// recipient fields let consumers notify without another lookup.
type PickupTransitionEvent struct {
	PickupID        uuid.UUID          `json:"pickup_id"`
	TrackingLabel   string             `json:"tracking_label"`
	HouseholdID     uuid.UUID          `json:"household_id"`
	HouseholdUserID uuid.UUID          `json:"household_user_id"`
	AgentID         *uuid.UUID         `json:"agent_id,omitempty"`
	AgentUserID     *uuid.UUID         `json:"agent_user_id,omitempty"`
	FromStatus      enums.PickupStatus `json:"from_status"`
	Status          enums.PickupStatus `json:"status"`
	BinID           *uuid.UUID         `json:"bin_id,omitempty"`
	At              time.Time          `json:"at"`
}

// PickupRatedEvent is emitted once per pickup when the household rates it.
type PickupRatedEvent struct {
	PickupID      uuid.UUID `json:"pickup_id"`
	RatingID      uuid.UUID `json:"rating_id"`
	TrackingLabel string    `json:"tracking_label"`
	HouseholdID   uuid.UUID `json:"household_id"`
	AgentID       uuid.UUID `json:"agent_id"`
	AgentUserID   uuid.UUID `json:"agent_user_id"`
	Score         int       `json:"score"`
	AverageRating string    `json:"average_rating"`
}

// AgentKYCChangedEvent tells the agent an admin reviewed their documents.
type AgentKYCChangedEvent struct {
	AgentID     uuid.UUID       `json:"agent_id"`
	AgentUserID uuid.UUID       `json:"agent_user_id"`
	Status      enums.KYCStatus `json:"status"`
	Reason      string          `json:"reason,omitempty"`
}
