package stats

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/collectz-backend/pkg/enums"
)

// OverviewDTO summarises platform volume for the admin dashboard.
type OverviewDTO struct {
	TotalPickups     int64 `json:"total_pickups"`
	CompletedPickups int64 `json:"completed_pickups"`
	Households       int64 `json:"households"`
	Agents           int64 `json:"agents"`
	Bins             int64 `json:"bins"`
}

// PickupStatsRequest bounds the report by pickup creation time. From is
// inclusive and To exclusive; either may be nil.
type PickupStatsRequest struct {
	From *time.Time
	To   *time.Time
}

// PickupStatsDTO counts pickups per status. Every status is present.
type PickupStatsDTO struct {
	From     *time.Time                   `json:"from,omitempty"`
	To       *time.Time                   `json:"to,omitempty"`
	Total    int64                        `json:"total"`
	ByStatus map[enums.PickupStatus]int64 `json:"by_status"`
}

// AgentPerformanceDTO is one row of the agent leaderboard.
type AgentPerformanceDTO struct {
	AgentID               uuid.UUID       `json:"agent_id"`
	Name                  string          `json:"name"`
	KYCStatus             enums.KYCStatus `json:"kyc_status"`
	AverageRating         string          `json:"average_rating"`
	TotalCompletedPickups int             `json:"total_completed_pickups"`
}
