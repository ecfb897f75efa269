package pickups

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/collectz-backend/pkg/db/models"
	"github.com/angelmondragon/collectz-backend/pkg/pagination"
)

// Repository defines persistence operations for pickup requests. Every
// transition is one conditional UPDATE and reports whether a row matched.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, pickup *models.PickupRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PickupRequest, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*models.PickupRequest, error)
	Accept(ctx context.Context, id, agentID uuid.UUID, at time.Time) (bool, error)
	Start(ctx context.Context, id, agentID uuid.UUID, at time.Time) (bool, error)
	Complete(ctx context.Context, id, agentID uuid.UUID, change CompletionChange) (bool, error)
	Cancel(ctx context.Context, id, householdID uuid.UUID, at time.Time) (bool, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (*Page, error)
	ListAvailable(ctx context.Context, params pagination.Params) (*Page, error)
}

// CompletionChange is the column set written by Complete.
type CompletionChange struct {
	At            time.Time
	PhotoProofURL string
	BinID         *uuid.UUID
}

// Page is one slice of a cursor-paginated query.
type Page struct {
	Items      []models.PickupRequest
	NextCursor string
}
