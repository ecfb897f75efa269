package ratings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/collectz-backend/pkg/db"
	"github.com/angelmondragon/collectz-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/collectz-backend/pkg/errors"
)

const uniquePickupConstraint = "uq_ratings_pickup_request"

// Repository persists ratings and answers the aggregate queries the
// aggregator needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, rating *models.Rating) error
	FindByPickup(ctx context.Context, pickupID uuid.UUID) (*models.Rating, error)
	SumAndCount(ctx context.Context, agentID uuid.UUID) (int64, int64, error)
	ListRatedAgentIDs(ctx context.Context) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the rating. A second rating for the same pickup is rejected
// by the unique constraint and surfaces as INVALID_STATE.
func (r *repository) Create(ctx context.Context, rating *models.Rating) error {
	err := r.db.WithContext(ctx).Create(rating).Error
	if err == nil {
		return nil
	}
	if db.IsUniqueViolation(err, uniquePickupConstraint) {
		return pkgerrors.Wrap(pkgerrors.CodeInvalidState, err, "pickup already rated")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert rating")
}

func (r *repository) FindByPickup(ctx context.Context, pickupID uuid.UUID) (*models.Rating, error) {
	var rating models.Rating
	if err := r.db.WithContext(ctx).Where("pickup_request_id = ?", pickupID).First(&rating).Error; err != nil {
		return nil, err
	}
	return &rating, nil
}

type sumCountRow struct {
	Total int64
	Count int64
}

// SumAndCount scans every rating the agent has received.
func (r *repository) SumAndCount(ctx context.Context, agentID uuid.UUID) (int64, int64, error) {
	var row sumCountRow
	err := r.db.WithContext(ctx).
		Model(&models.Rating{}).
		Select("COALESCE(SUM(score), 0) AS total, COUNT(*) AS count").
		Where("agent_id = ?", agentID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Total, row.Count, nil
}

func (r *repository) ListRatedAgentIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Rating{}).
		Distinct("agent_id").
		Order("agent_id").
		Pluck("agent_id", &ids).Error
	return ids, err
}
