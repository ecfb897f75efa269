package stats

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/collectz-backend/pkg/db/models"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
)

// Repository runs the aggregate queries behind the admin reports.
type Repository interface {
	CountPickups(ctx context.Context, status *enums.PickupStatus) (int64, error)
	CountHouseholds(ctx context.Context) (int64, error)
	CountAgents(ctx context.Context) (int64, error)
	CountBins(ctx context.Context) (int64, error)
	PickupStatusCounts(ctx context.Context, from, to *time.Time) ([]StatusCount, error)
	TopAgents(ctx context.Context, limit int) ([]models.AgentProfile, error)
}

// StatusCount is one GROUP BY status row.
type StatusCount struct {
	Status enums.PickupStatus
	Total  int64
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the stats queries to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CountPickups(ctx context.Context, status *enums.PickupStatus) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PickupRequest{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *repository) CountHouseholds(ctx context.Context) (int64, error) {
	return r.count(ctx, &models.HouseholdProfile{})
}

func (r *repository) CountAgents(ctx context.Context) (int64, error) {
	return r.count(ctx, &models.AgentProfile{})
}

func (r *repository) CountBins(ctx context.Context) (int64, error) {
	return r.count(ctx, &models.CommunityBin{})
}

func (r *repository) count(ctx context.Context, model any) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(model).Count(&count).Error
	return count, err
}

func (r *repository) PickupStatusCounts(ctx context.Context, from, to *time.Time) ([]StatusCount, error) {
	query := r.db.WithContext(ctx).
		Model(&models.PickupRequest{}).
		Select("status, COUNT(*) AS total")
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}

	var rows []StatusCount
	if err := query.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) TopAgents(ctx context.Context, limit int) ([]models.AgentProfile, error) {
	var agents []models.AgentProfile
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("average_rating DESC").
		Order("total_completed_pickups DESC").
		Order("id ASC").
		Limit(limit).
		Find(&agents).Error
	return agents, err
}
