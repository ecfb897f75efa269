package bins

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/collectz-backend/internal/repo"
	"github.com/angelmondragon/collectz-backend/pkg/db/models"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
)

// Repository persists community bins.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, bin *models.CommunityBin) error {
	return r.DB(ctx).Create(bin).Error
}

// FindByID returns gorm.ErrRecordNotFound when the bin does not exist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CommunityBin, error) {
	var bin models.CommunityBin
	if err := r.DB(ctx).Where("id = ?", id).First(&bin).Error; err != nil {
		return nil, err
	}
	return &bin, nil
}

func (r *Repository) List(ctx context.Context, capacity *enums.BinCapacityLevel) ([]models.CommunityBin, error) {
	query := r.DB(ctx).Model(&models.CommunityBin{})
	if capacity != nil {
		query = query.Where("capacity_level = ?", *capacity)
	}
	var bins []models.CommunityBin
	err := query.Order("location_name ASC").Order("id ASC").Find(&bins).Error
	return bins, err
}

func (r *Repository) UpdateCapacity(ctx context.Context, id uuid.UUID, level enums.BinCapacityLevel) error {
	return r.update(ctx, id, map[string]any{"capacity_level": level})
}

// MarkEmptied records a collection run and resets the fill level.
func (r *Repository) MarkEmptied(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"last_emptied_at": at,
		"capacity_level":  enums.BinCapacityLow,
	})
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.CommunityBin{}).Count(&count).Error
	return count, err
}

func (r *Repository) update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.DB(ctx).Model(&models.CommunityBin{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
