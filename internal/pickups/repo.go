package pickups

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/collectz-backend/pkg/db/models"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/collectz-backend/pkg/errors"
	"github.com/angelmondragon/collectz-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a pickups repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, pickup *models.PickupRequest) error {
	return r.db.WithContext(ctx).Create(pickup).Error
}

// FindByID loads the pickup with its household and agent profiles, which is
// what transitions need to address events.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PickupRequest, error) {
	var pickup models.PickupRequest
	err := r.db.WithContext(ctx).
		Preload("Household").
		Preload("Agent").
		Where("id = ?", id).
		First(&pickup).Error
	if err != nil {
		return nil, err
	}
	return &pickup, nil
}

func (r *repository) FindDetail(ctx context.Context, id uuid.UUID) (*models.PickupRequest, error) {
	var pickup models.PickupRequest
	err := detailPreloads(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&pickup).Error
	if err != nil {
		return nil, err
	}
	return &pickup, nil
}

func (r *repository) Accept(ctx context.Context, id, agentID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PickupRequest{}).
		Where("id = ? AND status = ? AND agent_id IS NULL", id, enums.PickupStatusRequested).
		Updates(map[string]any{
			"agent_id":    agentID,
			"status":      enums.PickupStatusAssigned,
			"accepted_at": at,
			"updated_at":  at,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *repository) Start(ctx context.Context, id, agentID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PickupRequest{}).
		Where("id = ? AND status = ? AND agent_id = ?", id, enums.PickupStatusAssigned, agentID).
		Updates(map[string]any{
			"status":     enums.PickupStatusOnGoing,
			"started_at": at,
			"updated_at": at,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *repository) Complete(ctx context.Context, id, agentID uuid.UUID, change CompletionChange) (bool, error) {
	updates := map[string]any{
		"status":          enums.PickupStatusCompleted,
		"completed_at":    change.At,
		"photo_proof_url": change.PhotoProofURL,
		"updated_at":      change.At,
	}
	if change.BinID != nil {
		updates["bin_id"] = *change.BinID
	}
	res := r.db.WithContext(ctx).
		Model(&models.PickupRequest{}).
		Where("id = ? AND status = ? AND agent_id = ?", id, enums.PickupStatusOnGoing, agentID).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

func (r *repository) Cancel(ctx context.Context, id, householdID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PickupRequest{}).
		Where("id = ? AND household_id = ? AND status IN ?", id, householdID,
			[]enums.PickupStatus{enums.PickupStatusRequested, enums.PickupStatusAssigned}).
		Updates(map[string]any{
			"status":      enums.PickupStatusCanceled,
			"canceled_at": at,
			"updated_at":  at,
		})
	return res.RowsAffected == 1, res.Error
}

// List pages through the filtered pickups newest scheduled date first.
func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) (*Page, error) {
	cursor, err := parseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := detailPreloads(r.db.WithContext(ctx)).Model(&models.PickupRequest{})
	if filter.HouseholdID != nil {
		query = query.Where("household_id = ?", *filter.HouseholdID)
	}
	if filter.AgentID != nil {
		query = query.Where("agent_id = ?", *filter.AgentID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if cursor != nil {
		query = query.Where("(scheduled_date < ?) OR (scheduled_date = ? AND id <= ?)", cursor.At, cursor.At, cursor.ID)
	}

	var rows []models.PickupRequest
	err = query.
		Order("scheduled_date DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toPage(rows, params.Limit), nil
}

// ListAvailable pages through the unassigned queue, soonest scheduled date first.
func (r *repository) ListAvailable(ctx context.Context, params pagination.Params) (*Page, error) {
	cursor, err := parseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Preload("Household.User").
		Model(&models.PickupRequest{}).
		Where("status = ? AND agent_id IS NULL", enums.PickupStatusRequested)
	if cursor != nil {
		query = query.Where("(scheduled_date > ?) OR (scheduled_date = ? AND id >= ?)", cursor.At, cursor.At, cursor.ID)
	}

	var rows []models.PickupRequest
	err = query.
		Order("scheduled_date ASC").
		Order("id ASC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toPage(rows, params.Limit), nil
}

func detailPreloads(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Household.User").
		Preload("Agent.User").
		Preload("Bin").
		Preload("Rating")
}

func parseCursor(raw string) (*pagination.Cursor, error) {
	cursor, err := pagination.ParseCursor(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return cursor, nil
}

func toPage(rows []models.PickupRequest, limit int) *Page {
	items, next := pagination.Page(rows, limit)
	page := &Page{Items: items}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{At: next.ScheduledDate, ID: next.ID})
	}
	return page
}
