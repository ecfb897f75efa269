package profiles

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/collectz-backend/pkg/db/models"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
)

// Repository persists household and agent profiles plus the agent
// reputation aggregates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateHousehold(ctx context.Context, profile *models.HouseholdProfile) error
	CreateAgent(ctx context.Context, profile *models.AgentProfile) error
	FindHouseholdByUserID(ctx context.Context, userID uuid.UUID) (*models.HouseholdProfile, error)
	FindAgentByUserID(ctx context.Context, userID uuid.UUID) (*models.AgentProfile, error)
	FindAgentByID(ctx context.Context, id uuid.UUID) (*models.AgentProfile, error)
	SaveHouseholdPreferences(ctx context.Context, profile *models.HouseholdProfile) error
	UpdateKYC(ctx context.Context, agentID uuid.UUID, status enums.KYCStatus, reason *string) error
	IncrementCompletedPickups(ctx context.Context, agentID uuid.UUID) error
	SetAverageRating(ctx context.Context, agentID uuid.UUID, average decimal.Decimal) error
	CountPickups(ctx context.Context, filter PickupCountFilter) (int64, error)
	CountHouseholds(ctx context.Context) (int64, error)
	CountAgents(ctx context.Context) (int64, error)
}

// PickupCountFilter narrows CountPickups to one owner and optionally a status.
type PickupCountFilter struct {
	HouseholdID *uuid.UUID
	AgentID     *uuid.UUID
	Status      *enums.PickupStatus
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a profiles repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateHousehold(ctx context.Context, profile *models.HouseholdProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *repository) CreateAgent(ctx context.Context, profile *models.AgentProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *repository) FindHouseholdByUserID(ctx context.Context, userID uuid.UUID) (*models.HouseholdProfile, error) {
	var profile models.HouseholdProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) FindAgentByUserID(ctx context.Context, userID uuid.UUID) (*models.AgentProfile, error) {
	var profile models.AgentProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) FindAgentByID(ctx context.Context, id uuid.UUID) (*models.AgentProfile, error) {
	var profile models.AgentProfile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// SaveHouseholdPreferences writes the editable household fields. Updates goes
// through the struct so the pickup days serializer applies.
func (r *repository) SaveHouseholdPreferences(ctx context.Context, profile *models.HouseholdProfile) error {
	res := r.db.WithContext(ctx).
		Model(profile).
		Select("household_size", "preferred_pickup_days", "updated_at").
		Updates(profile)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) UpdateKYC(ctx context.Context, agentID uuid.UUID, status enums.KYCStatus, reason *string) error {
	res := r.db.WithContext(ctx).
		Model(&models.AgentProfile{}).
		Where("id = ?", agentID).
		Updates(map[string]any{
			"kyc_status":           status,
			"kyc_rejection_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IncrementCompletedPickups bumps the counter in the database so concurrent
// completions never lose an update.
func (r *repository) IncrementCompletedPickups(ctx context.Context, agentID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.AgentProfile{}).
		Where("id = ?", agentID).
		UpdateColumn("total_completed_pickups", gorm.Expr("total_completed_pickups + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) SetAverageRating(ctx context.Context, agentID uuid.UUID, average decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.AgentProfile{}).
		Where("id = ?", agentID).
		UpdateColumn("average_rating", average)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CountPickups(ctx context.Context, filter PickupCountFilter) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PickupRequest{})
	if filter.HouseholdID != nil {
		query = query.Where("household_id = ?", *filter.HouseholdID)
	}
	if filter.AgentID != nil {
		query = query.Where("agent_id = ?", *filter.AgentID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *repository) CountHouseholds(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.HouseholdProfile{}).Count(&count).Error
	return count, err
}

func (r *repository) CountAgents(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AgentProfile{}).Count(&count).Error
	return count, err
}
