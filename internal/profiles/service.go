package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/collectz-backend/internal/users"
	"github.com/angelmondragon/collectz-backend/pkg/db/models"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/collectz-backend/pkg/errors"
	"github.com/angelmondragon/collectz-backend/pkg/outbox"
	"github.com/angelmondragon/collectz-backend/pkg/outbox/payloads"
)

const (
	maxHouseholdSize   = 50
	maxRejectionReason = 500
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service is the profile directory: it maps authenticated users to their
// household or agent identity and serves profile reads and edits.
type Service interface {
	ResolveHouseholdByUser(ctx context.Context, userID uuid.UUID) (*models.HouseholdProfile, error)
	ResolveAgentByUser(ctx context.Context, userID uuid.UUID) (*models.AgentProfile, error)
	GetMe(ctx context.Context, userID uuid.UUID) (*MeDTO, error)
	HouseholdStats(ctx context.Context, userID uuid.UUID) (*HouseholdStatsDTO, error)
	AgentStats(ctx context.Context, userID uuid.UUID) (*AgentStatsDTO, error)
	UpdateHousehold(ctx context.Context, userID uuid.UUID, input UpdateHouseholdInput) (*HouseholdDTO, error)
	UpdateKYCStatus(ctx context.Context, actorUserID, agentID uuid.UUID, input UpdateKYCInput) (*AgentDTO, error)
}

type service struct {
	repo   Repository
	users  userReader
	tx     txRunner
	outbox outboxPublisher
}

func NewService(repo Repository, users userReader, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("users reader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, users: users, tx: tx, outbox: outbox}, nil
}

func (s *service) ResolveHouseholdByUser(ctx context.Context, userID uuid.UUID) (*models.HouseholdProfile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	profile, err := s.repo.FindHouseholdByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "household profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load household profile")
	}
	return profile, nil
}

func (s *service) ResolveAgentByUser(ctx context.Context, userID uuid.UUID) (*models.AgentProfile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	profile, err := s.repo.FindAgentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent profile")
	}
	return profile, nil
}

func (s *service) GetMe(ctx context.Context, userID uuid.UUID) (*MeDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	me := &MeDTO{User: users.FromModel(user)}
	switch user.Role {
	case enums.RoleHousehold:
		household, err := s.ResolveHouseholdByUser(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		me.Household = HouseholdFromModel(household)
	case enums.RoleAgent:
		agent, err := s.ResolveAgentByUser(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		me.Agent = AgentFromModel(agent)
	}
	return me, nil
}

func (s *service) HouseholdStats(ctx context.Context, userID uuid.UUID) (*HouseholdStatsDTO, error) {
	household, err := s.ResolveHouseholdByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	total, completed, err := s.countPickups(ctx, PickupCountFilter{HouseholdID: &household.ID})
	if err != nil {
		return nil, err
	}
	return &HouseholdStatsDTO{
		TotalPickups:       total,
		CompletedPickups:   completed,
		SubscriptionStatus: household.SubscriptionStatus,
	}, nil
}

func (s *service) AgentStats(ctx context.Context, userID uuid.UUID) (*AgentStatsDTO, error) {
	agent, err := s.ResolveAgentByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	total, completed, err := s.countPickups(ctx, PickupCountFilter{AgentID: &agent.ID})
	if err != nil {
		return nil, err
	}
	return &AgentStatsDTO{
		TotalPickups:     total,
		CompletedPickups: completed,
		AverageRating:    agent.AverageRating.StringFixed(2),
		KYCStatus:        agent.KYCStatus,
	}, nil
}

func (s *service) countPickups(ctx context.Context, filter PickupCountFilter) (int64, int64, error) {
	total, err := s.repo.CountPickups(ctx, filter)
	if err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pickups")
	}
	completedStatus := enums.PickupStatusCompleted
	filter.Status = &completedStatus
	completed, err := s.repo.CountPickups(ctx, filter)
	if err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count completed pickups")
	}
	return total, completed, nil
}

func (s *service) UpdateHousehold(ctx context.Context, userID uuid.UUID, input UpdateHouseholdInput) (*HouseholdDTO, error) {
	household, err := s.ResolveHouseholdByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.HouseholdSize != nil {
		if *input.HouseholdSize < 1 || *input.HouseholdSize > maxHouseholdSize {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("household size must be between 1 and %d", maxHouseholdSize))
		}
		household.HouseholdSize = input.HouseholdSize
	}
	if input.PreferredPickupDays != nil {
		days, bad, ok := normalizeWeekdays(input.PreferredPickupDays)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown pickup day %q", bad))
		}
		household.PreferredPickupDays = days
	}

	if err := s.repo.SaveHouseholdPreferences(ctx, household); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "household profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update household profile")
	}
	return HouseholdFromModel(household), nil
}

// UpdateKYCStatus records an admin review and emits agent_kyc_changed in the
// same transaction. A rejection must carry a reason; any other status clears it.
func (s *service) UpdateKYCStatus(ctx context.Context, actorUserID, agentID uuid.UUID, input UpdateKYCInput) (*AgentDTO, error) {
	if agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid kyc status")
	}

	var reason *string
	if input.Status == enums.KYCStatusRejected {
		if input.Reason == nil || strings.TrimSpace(*input.Reason) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
		}
		trimmed := strings.TrimSpace(*input.Reason)
		if len(trimmed) > maxRejectionReason {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason too long")
		}
		reason = &trimmed
	}

	var updated *models.AgentProfile
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		agent, err := repo.FindAgentByID(ctx, agentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "agent profile not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent profile")
		}
		if err := repo.UpdateKYC(ctx, agent.ID, input.Status, reason); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update kyc status")
		}
		agent.KYCStatus = input.Status
		agent.KYCRejectionReason = reason

		data := payloads.AgentKYCChangedEvent{
			AgentID:     agent.ID,
			AgentUserID: agent.UserID,
			Status:      input.Status,
		}
		if reason != nil {
			data.Reason = *reason
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventAgentKYCChanged,
			AggregateType: enums.AggregateAgentProfile,
			AggregateID:   agent.ID,
			Actor:         &outbox.ActorRef{UserID: actorUserID, Role: string(enums.RoleAdmin)},
			Data:          data,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit kyc event")
		}
		updated = agent
		return nil
	})
	if err != nil {
		return nil, err
	}
	return AgentFromModel(updated), nil
}

// AgentStatsWriter adapts the repository to the transactional counters the
// pickup lifecycle and the rating aggregator update.
type AgentStatsWriter struct {
	repo Repository
}

func NewAgentStatsWriter(repo Repository) *AgentStatsWriter {
	return &AgentStatsWriter{repo: repo}
}

func (w *AgentStatsWriter) IncrementCompletedPickups(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) error {
	return w.repo.WithTx(tx).IncrementCompletedPickups(ctx, agentID)
}

func (w *AgentStatsWriter) SetAverageRating(ctx context.Context, tx *gorm.DB, agentID uuid.UUID, average decimal.Decimal) error {
	return w.repo.WithTx(tx).SetAverageRating(ctx, agentID, average)
}
