package pickups

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/collectz-backend/internal/ratings"
	"github.com/angelmondragon/collectz-backend/pkg/db/models"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/collectz-backend/pkg/errors"
	"github.com/angelmondragon/collectz-backend/pkg/logger"
	"github.com/angelmondragon/collectz-backend/pkg/metrics"
	"github.com/angelmondragon/collectz-backend/pkg/outbox"
	"github.com/angelmondragon/collectz-backend/pkg/outbox/payloads"
)

const (
	maxTimeWindowLength = 50
	maxNotesLength      = 1000
	maxCommentLength    = 1000
	maxPhotoURLLength   = 2048
	minScore            = 1
	maxScore            = 5
)

const (
	transitionCreate   = "create"
	transitionAccept   = "accept"
	transitionStart    = "start"
	transitionComplete = "complete"
	transitionCancel   = "cancel"
	transitionRate     = "rate"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type agentCounter interface {
	IncrementCompletedPickups(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) error
}

type ratingAggregator interface {
	Recompute(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) (decimal.Decimal, error)
}

type binLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.CommunityBin, error)
}

type transitionRecorder interface {
	ObserveTransition(transition, outcome string)
	ObserveRating(score int)
}

// Service runs the pickup lifecycle. Each command is a single conditional
// update; when it matches nothing the pickup is re-read to report why.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreatePickupInput) (*PickupDTO, error)
	Get(ctx context.Context, pickupID uuid.UUID) (*PickupDTO, error)
	ListScoped(ctx context.Context, actor Actor, params ListParams) (*PickupList, error)
	ListAvailable(ctx context.Context, params ListParams) (*PickupList, error)
	Accept(ctx context.Context, pickupID, userID uuid.UUID) (*PickupDTO, error)
	Start(ctx context.Context, pickupID, userID uuid.UUID) (*PickupDTO, error)
	Complete(ctx context.Context, pickupID, userID uuid.UUID, input CompletePickupInput) (*PickupDTO, error)
	Cancel(ctx context.Context, pickupID, userID uuid.UUID) (*PickupDTO, error)
	Rate(ctx context.Context, pickupID, userID uuid.UUID, input RatePickupInput) (*RateResult, error)
}

// Deps groups the collaborators of the lifecycle service.
type Deps struct {
	Repo       Repository
	Profiles   profileDirectory
	Ratings    ratings.Repository
	Aggregator ratingAggregator
	Agents     agentCounter
	Bins       binLookup
	Tx         txRunner
	Outbox     outboxPublisher
	Metrics    transitionRecorder
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo       Repository
	profiles   profileDirectory
	ratings    ratings.Repository
	aggregator ratingAggregator
	agents     agentCounter
	bins       binLookup
	tx         txRunner
	outbox     outboxPublisher
	metrics    transitionRecorder
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("pickups repository required")
	}
	if deps.Profiles == nil {
		return nil, fmt.Errorf("profile directory required")
	}
	if deps.Ratings == nil {
		return nil, fmt.Errorf("ratings repository required")
	}
	if deps.Aggregator == nil {
		return nil, fmt.Errorf("rating aggregator required")
	}
	if deps.Agents == nil {
		return nil, fmt.Errorf("agent counter required")
	}
	if deps.Bins == nil {
		return nil, fmt.Errorf("bin lookup required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	svc := &service{
		repo:       deps.Repo,
		profiles:   deps.Profiles,
		ratings:    deps.Ratings,
		aggregator: deps.Aggregator,
		agents:     deps.Agents,
		bins:       deps.Bins,
		tx:         deps.Tx,
		outbox:     deps.Outbox,
		metrics:    deps.Metrics,
		logg:       deps.Logger,
		now:        deps.Now,
	}
	if svc.metrics == nil {
		svc.metrics = metrics.NewPickupMetrics(nil)
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreatePickupInput) (dto *PickupDTO, err error) {
	defer func() { s.observe(transitionCreate, err) }()

	household, err := s.profiles.ResolveHouseholdByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	pickup, err := buildPickup(household.ID, input)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, pickup); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pickup")
		}
		return s.emit(ctx, tx, enums.EventPickupRequested, pickup.ID, userID, enums.RoleHousehold, payloads.PickupRequestedEvent{
			PickupID:      pickup.ID,
			HouseholdID:   pickup.HouseholdID,
			TrackingLabel: pickup.TrackingLabel,
			ScheduledDate: pickup.ScheduledDate,
			TimeWindow:    pickup.TimeWindow,
			WasteType:     pickup.WasteType,
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithPickupID(ctx, pickup.ID.String())
	s.logg.Info(logCtx, "pickup requested")
	out := FromModel(pickup)
	return &out, nil
}

func buildPickup(householdID uuid.UUID, input CreatePickupInput) (*models.PickupRequest, error) {
	if input.ScheduledDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled date required")
	}
	window := strings.TrimSpace(input.TimeWindow)
	if window == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "time window required")
	}
	if len(window) > maxTimeWindowLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "time window too long")
	}

	wasteType := enums.DefaultWasteType
	if input.WasteType != nil {
		if !input.WasteType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid waste type")
		}
		wasteType = *input.WasteType
	}

	notes, err := optionalText(input.Notes, maxNotesLength, "notes")
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	scheduled := calendarDay(input.ScheduledDate)
	return &models.PickupRequest{
		ID:            id,
		HouseholdID:   householdID,
		Status:        enums.PickupStatusRequested,
		ScheduledDate: scheduled,
		TimeWindow:    window,
		WasteType:     wasteType,
		Notes:         notes,
		TrackingLabel: NewTrackingLabel(id, scheduled),
	}, nil
}

// calendarDay keeps the date as written by the caller and drops the clock.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func optionalText(value *string, max int, field string) (*string, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}
	if len(trimmed) > max {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be at most %d characters", field, max))
	}
	return &trimmed, nil
}

func (s *service) Get(ctx context.Context, pickupID uuid.UUID) (*PickupDTO, error) {
	pickup, err := s.repo.FindDetail(ctx, pickupID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	out := FromModel(pickup)
	return &out, nil
}

func (s *service) ListScoped(ctx context.Context, actor Actor, params ListParams) (*PickupList, error) {
	scope, err := ResolveScope(ctx, s.profiles, actor, params.Scope)
	if err != nil {
		return nil, err
	}
	filter := scope.Filter()
	if params.Status != nil {
		if !params.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
		filter.Status = params.Status
	}

	page, err := s.repo.List(ctx, filter, params.Params)
	if err != nil {
		return nil, mapListError(err)
	}
	return toList(page), nil
}

func (s *service) ListAvailable(ctx context.Context, params ListParams) (*PickupList, error) {
	page, err := s.repo.ListAvailable(ctx, params.Params)
	if err != nil {
		return nil, mapListError(err)
	}
	return toList(page), nil
}

func toList(page *Page) *PickupList {
	list := &PickupList{Pickups: make([]PickupDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		list.Pickups = append(list.Pickups, FromModel(&page.Items[i]))
	}
	return list
}

// Accept claims a REQUESTED pickup. Of two agents racing for the same job
// exactly one update matches; the other sees INVALID_STATE.
func (s *service) Accept(ctx context.Context, pickupID, userID uuid.UUID) (dto *PickupDTO, err error) {
	defer func() { s.observe(transitionAccept, err) }()

	agent, err := s.profiles.ResolveAgentByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var result *models.PickupRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now().UTC()
		ok, err := repo.Accept(ctx, pickupID, agent.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept pickup")
		}
		if !ok {
			return classifyAcceptMiss(ctx, repo, pickupID)
		}
		pickup, err := repo.FindByID(ctx, pickupID)
		if err != nil {
			return mapLoadError(err)
		}
		result = pickup
		return s.emitTransition(ctx, tx, enums.EventPickupAccepted, pickup, enums.PickupStatusRequested, userID, enums.RoleAgent, now)
	})
	if err != nil {
		return nil, err
	}
	return s.done(ctx, "pickup accepted", result), nil
}

func (s *service) Start(ctx context.Context, pickupID, userID uuid.UUID) (dto *PickupDTO, err error) {
	defer func() { s.observe(transitionStart, err) }()

	agent, err := s.profiles.ResolveAgentByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var result *models.PickupRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now().UTC()
		ok, err := repo.Start(ctx, pickupID, agent.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start pickup")
		}
		if !ok {
			return classifyAgentMiss(ctx, repo, pickupID, agent.ID)
		}
		pickup, err := repo.FindByID(ctx, pickupID)
		if err != nil {
			return mapLoadError(err)
		}
		result = pickup
		return s.emitTransition(ctx, tx, enums.EventPickupStarted, pickup, enums.PickupStatusAssigned, userID, enums.RoleAgent, now)
	})
	if err != nil {
		return nil, err
	}
	return s.done(ctx, "pickup started", result), nil
}

// Complete closes an ON_GOING pickup and bumps the agent's completed counter
// in the same transaction.
func (s *service) Complete(ctx context.Context, pickupID, userID uuid.UUID, input CompletePickupInput) (dto *PickupDTO, err error) {
	defer func() { s.observe(transitionComplete, err) }()

	photo := strings.TrimSpace(input.PhotoProofURL)
	if photo == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "photo proof url required")
	}
	if len(photo) > maxPhotoURLLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "photo proof url too long")
	}

	agent, err := s.profiles.ResolveAgentByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	binMissing := false
	if input.BinID != nil {
		if _, err := s.bins.FindByID(ctx, *input.BinID); err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bin")
			}
			binMissing = true
		}
	}

	var result *models.PickupRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if binMissing {
			return classifyUnknownBin(ctx, repo, pickupID, agent.ID)
		}
		now := s.now().UTC()
		ok, err := repo.Complete(ctx, pickupID, agent.ID, CompletionChange{At: now, PhotoProofURL: photo, BinID: input.BinID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete pickup")
		}
		if !ok {
			return classifyAgentMiss(ctx, repo, pickupID, agent.ID)
		}
		if err := s.agents.IncrementCompletedPickups(ctx, tx, agent.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment completed pickups")
		}
		pickup, err := repo.FindByID(ctx, pickupID)
		if err != nil {
			return mapLoadError(err)
		}
		result = pickup
		return s.emitTransition(ctx, tx, enums.EventPickupCompleted, pickup, enums.PickupStatusOnGoing, userID, enums.RoleAgent, now)
	})
	if err != nil {
		return nil, err
	}
	return s.done(ctx, "pickup completed", result), nil
}

func (s *service) Cancel(ctx context.Context, pickupID, userID uuid.UUID) (dto *PickupDTO, err error) {
	defer func() { s.observe(transitionCancel, err) }()

	household, err := s.profiles.ResolveHouseholdByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var result *models.PickupRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now().UTC()
		ok, err := repo.Cancel(ctx, pickupID, household.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel pickup")
		}
		if !ok {
			return classifyCancelMiss(ctx, repo, pickupID, household.ID)
		}
		pickup, err := repo.FindByID(ctx, pickupID)
		if err != nil {
			return mapLoadError(err)
		}
		result = pickup
		// Only accept sets agent_id, so its presence tells which state was left.
		from := enums.PickupStatusRequested
		if pickup.AgentID != nil {
			from = enums.PickupStatusAssigned
		}
		return s.emitTransition(ctx, tx, enums.EventPickupCanceled, pickup, from, userID, enums.RoleHousehold, now)
	})
	if err != nil {
		return nil, err
	}
	return s.done(ctx, "pickup canceled", result), nil
}

// Rate stores the household's single rating and refreshes the agent average
// in the same transaction. The unique index on pickup_request_id decides
// concurrent attempts.
func (s *service) Rate(ctx context.Context, pickupID, userID uuid.UUID, input RatePickupInput) (result *RateResult, err error) {
	defer func() {
		s.observe(transitionRate, err)
		if err == nil {
			s.metrics.ObserveRating(input.Score)
		}
	}()

	if input.Score < minScore || input.Score > maxScore {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("score must be between %d and %d", minScore, maxScore))
	}
	comment, err := optionalText(input.Comment, maxCommentLength, "comment")
	if err != nil {
		return nil, err
	}

	household, err := s.profiles.ResolveHouseholdByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		pickup, err := s.repo.WithTx(tx).FindByID(ctx, pickupID)
		if err != nil {
			return mapLoadError(err)
		}
		if pickup.HouseholdID != household.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "pickup belongs to another household")
		}
		if pickup.Status != enums.PickupStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "only completed pickups can be rated").
				WithDetails(map[string]any{"status": pickup.Status})
		}
		if pickup.AgentID == nil {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "completed pickup has no agent")
		}

		rating := &models.Rating{
			PickupRequestID: pickup.ID,
			HouseholdID:     household.ID,
			AgentID:         *pickup.AgentID,
			Score:           input.Score,
			Comment:         comment,
		}
		if err := s.ratings.WithTx(tx).Create(ctx, rating); err != nil {
			return err
		}

		average, err := s.aggregator.Recompute(ctx, tx, rating.AgentID)
		if err != nil {
			return err
		}

		event := payloads.PickupRatedEvent{
			PickupID:      pickup.ID,
			RatingID:      rating.ID,
			TrackingLabel: pickup.TrackingLabel,
			HouseholdID:   household.ID,
			AgentID:       rating.AgentID,
			Score:         rating.Score,
			AverageRating: average.StringFixed(2),
		}
		if pickup.Agent != nil {
			event.AgentUserID = pickup.Agent.UserID
		}
		if err := s.emit(ctx, tx, enums.EventPickupRated, pickup.ID, userID, enums.RoleHousehold, event); err != nil {
			return err
		}

		result = &RateResult{Rating: RatingFromModel(rating), AgentAverageRating: average.StringFixed(2)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithPickupID(ctx, pickupID.String())
	s.logg.Info(logCtx, "pickup rated")
	return result, nil
}

func (s *service) emitTransition(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, pickup *models.PickupRequest, from enums.PickupStatus, actorID uuid.UUID, role enums.UserRole, at time.Time) error {
	data := payloads.PickupTransitionEvent{
		PickupID:      pickup.ID,
		TrackingLabel: pickup.TrackingLabel,
		HouseholdID:   pickup.HouseholdID,
		AgentID:       pickup.AgentID,
		FromStatus:    from,
		Status:        pickup.Status,
		BinID:         pickup.BinID,
		At:            at,
	}
	if pickup.Household != nil {
		data.HouseholdUserID = pickup.Household.UserID
	}
	if pickup.Agent != nil {
		agentUserID := pickup.Agent.UserID
		data.AgentUserID = &agentUserID
	}
	return s.emit(ctx, tx, eventType, pickup.ID, actorID, role, data)
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, pickupID, actorID uuid.UUID, role enums.UserRole, data any) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePickupRequest,
		AggregateID:   pickupID,
		Actor:         &outbox.ActorRef{UserID: actorID, Role: string(role)},
		Data:          data,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit pickup event")
	}
	return nil
}

func (s *service) done(ctx context.Context, msg string, pickup *models.PickupRequest) *PickupDTO {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"pickup_id": pickup.ID.String(),
		"status":    string(pickup.Status),
	})
	s.logg.Info(logCtx, msg)
	out := FromModel(pickup)
	return &out
}

func (s *service) observe(transition string, err error) {
	s.metrics.ObserveTransition(transition, outcomeFor(err))
}

func outcomeFor(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		return metrics.OutcomeNotFound
	case pkgerrors.IsCode(err, pkgerrors.CodeForbidden):
		return metrics.OutcomeForbidden
	case pkgerrors.IsCode(err, pkgerrors.CodeInvalidState):
		return metrics.OutcomeInvalidState
	default:
		return metrics.OutcomeError
	}
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "pickup not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pickup")
}

func mapListError(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pickups")
}

func invalidState(pickup *models.PickupRequest, msg string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidState, msg).
		WithDetails(map[string]any{"status": pickup.Status})
}

// classifyAcceptMiss explains a failed accept: missing pickup, or someone got
// there first.
func classifyAcceptMiss(ctx context.Context, repo Repository, pickupID uuid.UUID) error {
	pickup, err := repo.FindByID(ctx, pickupID)
	if err != nil {
		return mapLoadError(err)
	}
	return invalidState(pickup, "pickup is no longer available")
}

func classifyAgentMiss(ctx context.Context, repo Repository, pickupID, agentID uuid.UUID) error {
	pickup, err := repo.FindByID(ctx, pickupID)
	if err != nil {
		return mapLoadError(err)
	}
	if pickup.AgentID == nil || *pickup.AgentID != agentID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "pickup is not assigned to this agent")
	}
	return invalidState(pickup, "transition not allowed in current state")
}

// classifyUnknownBin lets the assignment and state guards win over a bad bin
// id, so an agent completing someone else's pickup still gets Forbidden.
func classifyUnknownBin(ctx context.Context, repo Repository, pickupID, agentID uuid.UUID) error {
	pickup, err := repo.FindByID(ctx, pickupID)
	if err != nil {
		return mapLoadError(err)
	}
	if pickup.AgentID == nil || *pickup.AgentID != agentID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "pickup is not assigned to this agent")
	}
	if pickup.Status != enums.PickupStatusOnGoing {
		return invalidState(pickup, "transition not allowed in current state")
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "bin not found")
}

func classifyCancelMiss(ctx context.Context, repo Repository, pickupID, householdID uuid.UUID) error {
	pickup, err := repo.FindByID(ctx, pickupID)
	if err != nil {
		return mapLoadError(err)
	}
	if pickup.HouseholdID != householdID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "pickup belongs to another household")
	}
	return invalidState(pickup, "pickup can no longer be canceled")
}
