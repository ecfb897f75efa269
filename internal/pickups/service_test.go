package pickups

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/collectz-backend/internal/ratings"
	"github.com/angelmondragon/collectz-backend/pkg/db/models"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/collectz-backend/pkg/errors"
	"github.com/angelmondragon/collectz-backend/pkg/metrics"
	"github.com/angelmondragon/collectz-backend/pkg/outbox"
	"github.com/angelmondragon/collectz-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/collectz-backend/pkg/pagination"
)

type stubPickupsRepo struct {
	pickups   map[uuid.UUID]*models.PickupRequest
	updateErr error
	created   []*models.PickupRequest
}

func newStubRepo(pickups ...*models.PickupRequest) *stubPickupsRepo {
	repo := &stubPickupsRepo{pickups: map[uuid.UUID]*models.PickupRequest{}}
	for _, p := range pickups {
		repo.pickups[p.ID] = p
	}
	return repo
}

func (s *stubPickupsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPickupsRepo) Create(ctx context.Context, pickup *models.PickupRequest) error {
	s.created = append(s.created, pickup)
	s.pickups[pickup.ID] = pickup
	return nil
}

func (s *stubPickupsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.PickupRequest, error) {
	p, ok := s.pickups[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *p
	return &clone, nil
}

func (s *stubPickupsRepo) FindDetail(ctx context.Context, id uuid.UUID) (*models.PickupRequest, error) {
	return s.FindByID(ctx, id)
}

func (s *stubPickupsRepo) Accept(ctx context.Context, id, agentID uuid.UUID, at time.Time) (bool, error) {
	if s.updateErr != nil {
		return false, s.updateErr
	}
	p, ok := s.pickups[id]
	if !ok || p.Status != enums.PickupStatusRequested || p.AgentID != nil {
		return false, nil
	}
	p.AgentID = &agentID
	p.Status = enums.PickupStatusAssigned
	p.AcceptedAt = &at
	return true, nil
}

func (s *stubPickupsRepo) Start(ctx context.Context, id, agentID uuid.UUID, at time.Time) (bool, error) {
	return s.agentMove(id, agentID, enums.PickupStatusAssigned, enums.PickupStatusOnGoing)
}

func (s *stubPickupsRepo) Complete(ctx context.Context, id, agentID uuid.UUID, change CompletionChange) (bool, error) {
	return s.agentMove(id, agentID, enums.PickupStatusOnGoing, enums.PickupStatusCompleted)
}

func (s *stubPickupsRepo) agentMove(id, agentID uuid.UUID, from, to enums.PickupStatus) (bool, error) {
	if s.updateErr != nil {
		return false, s.updateErr
	}
	p, ok := s.pickups[id]
	if !ok || p.Status != from || p.AgentID == nil || *p.AgentID != agentID {
		return false, nil
	}
	p.Status = to
	return true, nil
}

func (s *stubPickupsRepo) Cancel(ctx context.Context, id, householdID uuid.UUID, at time.Time) (bool, error) {
	p, ok := s.pickups[id]
	if !ok || p.HouseholdID != householdID {
		return false, nil
	}
	if p.Status != enums.PickupStatusRequested && p.Status != enums.PickupStatusAssigned {
		return false, nil
	}
	p.Status = enums.PickupStatusCanceled
	return true, nil
}

func (s *stubPickupsRepo) List(ctx context.Context, filter ListFilter, params pagination.Params) (*Page, error) {
	return &Page{}, nil
}

func (s *stubPickupsRepo) ListAvailable(ctx context.Context, params pagination.Params) (*Page, error) {
	return &Page{}, nil
}

type stubDirectory struct {
	households map[uuid.UUID]*models.HouseholdProfile
	agents     map[uuid.UUID]*models.AgentProfile
}

func (s *stubDirectory) ResolveHouseholdByUser(ctx context.Context, userID uuid.UUID) (*models.HouseholdProfile, error) {
	if h, ok := s.households[userID]; ok {
		return h, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "household profile not found")
}

func (s *stubDirectory) ResolveAgentByUser(ctx context.Context, userID uuid.UUID) (*models.AgentProfile, error) {
	if a, ok := s.agents[userID]; ok {
		return a, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent profile not found")
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type stubCounter struct {
	calls []uuid.UUID
}

func (s *stubCounter) IncrementCompletedPickups(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) error {
	s.calls = append(s.calls, agentID)
	return nil
}

type stubAggregator struct{}

func (stubAggregator) Recompute(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type stubBins struct{}

func (stubBins) FindByID(ctx context.Context, id uuid.UUID) (*models.CommunityBin, error) {
	return nil, gorm.ErrRecordNotFound
}

type stubRatings struct {
	ratings.Repository
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fixture struct {
	svc       Service
	repo      *stubPickupsRepo
	outbox    *stubOutboxPublisher
	counter   *stubCounter
	household *models.HouseholdProfile
	agent     *models.AgentProfile
	userIDs   struct{ household, agent uuid.UUID }
}

func newFixture(t *testing.T, pickups ...*models.PickupRequest) *fixture {
	t.Helper()
	f := &fixture{
		repo:      newStubRepo(pickups...),
		outbox:    &stubOutboxPublisher{},
		counter:   &stubCounter{},
		household: &models.HouseholdProfile{ID: uuid.New(), UserID: uuid.New()},
		agent:     &models.AgentProfile{ID: uuid.New(), UserID: uuid.New()},
	}
	f.userIDs.household = f.household.UserID
	f.userIDs.agent = f.agent.UserID
	directory := &stubDirectory{
		households: map[uuid.UUID]*models.HouseholdProfile{f.household.UserID: f.household},
		agents:     map[uuid.UUID]*models.AgentProfile{f.agent.UserID: f.agent},
	}
	svc, err := NewService(Deps{
		Repo:       f.repo,
		Profiles:   directory,
		Ratings:    stubRatings{},
		Aggregator: stubAggregator{},
		Agents:     f.counter,
		Bins:       stubBins{},
		Tx:         stubTxRunner{},
		Outbox:     f.outbox,
		Now:        func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	f.svc = svc
	return f
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repository")
}

func TestCreateDefaultsAndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	notes := "  gate code 1234 "
	dto, err := f.svc.Create(ctx, f.userIDs.household, CreatePickupInput{
		ScheduledDate: time.Date(2026, 4, 2, 23, 0, 0, 0, time.UTC),
		TimeWindow:    " 14:00-16:00 ",
		Notes:         &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.WasteTypeMixed, dto.WasteType)
	assert.Equal(t, "14:00-16:00", dto.TimeWindow)
	require.NotNil(t, dto.Notes)
	assert.Equal(t, "gate code 1234", *dto.Notes)
	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, enums.EventPickupRequested, f.outbox.events[0].EventType)
	assert.Equal(t, enums.AggregatePickupRequest, f.outbox.events[0].AggregateType)

	plastic := enums.WasteTypePlastic
	dto, err = f.svc.Create(ctx, f.userIDs.household, CreatePickupInput{ScheduledDate: time.Now(), TimeWindow: "am", WasteType: &plastic})
	require.NoError(t, err)
	assert.Equal(t, enums.WasteTypePlastic, dto.WasteType)

	bogus := enums.WasteType("NUCLEAR")
	cases := map[string]CreatePickupInput{
		"missing date":   {TimeWindow: "am"},
		"missing window": {ScheduledDate: time.Now(), TimeWindow: "  "},
		"long window":    {ScheduledDate: time.Now(), TimeWindow: strings.Repeat("x", maxTimeWindowLength+1)},
		"bad waste type": {ScheduledDate: time.Now(), TimeWindow: "am", WasteType: &bogus},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, f.userIDs.household, input)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	_, err = f.svc.Create(ctx, f.userIDs.agent, CreatePickupInput{ScheduledDate: time.Now(), TimeWindow: "am"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAcceptEmitsTransitionWithActor(t *testing.T) {
	pickup := &models.PickupRequest{ID: uuid.New(), HouseholdID: uuid.New(), Status: enums.PickupStatusRequested}
	f := newFixture(t, pickup)

	dto, err := f.svc.Accept(context.Background(), pickup.ID, f.userIDs.agent)
	require.NoError(t, err)
	assert.Equal(t, enums.PickupStatusAssigned, dto.Status)

	require.Len(t, f.outbox.events, 1)
	event := f.outbox.events[0]
	assert.Equal(t, enums.EventPickupAccepted, event.EventType)
	require.NotNil(t, event.Actor)
	assert.Equal(t, f.userIDs.agent, event.Actor.UserID)
	assert.Equal(t, string(enums.RoleAgent), event.Actor.Role)
}

func TestTransitionRepositoryFailureIsDependencyError(t *testing.T) {
	pickup := &models.PickupRequest{ID: uuid.New(), HouseholdID: uuid.New(), Status: enums.PickupStatusRequested}
	f := newFixture(t, pickup)
	f.repo.updateErr = errors.New("connection reset")

	_, err := f.svc.Accept(context.Background(), pickup.ID, f.userIDs.agent)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Empty(t, f.outbox.events)
}

func TestOutboxFailureFailsTransition(t *testing.T) {
	agentID := uuid.New()
	pickup := &models.PickupRequest{ID: uuid.New(), HouseholdID: uuid.New(), Status: enums.PickupStatusOnGoing, AgentID: &agentID}
	f := newFixture(t, pickup)
	f.agent.ID = agentID
	f.outbox.err = errors.New("outbox down")

	_, err := f.svc.Complete(context.Background(), pickup.ID, f.userIDs.agent, CompletePickupInput{PhotoProofURL: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestCompleteIncrementsCounterOnce(t *testing.T) {
	agentID := uuid.New()
	pickup := &models.PickupRequest{ID: uuid.New(), HouseholdID: uuid.New(), Status: enums.PickupStatusOnGoing, AgentID: &agentID}
	f := newFixture(t, pickup)
	f.agent.ID = agentID

	_, err := f.svc.Complete(context.Background(), pickup.ID, f.userIDs.agent, CompletePickupInput{PhotoProofURL: "x"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{agentID}, f.counter.calls)

	_, err = f.svc.Complete(context.Background(), pickup.ID, f.userIDs.agent, CompletePickupInput{PhotoProofURL: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))
	assert.Len(t, f.counter.calls, 1)

	bin := uuid.New()
	_, err = f.svc.Complete(context.Background(), pickup.ID, f.userIDs.agent, CompletePickupInput{PhotoProofURL: "x", BinID: &bin})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState), "state guard wins over an unknown bin")
	assert.Len(t, f.counter.calls, 1)
}

func TestCancelReportsLeftState(t *testing.T) {
	agentID := uuid.New()
	f := newFixture(t)
	assigned := &models.PickupRequest{ID: uuid.New(), HouseholdID: f.household.ID, Status: enums.PickupStatusAssigned, AgentID: &agentID}
	f.repo.pickups[assigned.ID] = assigned

	_, err := f.svc.Cancel(context.Background(), assigned.ID, f.userIDs.household)
	require.NoError(t, err)
	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, enums.EventPickupCanceled, f.outbox.events[0].EventType)
	data, ok := f.outbox.events[0].Data.(payloads.PickupTransitionEvent)
	require.True(t, ok)
	assert.Equal(t, enums.PickupStatusAssigned, data.FromStatus)
	assert.Equal(t, enums.PickupStatusCanceled, data.Status)
}

func TestResolveScope(t *testing.T) {
	householdUser, agentUser := uuid.New(), uuid.New()
	household := &models.HouseholdProfile{ID: uuid.New(), UserID: householdUser}
	agent := &models.AgentProfile{ID: uuid.New(), UserID: agentUser}
	directory := &stubDirectory{
		households: map[uuid.UUID]*models.HouseholdProfile{householdUser: household},
		agents:     map[uuid.UUID]*models.AgentProfile{agentUser: agent},
	}
	ctx := context.Background()

	scope, err := ResolveScope(ctx, directory, Actor{UserID: householdUser, Role: enums.RoleHousehold}, "")
	require.NoError(t, err)
	assert.Equal(t, HouseholdScope{HouseholdID: household.ID}, scope)
	require.NotNil(t, scope.Filter().HouseholdID)
	assert.Nil(t, scope.Filter().AgentID)

	scope, err = ResolveScope(ctx, directory, Actor{UserID: agentUser, Role: enums.RoleAgent}, "all")
	require.NoError(t, err)
	assert.Equal(t, ListFilter{}, scope.Filter())

	scope, err = ResolveScope(ctx, directory, Actor{UserID: agentUser, Role: enums.RoleAgent}, " MINE ")
	require.NoError(t, err)
	filter := scope.Filter()
	require.NotNil(t, filter.AgentID)
	assert.Equal(t, agent.ID, *filter.AgentID)

	scope, err = ResolveScope(ctx, directory, Actor{UserID: uuid.New(), Role: enums.RoleAdmin}, "mine")
	require.NoError(t, err)
	assert.Equal(t, AdminScope{}, scope)

	for _, role := range []enums.UserRole{enums.RoleHysacam, enums.RoleCouncil} {
		scope, err = ResolveScope(ctx, directory, Actor{UserID: uuid.New(), Role: role}, "")
		require.NoError(t, err, role)
		assert.Equal(t, AdminScope{}, scope, role)
	}

	_, err = ResolveScope(ctx, directory, Actor{UserID: uuid.New(), Role: enums.RoleAgent}, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = ResolveScope(ctx, directory, Actor{UserID: uuid.New(), Role: enums.UserRole("GUEST")}, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = ResolveScope(ctx, directory, Actor{Role: enums.RoleAdmin}, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestOutcomeFor(t *testing.T) {
	assert.Equal(t, metrics.OutcomeSuccess, outcomeFor(nil))
	assert.Equal(t, metrics.OutcomeNotFound, outcomeFor(pkgerrors.New(pkgerrors.CodeNotFound, "x")))
	assert.Equal(t, metrics.OutcomeForbidden, outcomeFor(pkgerrors.New(pkgerrors.CodeForbidden, "x")))
	assert.Equal(t, metrics.OutcomeInvalidState, outcomeFor(pkgerrors.New(pkgerrors.CodeInvalidState, "x")))
	assert.Equal(t, metrics.OutcomeError, outcomeFor(errors.New("boom")))
}

func TestTrackingLabel(t *testing.T) {
	id := uuid.MustParse("3f9a1c2b-40d7-4e11-9c2a-1b2c3d4e5f60")
	assert.Equal(t, "CZ-260314-3F9A1C2B40D7", NewTrackingLabel(id, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)))
}
