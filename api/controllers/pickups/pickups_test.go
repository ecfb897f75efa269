package pickups

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/collectz-backend/api/middleware"
	internalpickups "github.com/angelmondragon/collectz-backend/internal/pickups"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/collectz-backend/pkg/errors"
	"github.com/angelmondragon/collectz-backend/pkg/logger"
)

type stubService struct {
	create   func(ctx context.Context, userID uuid.UUID, input internalpickups.CreatePickupInput) (*internalpickups.PickupDTO, error)
	list     func(ctx context.Context, actor internalpickups.Actor, params internalpickups.ListParams) (*internalpickups.PickupList, error)
	accept   func(ctx context.Context, pickupID, userID uuid.UUID) (*internalpickups.PickupDTO, error)
	complete func(ctx context.Context, pickupID, userID uuid.UUID, input internalpickups.CompletePickupInput) (*internalpickups.PickupDTO, error)
	rate     func(ctx context.Context, pickupID, userID uuid.UUID, input internalpickups.RatePickupInput) (*internalpickups.RateResult, error)
}

func (s *stubService) Create(ctx context.Context, userID uuid.UUID, input internalpickups.CreatePickupInput) (*internalpickups.PickupDTO, error) {
	return s.create(ctx, userID, input)
}

func (s *stubService) Get(ctx context.Context, pickupID uuid.UUID) (*internalpickups.PickupDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pickup not found")
}

func (s *stubService) ListScoped(ctx context.Context, actor internalpickups.Actor, params internalpickups.ListParams) (*internalpickups.PickupList, error) {
	return s.list(ctx, actor, params)
}

func (s *stubService) ListAvailable(ctx context.Context, params internalpickups.ListParams) (*internalpickups.PickupList, error) {
	return &internalpickups.PickupList{}, nil
}

func (s *stubService) Accept(ctx context.Context, pickupID, userID uuid.UUID) (*internalpickups.PickupDTO, error) {
	return s.accept(ctx, pickupID, userID)
}

func (s *stubService) Start(ctx context.Context, pickupID, userID uuid.UUID) (*internalpickups.PickupDTO, error) {
	panic("not implemented")
}

func (s *stubService) Complete(ctx context.Context, pickupID, userID uuid.UUID, input internalpickups.CompletePickupInput) (*internalpickups.PickupDTO, error) {
	return s.complete(ctx, pickupID, userID, input)
}

func (s *stubService) Cancel(ctx context.Context, pickupID, userID uuid.UUID) (*internalpickups.PickupDTO, error) {
	panic("not implemented")
}

func (s *stubService) Rate(ctx context.Context, pickupID, userID uuid.UUID, input internalpickups.RatePickupInput) (*internalpickups.RateResult, error) {
	return s.rate(ctx, pickupID, userID, input)
}

func newRequest(method, target, body string, userID uuid.UUID, role enums.UserRole) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func withPickupParam(req *http.Request, pickupID string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("pickupId", pickupID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func testLogger() *logger.Logger {
	return logger.Nop()
}

func TestCreateParsesScheduledDateAndWasteType(t *testing.T) {
	userID := uuid.New()
	var got internalpickups.CreatePickupInput
	svc := &stubService{create: func(ctx context.Context, uid uuid.UUID, input internalpickups.CreatePickupInput) (*internalpickups.PickupDTO, error) {
		require.Equal(t, userID, uid)
		got = input
		return &internalpickups.PickupDTO{ID: uuid.New(), Status: enums.PickupStatusRequested}, nil
	}}

	body := `{"scheduled_date":"2026-03-14","time_window":"08:00-10:00","waste_type":"plastic"}`
	resp := httptest.NewRecorder()
	Create(svc, testLogger())(resp, newRequest(http.MethodPost, "/api/v1/pickups", body, userID, enums.RoleHousehold))

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "2026-03-14", got.ScheduledDate.Format("2006-01-02"))
	require.NotNil(t, got.WasteType)
	assert.Equal(t, enums.WasteTypePlastic, *got.WasteType)
}

func TestCreateRejectsMalformedDate(t *testing.T) {
	svc := &stubService{create: func(context.Context, uuid.UUID, internalpickups.CreatePickupInput) (*internalpickups.PickupDTO, error) {
		t.Fatal("service should not be called")
		return nil, nil
	}}

	body := `{"scheduled_date":"14/03/2026","time_window":"morning"}`
	resp := httptest.NewRecorder()
	Create(svc, testLogger())(resp, newRequest(http.MethodPost, "/api/v1/pickups", body, uuid.New(), enums.RoleHousehold))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateRequiresUserContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pickups", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	Create(&stubService{}, testLogger())(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestListPassesActorScopeAndStatus(t *testing.T) {
	userID := uuid.New()
	svc := &stubService{list: func(ctx context.Context, actor internalpickups.Actor, params internalpickups.ListParams) (*internalpickups.PickupList, error) {
		assert.Equal(t, userID, actor.UserID)
		assert.Equal(t, enums.RoleAgent, actor.Role)
		assert.Equal(t, "mine", params.Scope)
		require.NotNil(t, params.Status)
		assert.Equal(t, enums.PickupStatusAssigned, *params.Status)
		assert.Equal(t, 5, params.Limit)
		return &internalpickups.PickupList{Pickups: []internalpickups.PickupDTO{}, NextCursor: "next"}, nil
	}}

	req := newRequest(http.MethodGet, "/api/v1/pickups?scope=mine&status=assigned&limit=5", "", userID, enums.RoleAgent)
	resp := httptest.NewRecorder()
	List(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data internalpickups.PickupList `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "next", envelope.Data.NextCursor)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	req := newRequest(http.MethodGet, "/api/v1/pickups?status=LOST", "", uuid.New(), enums.RoleHousehold)
	resp := httptest.NewRecorder()
	List(&stubService{}, testLogger())(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAcceptSurfacesInvalidState(t *testing.T) {
	pickupID := uuid.New()
	svc := &stubService{accept: func(ctx context.Context, pid, uid uuid.UUID) (*internalpickups.PickupDTO, error) {
		require.Equal(t, pickupID, pid)
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "pickup already accepted")
	}}

	req := withPickupParam(newRequest(http.MethodPatch, "/api/v1/pickups/"+pickupID.String()+"/accept", "", uuid.New(), enums.RoleAgent), pickupID.String())
	resp := httptest.NewRecorder()
	Accept(svc, testLogger())(resp, req)

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), "pickup already accepted")
}

func TestAcceptRejectsInvalidPickupID(t *testing.T) {
	req := withPickupParam(newRequest(http.MethodPatch, "/api/v1/pickups/nope/accept", "", uuid.New(), enums.RoleAgent), "nope")
	resp := httptest.NewRecorder()
	Accept(&stubService{}, testLogger())(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCompleteParsesBinID(t *testing.T) {
	pickupID := uuid.New()
	binID := uuid.New()
	svc := &stubService{complete: func(ctx context.Context, pid, uid uuid.UUID, input internalpickups.CompletePickupInput) (*internalpickups.PickupDTO, error) {
		assert.Equal(t, "https://cdn.example.com/proof.jpg", input.PhotoProofURL)
		require.NotNil(t, input.BinID)
		assert.Equal(t, binID, *input.BinID)
		return &internalpickups.PickupDTO{ID: pid, Status: enums.PickupStatusCompleted}, nil
	}}

	body := `{"photo_proof_url":"https://cdn.example.com/proof.jpg","bin_id":"` + binID.String() + `"}`
	req := withPickupParam(newRequest(http.MethodPatch, "/api/v1/pickups/"+pickupID.String()+"/complete", body, uuid.New(), enums.RoleAgent), pickupID.String())
	resp := httptest.NewRecorder()
	Complete(svc, testLogger())(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestCompleteRequiresPhoto(t *testing.T) {
	pickupID := uuid.New()
	req := withPickupParam(newRequest(http.MethodPatch, "/api/v1/pickups/"+pickupID.String()+"/complete", `{}`, uuid.New(), enums.RoleAgent), pickupID.String())
	resp := httptest.NewRecorder()
	Complete(&stubService{}, testLogger())(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRateValidatesScoreRange(t *testing.T) {
	pickupID := uuid.New()
	req := withPickupParam(newRequest(http.MethodPost, "/api/v1/pickups/"+pickupID.String()+"/rating", `{"score":6}`, uuid.New(), enums.RoleHousehold), pickupID.String())
	resp := httptest.NewRecorder()
	Rate(&stubService{}, testLogger())(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRateReturnsAverage(t *testing.T) {
	pickupID := uuid.New()
	svc := &stubService{rate: func(ctx context.Context, pid, uid uuid.UUID, input internalpickups.RatePickupInput) (*internalpickups.RateResult, error) {
		assert.Equal(t, 4, input.Score)
		return &internalpickups.RateResult{Rating: internalpickups.RatingDTO{Score: 4}, AgentAverageRating: "4.50"}, nil
	}}

	req := withPickupParam(newRequest(http.MethodPost, "/api/v1/pickups/"+pickupID.String()+"/rating", `{"score":4,"comment":"on time"}`, uuid.New(), enums.RoleHousehold), pickupID.String())
	resp := httptest.NewRecorder()
	Rate(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), `"agent_average_rating":"4.50"`)
}
