package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/collectz-backend/internal/auth"
	"github.com/angelmondragon/collectz-backend/internal/pickups"
	"github.com/angelmondragon/collectz-backend/internal/stats"
	"github.com/angelmondragon/collectz-backend/internal/users"
	pkgAuth "github.com/angelmondragon/collectz-backend/pkg/auth"
	"github.com/angelmondragon/collectz-backend/pkg/auth/session"
	"github.com/angelmondragon/collectz-backend/pkg/config"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
	"github.com/angelmondragon/collectz-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type memoryRedis struct {
	mu       sync.Mutex
	values   map[string]string
	counters map[string]int64
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}, counters: map[string]int64{}}
}

func (m *memoryRedis) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (m *memoryRedis) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	switch v := value.(type) {
	case string:
		m.values[key] = v
	case []byte:
		m.values[key] = string(v)
	}
	return true, nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryRedis) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryRedis) Ping(context.Context) error { return nil }

func (m *memoryRedis) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
	return m.counters[key], nil
}

type stubSessions struct{}

func (stubSessions) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{ logins int }

func (s *stubAuthService) RegisterHousehold(ctx context.Context, req auth.RegisterHouseholdRequest) (*auth.AuthResponse, error) {
	return &auth.AuthResponse{}, nil
}

func (s *stubAuthService) RegisterAgent(ctx context.Context, req auth.RegisterAgentRequest) (*auth.AuthResponse, error) {
	return &auth.AuthResponse{}, nil
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error) {
	s.logins++
	return &auth.AuthResponse{TokenPair: auth.TokenPair{AccessToken: "token"}}, nil
}

func (s *stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.TokenPair, error) {
	return &auth.TokenPair{}, nil
}

func (s *stubAuthService) Logout(ctx context.Context, accessID string) error { return nil }

func (s *stubAuthService) ChangePassword(ctx context.Context, userID uuid.UUID, req auth.ChangePasswordRequest) error {
	return nil
}

func (s *stubAuthService) UpdateMe(ctx context.Context, userID uuid.UUID, req auth.UpdateMeRequest) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID}, nil
}

type stubUsersService struct{}

func (stubUsersService) List(ctx context.Context, params users.ListParams) (*users.ListResult, error) {
	return &users.ListResult{Items: []users.UserDTO{}}, nil
}

func (stubUsersService) UpdateStatus(ctx context.Context, actorID, userID uuid.UUID, active bool) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID, IsActive: active}, nil
}

func (stubUsersService) Update(ctx context.Context, userID uuid.UUID, input users.UpdateInput) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID}, nil
}

type stubPickupService struct {
	mu      sync.Mutex
	creates int
}

func (s *stubPickupService) Create(ctx context.Context, userID uuid.UUID, input pickups.CreatePickupInput) (*pickups.PickupDTO, error) {
	s.mu.Lock()
	s.creates++
	s.mu.Unlock()
	return &pickups.PickupDTO{ID: uuid.New(), Status: enums.PickupStatusRequested}, nil
}

func (s *stubPickupService) Get(ctx context.Context, pickupID uuid.UUID) (*pickups.PickupDTO, error) {
	return &pickups.PickupDTO{ID: pickupID}, nil
}

func (s *stubPickupService) ListScoped(ctx context.Context, actor pickups.Actor, params pickups.ListParams) (*pickups.PickupList, error) {
	return &pickups.PickupList{Pickups: []pickups.PickupDTO{}}, nil
}

func (s *stubPickupService) ListAvailable(ctx context.Context, params pickups.ListParams) (*pickups.PickupList, error) {
	return &pickups.PickupList{Pickups: []pickups.PickupDTO{}}, nil
}

func (s *stubPickupService) Accept(ctx context.Context, pickupID, userID uuid.UUID) (*pickups.PickupDTO, error) {
	return &pickups.PickupDTO{ID: pickupID, Status: enums.PickupStatusAssigned}, nil
}

func (s *stubPickupService) Start(ctx context.Context, pickupID, userID uuid.UUID) (*pickups.PickupDTO, error) {
	return &pickups.PickupDTO{ID: pickupID, Status: enums.PickupStatusOnGoing}, nil
}

func (s *stubPickupService) Complete(ctx context.Context, pickupID, userID uuid.UUID, input pickups.CompletePickupInput) (*pickups.PickupDTO, error) {
	return &pickups.PickupDTO{ID: pickupID, Status: enums.PickupStatusCompleted}, nil
}

func (s *stubPickupService) Cancel(ctx context.Context, pickupID, userID uuid.UUID) (*pickups.PickupDTO, error) {
	return &pickups.PickupDTO{ID: pickupID, Status: enums.PickupStatusCanceled}, nil
}

func (s *stubPickupService) Rate(ctx context.Context, pickupID, userID uuid.UUID, input pickups.RatePickupInput) (*pickups.RateResult, error) {
	return &pickups.RateResult{AgentAverageRating: "5.00"}, nil
}

type stubStatsService struct{}

func (stubStatsService) Overview(ctx context.Context) (*stats.OverviewDTO, error) {
	return &stats.OverviewDTO{}, nil
}

func (stubStatsService) PickupStats(ctx context.Context, req stats.PickupStatsRequest) (*stats.PickupStatsDTO, error) {
	return &stats.PickupStatsDTO{}, nil
}

func (stubStatsService) AgentPerformance(ctx context.Context) ([]stats.AgentPerformanceDTO, error) {
	return []stats.AgentPerformanceDTO{}, nil
}

type testRouter struct {
	handler http.Handler
	cfg     *config.Config
	auth    *stubAuthService
	pickups *stubPickupService
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:  time.Minute,
			LoginIPLimit: 2,
		},
	}
}

func newTestRouter(t *testing.T) *testRouter {
	t.Helper()
	cfg := testConfig()
	tr := &testRouter{cfg: cfg, auth: &stubAuthService{}, pickups: &stubPickupService{}}
	tr.handler = NewRouter(
		cfg,
		logger.Nop(),
		stubPinger{},
		newMemoryRedis(),
		prometheus.NewRegistry(),
		Services{
			Auth:     tr.auth,
			Sessions: stubSessions{},
			Pickups:  tr.pickups,
			Stats:    stubStatsService{},
			Users:    stubUsersService{},
		},
	)
	return tr
}

func (tr *testRouter) do(t *testing.T, method, path, body string, role enums.UserRole, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+buildToken(t, tr.cfg, role))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	tr.handler.ServeHTTP(resp, req)
	return resp
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	require.NoError(t, err)
	return token
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	tr := newTestRouter(t)

	assert.Equal(t, http.StatusOK, tr.do(t, http.MethodGet, "/health/live", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(t, http.MethodGet, "/health/ready", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(t, http.MethodGet, "/metrics", "", "", nil).Code)
}

func TestAPIRejectsMissingJWT(t *testing.T) {
	tr := newTestRouter(t)
	resp := tr.do(t, http.MethodGet, "/api/v1/pickups", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestPickupRoleGuards(t *testing.T) {
	tr := newTestRouter(t)
	pickupPath := "/api/v1/pickups/" + uuid.NewString()

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		role   enums.UserRole
		status int
	}{
		{"household lists", http.MethodGet, "/api/v1/pickups", "", enums.RoleHousehold, http.StatusOK},
		{"household cannot browse pool", http.MethodGet, "/api/v1/pickups/available", "", enums.RoleHousehold, http.StatusForbidden},
		{"agent browses pool", http.MethodGet, "/api/v1/pickups/available", "", enums.RoleAgent, http.StatusOK},
		{"household cannot accept", http.MethodPatch, pickupPath + "/accept", "", enums.RoleHousehold, http.StatusForbidden},
		{"agent accepts", http.MethodPatch, pickupPath + "/accept", "", enums.RoleAgent, http.StatusOK},
		{"agent cannot cancel", http.MethodPatch, pickupPath + "/cancel", "", enums.RoleAgent, http.StatusForbidden},
		{"household cancels", http.MethodPatch, pickupPath + "/cancel", "", enums.RoleHousehold, http.StatusOK},
		{"admin reads detail", http.MethodGet, pickupPath, "", enums.RoleAdmin, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := tr.do(t, tc.method, tc.path, tc.body, tc.role, nil)
			assert.Equal(t, tc.status, resp.Code, resp.Body.String())
		})
	}
}

func TestStaffRoleGuards(t *testing.T) {
	tr := newTestRouter(t)
	userPath := "/api/v1/users/" + uuid.NewString()

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		role   enums.UserRole
		status int
	}{
		{"agent cannot read stats", http.MethodGet, "/api/v1/admin/stats/overview", "", enums.RoleAgent, http.StatusForbidden},
		{"admin reads stats", http.MethodGet, "/api/v1/admin/stats/overview", "", enums.RoleAdmin, http.StatusOK},
		{"hysacam reads stats", http.MethodGet, "/api/v1/admin/stats/pickups?from=2026-01-01", "", enums.RoleHysacam, http.StatusOK},
		{"council reads stats", http.MethodGet, "/api/v1/admin/stats/agents", "", enums.RoleCouncil, http.StatusOK},
		{"council lists users", http.MethodGet, "/api/v1/users", "", enums.RoleCouncil, http.StatusOK},
		{"household cannot list users", http.MethodGet, "/api/v1/users", "", enums.RoleHousehold, http.StatusForbidden},
		{"council cannot change status", http.MethodPatch, userPath + "/status", `{"is_active":false}`, enums.RoleCouncil, http.StatusForbidden},
		{"admin changes status", http.MethodPatch, userPath + "/status", `{"is_active":false}`, enums.RoleAdmin, http.StatusOK},
		{"hysacam cannot edit users", http.MethodPatch, userPath, `{"quarter":"Akwa"}`, enums.RoleHysacam, http.StatusForbidden},
		{"admin edits users", http.MethodPatch, userPath, `{"quarter":"Akwa"}`, enums.RoleAdmin, http.StatusOK},
		{"hysacam cannot create bins", http.MethodPost, "/api/v1/admin/bins", `{}`, enums.RoleHysacam, http.StatusForbidden},
		{"council cannot review kyc", http.MethodPatch, "/api/v1/admin/agents/" + uuid.NewString() + "/kyc", `{}`, enums.RoleCouncil, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := tr.do(t, tc.method, tc.path, tc.body, tc.role, nil)
			assert.Equal(t, tc.status, resp.Code, resp.Body.String())
		})
	}
}

func TestBinOperatorsIncludeHysacam(t *testing.T) {
	tr := newTestRouter(t)
	path := "/api/v1/admin/bins/" + uuid.NewString() + "/capacity"

	council := tr.do(t, http.MethodPatch, path, `{"capacity_level":"FULL"}`, enums.RoleCouncil, nil)
	assert.Equal(t, http.StatusForbidden, council.Code)

	hysacam := tr.do(t, http.MethodPatch, path, `{"capacity_level":"FULL"}`, enums.RoleHysacam, nil)
	assert.NotEqual(t, http.StatusForbidden, hysacam.Code, hysacam.Body.String())
}

func TestAuthSelfServiceRoutesRequireJWT(t *testing.T) {
	tr := newTestRouter(t)

	assert.Equal(t, http.StatusUnauthorized, tr.do(t, http.MethodPatch, "/api/v1/auth/me", `{"name":"Someone"}`, "", nil).Code)
	assert.Equal(t, http.StatusOK, tr.do(t, http.MethodPatch, "/api/v1/auth/me", `{"name":"Someone"}`, enums.RoleCouncil, nil).Code)
	resp := tr.do(t, http.MethodPatch, "/api/v1/auth/change-password", `{"current_password":"old-pass-1","new_password":"new-pass-2025"}`, enums.RoleHousehold, nil)
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}

func TestCreatePickupIsIdempotent(t *testing.T) {
	tr := newTestRouter(t)
	body := `{"scheduled_date":"2026-05-02","time_window":"08:00-10:00"}`

	missing := tr.do(t, http.MethodPost, "/api/v1/pickups", body, enums.RoleHousehold, nil)
	assert.Equal(t, http.StatusCreated, missing.Code, "key is optional")
	assert.Equal(t, 1, tr.pickups.creates)

	headers := map[string]string{"Idempotency-Key": "create-1"}
	token := buildToken(t, tr.cfg, enums.RoleHousehold)
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/pickups", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp := httptest.NewRecorder()
		tr.handler.ServeHTTP(resp, req)
		return resp
	}

	first := send()
	second := send()
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 2, tr.pickups.creates, "keyed replay does not reach the handler")
}

func TestLoginIsRateLimitedPerIP(t *testing.T) {
	tr := newTestRouter(t)
	body := `{"phone":"+237670000009","password":"whatever1"}`

	for i := 0; i < 2; i++ {
		resp := tr.do(t, http.MethodPost, "/api/v1/auth/login", body, "", nil)
		require.Equal(t, http.StatusOK, resp.Code)
	}
	resp := tr.do(t, http.MethodPost, "/api/v1/auth/login", body, "", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, 2, tr.auth.logins)
}
