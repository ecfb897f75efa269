package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/collectz-backend/api/controllers"
	pickupcontrollers "github.com/angelmondragon/collectz-backend/api/controllers/pickups"
	"github.com/angelmondragon/collectz-backend/api/middleware"
	"github.com/angelmondragon/collectz-backend/internal/auth"
	"github.com/angelmondragon/collectz-backend/internal/notifications"
	"github.com/angelmondragon/collectz-backend/internal/pickups"
	"github.com/angelmondragon/collectz-backend/internal/profiles"
	"github.com/angelmondragon/collectz-backend/internal/stats"
	"github.com/angelmondragon/collectz-backend/internal/users"
	"github.com/angelmondragon/collectz-backend/pkg/auth/session"
	"github.com/angelmondragon/collectz-backend/pkg/config"
	"github.com/angelmondragon/collectz-backend/pkg/db"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
	"github.com/angelmondragon/collectz-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/collectz-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP layer relies on:
// idempotency records, auth rate limit counters and the readiness ping.
type RedisStore interface {
	pkgredis.IdempotencyStore
	pkgredis.Pinger
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Services groups everything the router dispatches to.
type Services struct {
	Auth          auth.Service
	Sessions      session.AccessSessionChecker
	Pickups       pickups.Service
	Profiles      profiles.Service
	Bins          controllers.BinService
	Stats         stats.Service
	Notifications notifications.Service
	Users         users.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient RedisStore,
	gatherer prometheus.Gatherer,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginPhoneLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterPhoneLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	authenticate := middleware.Auth(cfg.JWT, svcs.Sessions, logg)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register/household", controllers.AuthRegisterHousehold(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register/agent", controllers.AuthRegisterAgent(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.With(authenticate).Post("/logout", controllers.AuthLogout(svcs.Auth, logg))
		r.With(authenticate).Patch("/change-password", controllers.AuthChangePassword(svcs.Auth, logg))
		r.With(authenticate).Patch("/me", controllers.AuthUpdateMe(svcs.Auth, logg))
	})

	households := middleware.RequireRole(logg, enums.RoleHousehold)
	agents := middleware.RequireRole(logg, enums.RoleAgent)
	admins := middleware.RequireRole(logg, enums.RoleAdmin)
	staff := middleware.RequireRole(logg, enums.StaffRoles...)
	binOperators := middleware.RequireRole(logg, enums.RoleAdmin, enums.RoleHysacam)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.Idempotency(redisClient, cfg.Eventing.RequestIdempotencyTTL, logg))

		r.Route("/pickups", func(r chi.Router) {
			r.With(households).Post("/", pickupcontrollers.Create(svcs.Pickups, logg))
			r.Get("/", pickupcontrollers.List(svcs.Pickups, logg))
			r.With(agents).Get("/available", pickupcontrollers.Available(svcs.Pickups, logg))
			r.Route("/{pickupId}", func(r chi.Router) {
				r.Get("/", pickupcontrollers.Detail(svcs.Pickups, logg))
				r.With(agents).Patch("/accept", pickupcontrollers.Accept(svcs.Pickups, logg))
				r.With(agents).Patch("/start", pickupcontrollers.Start(svcs.Pickups, logg))
				r.With(agents).Patch("/complete", pickupcontrollers.Complete(svcs.Pickups, logg))
				r.With(households).Patch("/cancel", pickupcontrollers.Cancel(svcs.Pickups, logg))
				r.With(households).Post("/rating", pickupcontrollers.Rate(svcs.Pickups, logg))
			})
		})

		r.Route("/profiles/me", func(r chi.Router) {
			r.Get("/", controllers.ProfileMe(svcs.Profiles, logg))
			r.Get("/stats", controllers.ProfileStats(svcs.Profiles, logg))
		})
		r.With(households).Patch("/households/me", controllers.UpdateHousehold(svcs.Profiles, logg))

		r.Route("/bins", func(r chi.Router) {
			r.Get("/", controllers.ListBins(svcs.Bins, logg))
			r.Get("/{binId}", controllers.BinDetail(svcs.Bins, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Patch("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
			r.Patch("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.With(staff).Get("/", controllers.ListUsers(svcs.Users, logg))
			r.With(staff).Get("/{userId}", controllers.UserDetail(svcs.Profiles, logg))
			r.With(admins).Patch("/{userId}", controllers.UpdateUser(svcs.Users, logg))
			r.With(admins).Patch("/{userId}/status", controllers.UpdateUserStatus(svcs.Users, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(admins).Patch("/agents/{agentId}/kyc", controllers.AdminUpdateAgentKYC(svcs.Profiles, logg))
			r.Route("/bins", func(r chi.Router) {
				r.With(admins).Post("/", controllers.AdminCreateBin(svcs.Bins, logg))
				r.With(binOperators).Patch("/{binId}/capacity", controllers.AdminUpdateBinCapacity(svcs.Bins, logg))
				r.With(binOperators).Patch("/{binId}/emptied", controllers.AdminMarkBinEmptied(svcs.Bins, logg))
			})
			r.Route("/stats", func(r chi.Router) {
				r.Use(staff)
				r.Get("/overview", controllers.AdminStatsOverview(svcs.Stats, logg))
				r.Get("/pickups", controllers.AdminPickupStats(svcs.Stats, logg))
				r.Get("/agents", controllers.AdminAgentPerformance(svcs.Stats, logg))
			})
		})
	})

	return r
}
