package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/collectz-backend/api/routes"
	"github.com/angelmondragon/collectz-backend/internal/auth"
	"github.com/angelmondragon/collectz-backend/internal/bins"
	"github.com/angelmondragon/collectz-backend/internal/notifications"
	"github.com/angelmondragon/collectz-backend/internal/pickups"
	"github.com/angelmondragon/collectz-backend/internal/profiles"
	"github.com/angelmondragon/collectz-backend/internal/ratings"
	"github.com/angelmondragon/collectz-backend/internal/stats"
	"github.com/angelmondragon/collectz-backend/internal/users"
	"github.com/angelmondragon/collectz-backend/pkg/auth/session"
	"github.com/angelmondragon/collectz-backend/pkg/config"
	"github.com/angelmondragon/collectz-backend/pkg/db"
	"github.com/angelmondragon/collectz-backend/pkg/logger"
	"github.com/angelmondragon/collectz-backend/pkg/metrics"
	"github.com/angelmondragon/collectz-backend/pkg/migrate"
	"github.com/angelmondragon/collectz-backend/pkg/outbox"
	"github.com/angelmondragon/collectz-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	svcs, err := buildServices(cfg, logg, dbClient, sessionManager)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, prometheus.DefaultGatherer, svcs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
		close(errCh)
	}()

	select {
	case serveErr := <-errCh:
		return serveErr
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sessionManager *session.Manager) (routes.Services, error) {
	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)
	profilesRepo := profiles.NewRepository(conn)
	ratingsRepo := ratings.NewRepository(conn)
	binsRepo := bins.NewRepository(conn)
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)
	agentStats := profiles.NewAgentStatsWriter(profilesRepo)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		TxRunner:       dbClient,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Services{}, err
	}

	profileService, err := profiles.NewService(profilesRepo, usersRepo, dbClient, outboxService)
	if err != nil {
		return routes.Services{}, err
	}

	aggregator, err := ratings.NewAggregator(ratingsRepo, agentStats, dbClient, logg)
	if err != nil {
		return routes.Services{}, err
	}

	pickupService, err := pickups.NewService(pickups.Deps{
		Repo:       pickups.NewRepository(conn),
		Profiles:   profileService,
		Ratings:    ratingsRepo,
		Aggregator: aggregator,
		Agents:     agentStats,
		Bins:       binsRepo,
		Tx:         dbClient,
		Outbox:     outboxService,
		Metrics:    metrics.NewPickupMetrics(prometheus.DefaultRegisterer),
		Logger:     logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	binService, err := bins.NewService(binsRepo)
	if err != nil {
		return routes.Services{}, err
	}

	statsService, err := stats.NewService(stats.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}

	userService, err := users.NewService(usersRepo)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:          authService,
		Sessions:      sessionManager,
		Pickups:       pickupService,
		Profiles:      profileService,
		Bins:          binService,
		Stats:         statsService,
		Notifications: notificationService,
		Users:         userService,
	}, nil
}
