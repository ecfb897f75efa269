package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/collectz-backend/internal/analytics"
	"github.com/angelmondragon/collectz-backend/pkg/bigquery"
	"github.com/angelmondragon/collectz-backend/pkg/config"
	"github.com/angelmondragon/collectz-backend/pkg/instance"
	"github.com/angelmondragon/collectz-backend/pkg/logger"
	"github.com/angelmondragon/collectz-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/collectz-backend/pkg/outbox/registry"
	"github.com/angelmondragon/collectz-backend/pkg/pubsub"
	"github.com/angelmondragon/collectz-backend/pkg/redis"
)

const serviceKind = "analytics-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap bigquery", err)
		os.Exit(1)
	}
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing bigquery client", err)
		}
	}()

	consumer, err := buildConsumer(cfg, logg, redisClient, pubsubClient, bqClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build analytics consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Logger:    logg,
		Redis:     redisClient,
		PubSub:    pubsubClient,
		Warehouse: bqClient,
		Consumer:  consumer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"serviceKind":  serviceKind,
		"subscription": cfg.PubSub.AnalyticsSubscription,
		"dataset":      cfg.BigQuery.Dataset,
		"instance":     instance.ID(),
	})
	logg.Info(ctx, "starting analytics worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "analytics worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "analytics worker shutting down gracefully")
}

func buildConsumer(cfg *config.Config, logg *logger.Logger, redisClient *redis.Client, pubsubClient *pubsub.Client, bqClient *bigquery.Client) (*analytics.Consumer, error) {
	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return nil, err
	}
	tracker, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return nil, err
	}
	return analytics.NewConsumer(analytics.ConsumerParams{
		Inserter: bqClient,
		Tables: analytics.Tables{
			PickupEvents: cfg.BigQuery.PickupEventsTable,
			Ratings:      cfg.BigQuery.RatingsTable,
		},
		Registry:     eventRegistry,
		Subscription: pubsubClient.AnalyticsSubscription(),
		Idempotency:  tracker,
		Logger:       logg,
	})
}
