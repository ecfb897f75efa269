package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/collectz-backend/pkg/logger"
)

const heartbeatInterval = time.Minute

type pinger interface {
	Ping(context.Context) error
}

type consumer interface {
	Run(context.Context) error
}

type ServiceParams struct {
	Logger    *logger.Logger
	Redis     pinger
	PubSub    pinger
	Warehouse pinger
	Consumer  consumer
}

// Service streams pickup events into the warehouse once redis, pubsub and
// bigquery answer.
type Service struct {
	logg      *logger.Logger
	redis     pinger
	pubsub    pinger
	warehouse pinger
	consumer  consumer
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.Redis == nil:
		return nil, errors.New("redis client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Warehouse == nil:
		return nil, errors.New("bigquery client is required")
	case params.Consumer == nil:
		return nil, errors.New("analytics consumer is required")
	}
	return &Service{
		logg:      params.Logger,
		redis:     params.Redis,
		pubsub:    params.PubSub,
		warehouse: params.Warehouse,
		consumer:  params.Consumer,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	deps := []struct {
		name string
		p    pinger
	}{
		{"redis", s.redis},
		{"pubsub", s.pubsub},
		{"bigquery", s.warehouse},
	}
	for _, dep := range deps {
		if err := dep.p.Ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", dep.name), err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	s.logg.Info(ctx, "analytics worker dependencies are ready")
	return nil
}

// Run blocks until ctx is canceled or the consumer exits.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.consumer.Run(ctx)
	}()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "analytics worker context canceled")
			return ctx.Err()
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(ctx, "analytics consumer stopped unexpectedly", err)
			}
			return err
		case <-ticker.C:
			s.logg.Debug(ctx, "analytics worker heartbeat")
		}
	}
}
