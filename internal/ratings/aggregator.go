package ratings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/collectz-backend/pkg/errors"
	"github.com/angelmondragon/collectz-backend/pkg/logger"
)

// averagePlaces is the stored precision of agent_profiles.average_rating.
const averagePlaces = 2

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type averageWriter interface {
	SetAverageRating(ctx context.Context, tx *gorm.DB, agentID uuid.UUID, average decimal.Decimal) error
}

// Aggregator keeps agent_profiles.average_rating equal to the rounded mean of
// every rating the agent has received.
type Aggregator struct {
	repo   Repository
	writer averageWriter
	tx     txRunner
	logg   *logger.Logger
}

func NewAggregator(repo Repository, writer averageWriter, tx txRunner, logg *logger.Logger) (*Aggregator, error) {
	if repo == nil {
		return nil, fmt.Errorf("ratings repository required")
	}
	if writer == nil {
		return nil, fmt.Errorf("average writer required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Aggregator{repo: repo, writer: writer, tx: tx, logg: logg}, nil
}

// Average is sum/count rounded half away from zero to two places. Ratings are
// positive so this is round-half-up. No ratings yields zero.
func Average(sum, count int64) decimal.Decimal {
	if count <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(sum).DivRound(decimal.NewFromInt(count), averagePlaces)
}

// Recompute re-scans the agent's ratings inside tx and stores the new average.
// Run it in the transaction that inserted the rating so the two commit together.
func (a *Aggregator) Recompute(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) (decimal.Decimal, error) {
	sum, count, err := a.repo.WithTx(tx).SumAndCount(ctx, agentID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate ratings")
	}
	average := Average(sum, count)
	if err := a.writer.SetAverageRating(ctx, tx, agentID, average); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "agent profile not found")
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store average rating")
	}
	return average, nil
}

// ReconcileAll recomputes every rated agent, one transaction each, and returns
// how many were refreshed. A failure on one agent does not stop the others;
// all failures are returned combined.
func (a *Aggregator) ReconcileAll(ctx context.Context) (int, error) {
	agentIDs, err := a.repo.ListRatedAgentIDs(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rated agents")
	}

	refreshed := 0
	var errs error
	for _, agentID := range agentIDs {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		err := a.tx.WithTx(ctx, func(tx *gorm.DB) error {
			_, err := a.Recompute(ctx, tx, agentID)
			return err
		})
		if err != nil {
			logCtx := a.logg.WithField(ctx, "agent_id", agentID.String())
			a.logg.Error(logCtx, "rating reconcile failed", err)
			errs = multierr.Append(errs, fmt.Errorf("agent %s: %w", agentID, err))
			continue
		}
		refreshed++
	}
	return refreshed, errs
}
