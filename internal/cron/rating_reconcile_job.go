package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/collectz-backend/pkg/logger"
)

type ratingReconciler interface {
	ReconcileAll(ctx context.Context) (int, error)
}

type RatingReconcileJobParams struct {
	Logger     *logger.Logger
	Reconciler ratingReconciler
}

// NewRatingReconcileJob recomputes every rated agent's stored average from
// the ratings table so a drifted aggregate heals on the next cycle.
func NewRatingReconcileJob(params RatingReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("rating reconciler required")
	}
	return &ratingReconcileJob{logg: params.Logger, reconciler: params.Reconciler}, nil
}

type ratingReconcileJob struct {
	logg       *logger.Logger
	reconciler ratingReconciler
}

func (j *ratingReconcileJob) Name() string { return "rating-reconcile" }

func (j *ratingReconcileJob) Run(ctx context.Context) error {
	agents, err := j.reconciler.ReconcileAll(ctx)
	logCtx := j.logg.WithField(ctx, "agents_reconciled", agents)
	if err != nil {
		return fmt.Errorf("rating reconcile: %w", err)
	}
	j.logg.Info(logCtx, "rating reconcile complete")
	return nil
}
