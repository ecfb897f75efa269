package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/collectz-backend/pkg/logger"
)

type fakeReconciler struct {
	count int
	err   error
	calls int
}

func (f *fakeReconciler) ReconcileAll(context.Context) (int, error) {
	f.calls++
	return f.count, f.err
}

func TestRatingReconcileJobRuns(t *testing.T) {
	reconciler := &fakeReconciler{count: 3}
	job, err := NewRatingReconcileJob(RatingReconcileJobParams{
		Logger:     logger.Nop(),
		Reconciler: reconciler,
	})
	if err != nil {
		t.Fatalf("NewRatingReconcileJob: %v", err)
	}
	if job.Name() != "rating-reconcile" {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reconciler.calls != 1 {
		t.Fatalf("expected one reconcile, got %d", reconciler.calls)
	}
}

func TestRatingReconcileJobPropagatesError(t *testing.T) {
	job, err := NewRatingReconcileJob(RatingReconcileJobParams{
		Logger:     logger.Nop(),
		Reconciler: &fakeReconciler{count: 1, err: errors.New("agent 42 failed")},
	})
	if err != nil {
		t.Fatalf("NewRatingReconcileJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRatingReconcileJobRequiresDependencies(t *testing.T) {
	if _, err := NewRatingReconcileJob(RatingReconcileJobParams{Logger: logger.Nop()}); err == nil {
		t.Fatal("expected error without reconciler")
	}
}
