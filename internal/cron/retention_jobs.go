package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/collectz-backend/pkg/logger"
)

const (
	outboxRetentionDays       = 30
	outboxMinAttempts         = 5
	notificationRetentionDays = 90
)

type purgeFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

// retentionJob deletes rows of one table older than a day-based cutoff in a
// single transaction.
type retentionJob struct {
	name   string
	table  string
	days   int
	fields map[string]any
	db     txRunner
	purge  purgeFunc
	logg   *logger.Logger
	now    func() time.Time
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) cutoff() time.Time {
	return j.now().UTC().AddDate(0, 0, -j.days)
}

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.cutoff()
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.purge(ctx, tx, cutoff)
		deleted = rows
		return err
	})
	if err != nil {
		return fmt.Errorf("purge %s: %w", j.table, err)
	}

	fields := map[string]any{
		"table":          j.table,
		"cutoff":         cutoff,
		"retention_days": j.days,
		"rows_deleted":   deleted,
	}
	for k, v := range j.fields {
		fields[k] = v
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "retention purge complete")
	return nil
}

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxPurger
	// Retention falls back to 30 days.
	Retention int
	// MinAttempts is the attempt count after which an unpublished row counts
	// as abandoned. It matches the publisher's max attempts.
	MinAttempts int
}

// NewOutboxRetentionJob purges published pickup events, and events the
// publisher gave up on, once they pass the retention window.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	minAttempts := params.MinAttempts
	if minAttempts <= 0 {
		minAttempts = outboxMinAttempts
	}
	repo := params.Repository
	return newRetentionJob(retentionJob{
		name:   "outbox-retention",
		table:  "outbox_events",
		days:   orDefault(params.Retention, outboxRetentionDays),
		fields: map[string]any{"min_attempts": minAttempts},
		db:     params.DB,
		logg:   params.Logger,
		purge: func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return repo.DeletePublishedBefore(ctx, tx, cutoff, minAttempts)
		},
	})
}

type notificationPurger interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository notificationPurger
	// Retention falls back to 90 days.
	Retention int
}

// NewNotificationCleanupJob purges in-app pickup notifications, read or not,
// once they pass the retention window.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return newRetentionJob(retentionJob{
		name:  "notification-cleanup",
		table: "notifications",
		days:  orDefault(params.Retention, notificationRetentionDays),
		db:    params.DB,
		logg:  params.Logger,
		purge: params.Repository.DeleteOlderThan,
	})
}

func newRetentionJob(job retentionJob) (Job, error) {
	if job.logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if job.db == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if job.now == nil {
		job.now = time.Now
	}
	return &job, nil
}

func orDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
