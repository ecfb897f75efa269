package ratings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/collectz-backend/internal/profiles"
	"github.com/angelmondragon/collectz-backend/pkg/db"
	"github.com/angelmondragon/collectz-backend/pkg/db/dbtest"
	"github.com/angelmondragon/collectz-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/collectz-backend/pkg/errors"
	"github.com/angelmondragon/collectz-backend/pkg/logger"
)

func TestAverage(t *testing.T) {
	cases := []struct {
		name  string
		sum   int64
		count int64
		want  string
	}{
		{name: "no ratings", sum: 0, count: 0, want: "0.00"},
		{name: "single", sum: 5, count: 1, want: "5.00"},
		{name: "exact", sum: 16, count: 4, want: "4.00"},
		{name: "repeating rounds down", sum: 11, count: 3, want: "3.67"},
		{name: "half rounds up", sum: 29, count: 8, want: "3.63"},
		{name: "two thirds", sum: 14, count: 3, want: "4.67"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Average(tc.sum, tc.count).StringFixed(2))
		})
	}
}

func TestCreateRejectsSecondRating(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	pickupID := uuid.New()
	first := &models.Rating{PickupRequestID: pickupID, HouseholdID: uuid.New(), AgentID: uuid.New(), Score: 5}
	require.NoError(t, repo.Create(ctx, first))

	second := &models.Rating{PickupRequestID: pickupID, HouseholdID: first.HouseholdID, AgentID: first.AgentID, Score: 1}
	err := repo.Create(ctx, second)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))

	stored, err := repo.FindByPickup(ctx, pickupID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Score)
}

func TestRecomputeUsesEveryRating(t *testing.T) {
	conn := dbtest.Open(t)
	aggregator := newTestAggregator(t, conn)
	ctx := context.Background()
	_, agent := dbtest.SeedAgent(t, conn)
	_, other := dbtest.SeedAgent(t, conn)

	for _, score := range []int{5, 4, 3} {
		seedRating(t, conn, agent.ID, score)
	}
	seedRating(t, conn, other.ID, 1)

	var average decimal.Decimal
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		average, err = aggregator.Recompute(ctx, tx, agent.ID)
		return err
	}))
	assert.Equal(t, "4.00", average.StringFixed(2))

	seedRating(t, conn, agent.ID, 4)
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		average, err = aggregator.Recompute(ctx, tx, agent.ID)
		return err
	}))
	assert.Equal(t, "4.00", average.StringFixed(2))

	seedRating(t, conn, agent.ID, 5)
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		average, err = aggregator.Recompute(ctx, tx, agent.ID)
		return err
	}))
	assert.Equal(t, "4.20", average.StringFixed(2))

	assert.Equal(t, "4.20", loadAgent(t, conn, agent.ID).AverageRating.StringFixed(2))
	assert.True(t, loadAgent(t, conn, other.ID).AverageRating.IsZero())
}

func TestRecomputeUnknownAgent(t *testing.T) {
	conn := dbtest.Open(t)
	aggregator := newTestAggregator(t, conn)

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := aggregator.Recompute(context.Background(), tx, uuid.New())
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestReconcileAllRepairsStaleAverages(t *testing.T) {
	conn := dbtest.Open(t)
	aggregator := newTestAggregator(t, conn)
	ctx := context.Background()

	_, first := dbtest.SeedAgent(t, conn)
	_, second := dbtest.SeedAgent(t, conn)
	_, unrated := dbtest.SeedAgent(t, conn)
	seedRating(t, conn, first.ID, 2)
	seedRating(t, conn, first.ID, 3)
	seedRating(t, conn, second.ID, 5)

	require.NoError(t, conn.Model(&models.AgentProfile{}).
		Where("id = ?", first.ID).
		Update("average_rating", decimal.RequireFromString("1.00")).Error)

	refreshed, err := aggregator.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, refreshed)

	assert.Equal(t, "2.50", loadAgent(t, conn, first.ID).AverageRating.StringFixed(2))
	assert.Equal(t, "5.00", loadAgent(t, conn, second.ID).AverageRating.StringFixed(2))
	assert.True(t, loadAgent(t, conn, unrated.ID).AverageRating.IsZero())
}

// loadAgent reads into a fresh struct each time. Reusing a loaded model would
// make gorm add its primary key to the next query.
func loadAgent(t *testing.T, conn *gorm.DB, id uuid.UUID) models.AgentProfile {
	t.Helper()
	var stored models.AgentProfile
	require.NoError(t, conn.First(&stored, "id = ?", id).Error)
	return stored
}

func TestReconcileAllReportsOrphanRatings(t *testing.T) {
	conn := dbtest.Open(t)
	aggregator := newTestAggregator(t, conn)
	_, agent := dbtest.SeedAgent(t, conn)
	seedRating(t, conn, agent.ID, 4)
	seedRating(t, conn, uuid.New(), 4)

	refreshed, err := aggregator.ReconcileAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, refreshed)
}

func newTestAggregator(t *testing.T, conn *gorm.DB) *Aggregator {
	t.Helper()
	aggregator, err := NewAggregator(
		NewRepository(conn),
		profiles.NewAgentStatsWriter(profiles.NewRepository(conn)),
		db.NewFromGorm(conn),
		logger.Nop(),
	)
	require.NoError(t, err)
	return aggregator
}

func seedRating(t *testing.T, conn *gorm.DB, agentID uuid.UUID, score int) {
	t.Helper()
	rating := &models.Rating{
		PickupRequestID: uuid.New(),
		HouseholdID:     uuid.New(),
		AgentID:         agentID,
		Score:           score,
	}
	require.NoError(t, conn.Create(rating).Error)
}
