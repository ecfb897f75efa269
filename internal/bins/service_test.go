package bins

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/collectz-backend/pkg/db/dbtest"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/collectz-backend/pkg/errors"
)

func TestBinsLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	high := enums.BinCapacityHigh
	created, err := svc.Create(ctx, CreateBinInput{
		LocationName:  "  Mokolo Market ",
		GPSLat:        decimal.RequireFromString("3.87201234"),
		GPSLng:        decimal.RequireFromString("11.50123"),
		CapacityLevel: &high,
	})
	require.NoError(t, err)
	assert.Equal(t, "Mokolo Market", created.LocationName)
	assert.Equal(t, "3.8720123", created.GPSLat)
	assert.Equal(t, "11.5012300", created.GPSLng)

	_, err = svc.Create(ctx, CreateBinInput{LocationName: "Etoudi", GPSLat: decimal.NewFromInt(3)})
	require.NoError(t, err)

	all, err := svc.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Etoudi", all[0].LocationName)

	filtered, err := svc.List(ctx, &high)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, created.ID, filtered[0].ID)

	emptied, err := svc.MarkEmptied(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BinCapacityLow, emptied.CapacityLevel)
	require.NotNil(t, emptied.LastEmptiedAt)

	full, err := svc.UpdateCapacity(ctx, created.ID, enums.BinCapacityFull)
	require.NoError(t, err)
	assert.Equal(t, enums.BinCapacityFull, full.CapacityLevel)

	count, err := NewRepository(conn).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestBinsErrors(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Get(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.MarkEmptied(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Create(ctx, CreateBinInput{LocationName: " "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, CreateBinInput{LocationName: "North Pole+", GPSLat: decimal.NewFromInt(91)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	bogus := enums.BinCapacityLevel("OVERFLOWING")
	_, err = svc.List(ctx, &bogus)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
