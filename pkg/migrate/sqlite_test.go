package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestApplySQLiteSchemaIsIdempotent(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	require.NoError(t, ApplySQLiteSchema(ctx, conn))
	require.NoError(t, ApplySQLiteSchema(ctx, conn))

	for _, table := range []string{"users", "household_profiles", "agent_profiles", "community_bins", "pickup_requests", "ratings", "notifications", "outbox_events", "outbox_dlq"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}

func TestApplySQLiteSchemaRequiresConnection(t *testing.T) {
	assert.Error(t, ApplySQLiteSchema(context.Background(), nil))
}

func TestCreateSQLMigrationWritesGooseTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Pickup Photo Index")
	require.NoError(t, err)
	assert.Contains(t, path, "_add_pickup_photo_index.sql")
	require.NoError(t, ValidateDir(dir))
}
