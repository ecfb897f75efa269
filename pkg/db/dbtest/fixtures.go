package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/collectz-backend/pkg/db/models"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
)

// SeedUser inserts an active user with a unique phone.
func SeedUser(t testing.TB, conn *gorm.DB, role enums.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Name:         string(role) + " user",
		Phone:        "+237" + uuid.NewString()[:8],
		PasswordHash: "hash",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

// SeedHousehold inserts a household user and its profile.
func SeedHousehold(t testing.TB, conn *gorm.DB) (*models.User, *models.HouseholdProfile) {
	t.Helper()
	user := SeedUser(t, conn, enums.RoleHousehold)
	profile := &models.HouseholdProfile{UserID: user.ID}
	require.NoError(t, conn.Create(profile).Error)
	return user, profile
}

// SeedAgent inserts an agent user and its profile with no ratings.
func SeedAgent(t testing.TB, conn *gorm.DB) (*models.User, *models.AgentProfile) {
	t.Helper()
	user := SeedUser(t, conn, enums.RoleAgent)
	profile := &models.AgentProfile{UserID: user.ID, AverageRating: decimal.Zero}
	require.NoError(t, conn.Create(profile).Error)
	return user, profile
}

// SeedBin inserts a community bin.
func SeedBin(t testing.TB, conn *gorm.DB) *models.CommunityBin {
	t.Helper()
	bin := &models.CommunityBin{
		LocationName: "Marché Central",
		GPSLat:       decimal.RequireFromString("3.8667000"),
		GPSLng:       decimal.RequireFromString("11.5167000"),
	}
	require.NoError(t, conn.Create(bin).Error)
	return bin
}
