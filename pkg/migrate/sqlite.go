package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// sqliteSchema mirrors the goose migrations for local sqlite runs and tests.
// Keep it in step with migrations/.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT UNIQUE,
  phone TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'HOUSEHOLD' CHECK (role IN ('HOUSEHOLD', 'AGENT', 'ADMIN', 'HYSACAM', 'COUNCIL')),
  address TEXT,
  quarter TEXT,
  is_verified BOOLEAN NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS household_profiles (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE REFERENCES users(id),
  household_size INTEGER,
  preferred_pickup_days TEXT,
  subscription_status TEXT NOT NULL DEFAULT 'NONE',
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS agent_profiles (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE REFERENCES users(id),
  kyc_status TEXT NOT NULL DEFAULT 'PENDING',
  id_document_url TEXT,
  driver_license_url TEXT,
  vehicle_registration_url TEXT,
  kyc_rejection_reason TEXT,
  average_rating NUMERIC NOT NULL DEFAULT 0,
  total_completed_pickups INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS community_bins (
  id TEXT PRIMARY KEY,
  location_name TEXT NOT NULL,
  gps_lat NUMERIC NOT NULL,
  gps_lng NUMERIC NOT NULL,
  capacity_level TEXT NOT NULL DEFAULT 'LOW',
  last_emptied_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS pickup_requests (
  id TEXT PRIMARY KEY,
  household_id TEXT NOT NULL REFERENCES household_profiles(id),
  agent_id TEXT REFERENCES agent_profiles(id),
  bin_id TEXT REFERENCES community_bins(id),
  status TEXT NOT NULL DEFAULT 'REQUESTED' CHECK (status IN ('REQUESTED', 'ASSIGNED', 'ON_GOING', 'COMPLETED', 'CANCELED')),
  scheduled_date DATE NOT NULL,
  time_window TEXT NOT NULL,
  waste_type TEXT NOT NULL DEFAULT 'MIXED',
  notes TEXT,
  photo_proof_url TEXT,
  tracking_label TEXT NOT NULL UNIQUE,
  accepted_at DATETIME,
  started_at DATETIME,
  completed_at DATETIME,
  canceled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS ratings (
  id TEXT PRIMARY KEY,
  pickup_request_id TEXT NOT NULL REFERENCES pickup_requests(id),
  household_id TEXT NOT NULL,
  agent_id TEXT NOT NULL,
  score INTEGER NOT NULL CHECK (score BETWEEN 1 AND 5),
  comment TEXT,
  created_at DATETIME,
  CONSTRAINT uq_ratings_pickup_request UNIQUE (pickup_request_id)
)`,
	`CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  pickup_id TEXT,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
)`,
	`CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL UNIQUE,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json BLOB NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
)`,
}

// ApplySQLiteSchema creates every table on a sqlite connection.
func ApplySQLiteSchema(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	for _, stmt := range sqliteSchema {
		if err := conn.WithContext(ctx).Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
