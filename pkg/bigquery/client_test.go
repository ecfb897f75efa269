package bigquery

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/collectz-backend/pkg/config"
)

func TestConfiguredTables(t *testing.T) {
	cfg := config.BigQueryConfig{
		PickupEventsTable: " pickup_events ",
		RatingsTable:      "",
	}

	tables := configuredTables(cfg)
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	if tables[0] != "pickup_events" {
		t.Fatalf("expected pickup_events, got %s", tables[0])
	}
}

func TestClientOptionsPrioritizesJSON(t *testing.T) {
	opts := clientOptions(config.GCPConfig{
		CredentialsJSON:        `{"dummy": "value"}`,
		ApplicationCredentials: "/tmp/creds",
	})
	if len(opts) != 1 {
		t.Fatalf("expected 1 option, got %d", len(opts))
	}
	if got := clientOptions(config.GCPConfig{}); len(got) != 0 {
		t.Fatalf("expected 0 options, got %d", len(got))
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.BigQueryConfig{Dataset: "collectz"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project error, got %v", err)
	}
	gcp := config.GCPConfig{ProjectID: "collectz-dev"}
	if _, err := NewClient(ctx, gcp, config.BigQueryConfig{}, nil); err != errDatasetRequired {
		t.Fatalf("expected dataset error, got %v", err)
	}
	if _, err := NewClient(ctx, gcp, config.BigQueryConfig{Dataset: "collectz"}, nil); err != errTableNameRequired {
		t.Fatalf("expected table error, got %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if err := c.InsertRows(context.Background(), "pickup_events", []any{struct{}{}}); err != errClientNotInitialized {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRowCarriesInsertID(t *testing.T) {
	type sample struct {
		PickupID   string    `bigquery:"pickup_id"`
		Score      int       `bigquery:"score"`
		OccurredAt time.Time `bigquery:"occurred_at"`
	}

	saver, err := Row("event-1", &sample{PickupID: "p-1", Score: 4, OccurredAt: time.Now()})
	if err != nil {
		t.Fatalf("Row() error: %v", err)
	}
	values, insertID, err := saver.Save()
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if insertID != "event-1" {
		t.Fatalf("expected insert id event-1, got %q", insertID)
	}
	if values["pickup_id"] != "p-1" {
		t.Fatalf("unexpected row %v", values)
	}
	if len(saver.Schema) != 3 {
		t.Fatalf("expected 3 schema fields, got %d", len(saver.Schema))
	}
}
