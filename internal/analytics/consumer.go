package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/collectz-backend/pkg/bigquery"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
	"github.com/angelmondragon/collectz-backend/pkg/logger"
	"github.com/angelmondragon/collectz-backend/pkg/outbox"
	"github.com/angelmondragon/collectz-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/collectz-backend/pkg/outbox/registry"
)

const pickupAnalyticsConsumer = "pickup-analytics"

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

type descriptorLookup interface {
	Descriptor(eventType enums.OutboxEventType) (registry.EventDescriptor, bool)
}

type processedTracker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Tables names the destination tables in the analytics dataset.
type Tables struct {
	PickupEvents string
	Ratings      string
}

type ConsumerParams struct {
	Inserter     tableInserter
	Tables       Tables
	Registry     descriptorLookup
	Subscription *pubsub.Subscriber
	Idempotency  processedTracker
	Logger       *logger.Logger
}

// Consumer streams pickup lifecycle and rating events into BigQuery.
type Consumer struct {
	inserter     tableInserter
	tables       Tables
	registry     descriptorLookup
	subscription *pubsub.Subscriber
	idempotency  processedTracker
	logg         *logger.Logger
}

func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Inserter == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if strings.TrimSpace(params.Tables.PickupEvents) == "" || strings.TrimSpace(params.Tables.Ratings) == "" {
		return nil, fmt.Errorf("bigquery table names required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("event registry required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		inserter: params.Inserter,
		tables: Tables{
			PickupEvents: strings.TrimSpace(params.Tables.PickupEvents),
			Ratings:      strings.TrimSpace(params.Tables.Ratings),
		},
		registry:     params.Registry,
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		logg:         params.Logger,
	}, nil
}

// Run receives from the analytics subscription until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("analytics subscription required")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg.ID, msg.Attributes["event_type"], msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process reports whether the message can be acked. Undecodable events are
// acked and dropped; warehouse failures are nacked for redelivery.
func (c *Consumer) process(ctx context.Context, messageID, eventType string, data []byte) bool {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	desc, ok := c.registry.Descriptor(enums.OutboxEventType(eventType))
	if !ok || desc.AggregateType != enums.AggregatePickupRequest {
		c.logg.Debug(logCtx, "event not handled by analytics consumer")
		return true
	}

	envelope, payload, err := registry.DecodePayload(desc, data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode event", err)
		return true
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return true
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	batches, err := buildRows(desc.EventType, envelope, payload)
	if err != nil {
		c.logg.Error(logCtx, "failed to build analytics rows", err)
		return true
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, pickupAnalyticsConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return false
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return true
	}

	for _, batch := range batches {
		if err := c.insert(ctx, batch); err != nil {
			c.logg.Error(c.logg.WithField(logCtx, "table", c.table(batch.kind)), "failed to insert analytics row", err)
			_ = c.idempotency.Delete(ctx, pickupAnalyticsConsumer, eventID)
			return false
		}
	}
	c.logg.Info(logCtx, "pickup event ingested")
	return true
}

type rowKind int

const (
	pickupEventRowKind rowKind = iota
	ratingRowKind
)

type rowBatch struct {
	kind     rowKind
	insertID string
	row      any
}

func (c *Consumer) table(kind rowKind) string {
	if kind == ratingRowKind {
		return c.tables.Ratings
	}
	return c.tables.PickupEvents
}

func (c *Consumer) insert(ctx context.Context, batch rowBatch) error {
	saver, err := bigquery.Row(batch.insertID, batch.row)
	if err != nil {
		return err
	}
	return c.inserter.InsertRows(ctx, c.table(batch.kind), []any{saver})
}

type pickupEventRow struct {
	EventID     string               `bigquery:"event_id"`
	EventType   string               `bigquery:"event_type"`
	OccurredAt  time.Time            `bigquery:"occurred_at"`
	PickupID    string               `bigquery:"pickup_id"`
	HouseholdID string               `bigquery:"household_id"`
	AgentID     cbigquery.NullString `bigquery:"agent_id"`
	FromStatus  cbigquery.NullString `bigquery:"from_status"`
	Status      string               `bigquery:"status"`
	WasteType   cbigquery.NullString `bigquery:"waste_type"`
	BinID       cbigquery.NullString `bigquery:"bin_id"`
	ActorRole   cbigquery.NullString `bigquery:"actor_role"`
	Payload     cbigquery.NullJSON   `bigquery:"payload"`
}

type ratingRow struct {
	RatingID     string    `bigquery:"rating_id"`
	EventID      string    `bigquery:"event_id"`
	RatedAt      time.Time `bigquery:"rated_at"`
	PickupID     string    `bigquery:"pickup_id"`
	HouseholdID  string    `bigquery:"household_id"`
	AgentID      string    `bigquery:"agent_id"`
	Score        int       `bigquery:"score"`
	AgentAverage float64   `bigquery:"agent_average_rating"`
}

// buildRows maps one event onto its warehouse rows. Every pickup event lands
// in pickup_events; a rating also lands in pickup_ratings.
func buildRows(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope, payload any) ([]rowBatch, error) {
	row := &pickupEventRow{
		EventID:    envelope.EventID,
		EventType:  string(eventType),
		OccurredAt: envelope.OccurredAt.UTC(),
		Payload:    cbigquery.NullJSON{JSONVal: string(envelope.Data), Valid: len(envelope.Data) > 0},
	}
	if envelope.Actor != nil {
		row.ActorRole = nullString(envelope.Actor.Role)
	}

	switch p := payload.(type) {
	case *payloads.PickupRequestedEvent:
		row.PickupID = p.PickupID.String()
		row.HouseholdID = p.HouseholdID.String()
		row.Status = string(enums.PickupStatusRequested)
		row.WasteType = nullString(string(p.WasteType))
	case *payloads.PickupTransitionEvent:
		row.PickupID = p.PickupID.String()
		row.HouseholdID = p.HouseholdID.String()
		row.AgentID = nullUUID(p.AgentID)
		row.FromStatus = nullString(string(p.FromStatus))
		row.Status = string(p.Status)
		row.BinID = nullUUID(p.BinID)
	case *payloads.PickupRatedEvent:
		row.PickupID = p.PickupID.String()
		row.HouseholdID = p.HouseholdID.String()
		row.AgentID = nullString(p.AgentID.String())
		row.Status = string(enums.PickupStatusCompleted)

		average, err := decimal.NewFromString(p.AverageRating)
		if err != nil {
			return nil, fmt.Errorf("parse average rating: %w", err)
		}
		rating := &ratingRow{
			RatingID:     p.RatingID.String(),
			EventID:      envelope.EventID,
			RatedAt:      envelope.OccurredAt.UTC(),
			PickupID:     p.PickupID.String(),
			HouseholdID:  p.HouseholdID.String(),
			AgentID:      p.AgentID.String(),
			Score:        p.Score,
			AgentAverage: average.InexactFloat64(),
		}
		return []rowBatch{
			{kind: pickupEventRowKind, insertID: envelope.EventID, row: row},
			{kind: ratingRowKind, insertID: p.RatingID.String(), row: rating},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported payload %T", payload)
	}
	return []rowBatch{{kind: pickupEventRowKind, insertID: envelope.EventID, row: row}}, nil
}

func nullString(value string) cbigquery.NullString {
	value = strings.TrimSpace(value)
	return cbigquery.NullString{StringVal: value, Valid: value != ""}
}

func nullUUID(id *uuid.UUID) cbigquery.NullString {
	if id == nil || *id == uuid.Nil {
		return cbigquery.NullString{}
	}
	return cbigquery.NullString{StringVal: id.String(), Valid: true}
}
