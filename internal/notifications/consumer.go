package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/collectz-backend/pkg/db/models"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
	"github.com/angelmondragon/collectz-backend/pkg/logger"
	"github.com/angelmondragon/collectz-backend/pkg/outbox/registry"
)

const pickupNotificationConsumer = "pickup-notifications"

type descriptorLookup interface {
	Descriptor(eventType enums.OutboxEventType) (registry.EventDescriptor, bool)
}

type processedTracker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type recipientLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ConsumerParams wires the pickup notification consumer.
type ConsumerParams struct {
	Repo         Repository
	Registry     descriptorLookup
	Subscription *pubsub.Subscriber
	Idempotency  processedTracker
	Logger       *logger.Logger
	// Mailer and Recipients are optional; both are needed to send e-mail.
	Mailer     Mailer
	Recipients recipientLookup
}

// Consumer turns pickup lifecycle events into in-app notifications.
type Consumer struct {
	repo         Repository
	registry     descriptorLookup
	subscription *pubsub.Subscriber
	idempotency  processedTracker
	mailer       Mailer
	recipients   recipientLookup
	logg         *logger.Logger
}

// NewConsumer builds a pickup notification consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
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
		repo:         params.Repo,
		registry:     params.Registry,
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		mailer:       params.Mailer,
		recipients:   params.Recipients,
		logg:         params.Logger,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("notification subscription required")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.ID, msg.Attributes["event_type"], msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, messageID, eventType string, data []byte) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	desc, ok := c.registry.Descriptor(enums.OutboxEventType(eventType))
	if !ok {
		c.logg.Info(logCtx, "skipping unknown event")
		return processResult{ack: true}
	}

	envelope, payload, err := registry.DecodePayload(desc, data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode event", err)
		return processResult{ack: true}
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	notifications, err := compose(desc.EventType, payload)
	if err != nil {
		c.logg.Error(logCtx, "event missing recipient", err)
		return processResult{ack: true}
	}
	if len(notifications) == 0 {
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, pickupNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	for _, notification := range notifications {
		if err := c.repo.Create(ctx, notification); err != nil {
			c.logg.Error(logCtx, "notification insert failed", err)
			_ = c.idempotency.Delete(ctx, pickupNotificationConsumer, eventID)
			return processResult{nack: true}
		}
		c.mail(logCtx, notification)
	}
	c.logg.Info(c.logg.WithField(logCtx, "notifications", len(notifications)), "notifications created")
	return processResult{ack: true}
}

// mail is best effort. The in-app row is already stored.
func (c *Consumer) mail(ctx context.Context, notification *models.Notification) {
	if c.mailer == nil || c.recipients == nil {
		return
	}
	user, err := c.recipients.FindByID(ctx, notification.UserID)
	if err != nil {
		c.logg.Warn(ctx, fmt.Sprintf("recipient lookup failed: %v", err))
		return
	}
	if user.Email == nil || strings.TrimSpace(*user.Email) == "" {
		return
	}
	if err := c.mailer.Send(ctx, *user.Email, notification.Title, notification.Message); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.logg.Warn(ctx, fmt.Sprintf("notification mail failed: %v", err))
	}
}
