package notifications

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/collectz-backend/pkg/db/models"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
	"github.com/angelmondragon/collectz-backend/pkg/outbox/payloads"
)

// compose turns a decoded domain event into the notifications it produces.
// Events nobody needs to hear about yield nil.
func compose(eventType enums.OutboxEventType, payload any) ([]*models.Notification, error) {
	switch p := payload.(type) {
	case *payloads.PickupTransitionEvent:
		return composeTransition(eventType, p)
	case *payloads.PickupRatedEvent:
		if p.AgentUserID == uuid.Nil {
			return nil, fmt.Errorf("agent user id missing")
		}
		return []*models.Notification{pickupNotification(p.AgentUserID, p.PickupID, enums.NotificationTypeRating,
			"New rating received",
			fmt.Sprintf("Pickup %s was rated %d/5. Your average is now %s.", p.TrackingLabel, p.Score, p.AverageRating),
		)}, nil
	case *payloads.AgentKYCChangedEvent:
		return composeKYC(p)
	default:
		return nil, nil
	}
}

func composeTransition(eventType enums.OutboxEventType, p *payloads.PickupTransitionEvent) ([]*models.Notification, error) {
	switch eventType {
	case enums.EventPickupAccepted, enums.EventPickupStarted, enums.EventPickupCompleted:
		if p.HouseholdUserID == uuid.Nil {
			return nil, fmt.Errorf("household user id missing")
		}
		title, message := householdCopy(eventType, p.TrackingLabel)
		return []*models.Notification{
			pickupNotification(p.HouseholdUserID, p.PickupID, enums.NotificationTypePickupUpdate, title, message),
		}, nil
	case enums.EventPickupCanceled:
		if p.AgentUserID == nil || *p.AgentUserID == uuid.Nil {
			return nil, nil
		}
		return []*models.Notification{pickupNotification(*p.AgentUserID, p.PickupID, enums.NotificationTypePickupUpdate,
			"Pickup canceled",
			fmt.Sprintf("The household canceled pickup %s.", p.TrackingLabel),
		)}, nil
	default:
		return nil, nil
	}
}

func householdCopy(eventType enums.OutboxEventType, label string) (string, string) {
	switch eventType {
	case enums.EventPickupAccepted:
		return "Pickup accepted", fmt.Sprintf("An agent accepted pickup %s.", label)
	case enums.EventPickupStarted:
		return "Agent on the way", fmt.Sprintf("Collection for pickup %s has started.", label)
	default:
		return "Pickup completed", fmt.Sprintf("Pickup %s is complete. Rate your agent.", label)
	}
}

func composeKYC(p *payloads.AgentKYCChangedEvent) ([]*models.Notification, error) {
	if p.AgentUserID == uuid.Nil {
		return nil, fmt.Errorf("agent user id missing")
	}
	title := "Verification updated"
	message := fmt.Sprintf("Your verification status is now %s.", p.Status)
	switch p.Status {
	case enums.KYCStatusApproved:
		title = "Verification approved"
		message = "Your documents were approved. Your agent profile is now verified."
	case enums.KYCStatusRejected:
		title = "Verification rejected"
		if p.Reason != "" {
			message = fmt.Sprintf("Your documents were rejected. Reason: %s", p.Reason)
		}
	}
	return []*models.Notification{{
		UserID:  p.AgentUserID,
		Type:    enums.NotificationTypeAccount,
		Title:   title,
		Message: message,
		Link:    stringPtr("/profiles/me"),
	}}, nil
}

func pickupNotification(userID, pickupID uuid.UUID, kind enums.NotificationType, title, message string) *models.Notification {
	id := pickupID
	return &models.Notification{
		UserID:   userID,
		PickupID: &id,
		Type:     kind,
		Title:    title,
		Message:  message,
		Link:     stringPtr(fmt.Sprintf("/pickups/%s", pickupID)),
	}
}

func stringPtr(value string) *string {
	return &value
}
