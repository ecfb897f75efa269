package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregatePickupRequest OutboxAggregateType = "pickup_request"
	AggregateAgentProfile  OutboxAggregateType = "agent_profile"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregatePickupRequest,
	AggregateAgentProfile,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a domain event carried through the outbox.
type OutboxEventType string

const (
	EventPickupRequested OutboxEventType = "pickup_requested"
	EventPickupAccepted  OutboxEventType = "pickup_accepted"
	EventPickupStarted   OutboxEventType = "pickup_started"
	EventPickupCompleted OutboxEventType = "pickup_completed"
	EventPickupCanceled  OutboxEventType = "pickup_canceled"
	EventPickupRated     OutboxEventType = "pickup_rated"
	EventAgentKYCChanged OutboxEventType = "agent_kyc_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPickupRequested,
	EventPickupAccepted,
	EventPickupStarted,
	EventPickupCompleted,
	EventPickupCanceled,
	EventPickupRated,
	EventAgentKYCChanged,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason records why a row left the publish loop.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
