package enums

import "fmt"

// PickupStatus tracks the lifecycle of a pickup request.
type PickupStatus string

const (
	PickupStatusRequested PickupStatus = "REQUESTED"
	PickupStatusAssigned  PickupStatus = "ASSIGNED"
	PickupStatusOnGoing   PickupStatus = "ON_GOING"
	PickupStatusCompleted PickupStatus = "COMPLETED"
	PickupStatusCanceled  PickupStatus = "CANCELED"
)

var validPickupStatuses = []PickupStatus{
	PickupStatusRequested,
	PickupStatusAssigned,
	PickupStatusOnGoing,
	PickupStatusCompleted,
	PickupStatusCanceled,
}

// pickupTransitions lists every allowed edge. Terminal states have none.
var pickupTransitions = map[PickupStatus][]PickupStatus{
	PickupStatusRequested: {PickupStatusAssigned, PickupStatusCanceled},
	PickupStatusAssigned:  {PickupStatusOnGoing, PickupStatusCanceled},
	PickupStatusOnGoing:   {PickupStatusCompleted},
}

// String implements fmt.Stringer.
func (s PickupStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PickupStatus.
func (s PickupStatus) IsValid() bool {
	for _, candidate := range validPickupStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s PickupStatus) IsTerminal() bool {
	return s == PickupStatusCompleted || s == PickupStatusCanceled
}

// IsCancelable reports whether a household may still cancel.
func (s PickupStatus) IsCancelable() bool {
	return s.CanTransitionTo(PickupStatusCanceled)
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s PickupStatus) CanTransitionTo(next PickupStatus) bool {
	for _, candidate := range pickupTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CancelableStatuses returns the statuses from which cancel is allowed.
func CancelableStatuses() []PickupStatus {
	var out []PickupStatus
	for _, status := range validPickupStatuses {
		if status.IsCancelable() {
			out = append(out, status)
		}
	}
	return out
}

// PickupStatuses returns every status in lifecycle order.
func PickupStatuses() []PickupStatus {
	out := make([]PickupStatus, len(validPickupStatuses))
	copy(out, validPickupStatuses)
	return out
}

// ParsePickupStatus converts raw input into a PickupStatus.
func ParsePickupStatus(value string) (PickupStatus, error) {
	for _, candidate := range validPickupStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pickup status %q", value)
}
