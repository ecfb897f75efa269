package enums

// HouseholdSubscriptionStatus mirrors the household's collection plan state.
type HouseholdSubscriptionStatus string

const (
	SubscriptionStatusNone    HouseholdSubscriptionStatus = "NONE"
	SubscriptionStatusActive  HouseholdSubscriptionStatus = "ACTIVE"
	SubscriptionStatusExpired HouseholdSubscriptionStatus = "EXPIRED"
)
