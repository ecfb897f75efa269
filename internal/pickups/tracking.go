package pickups

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewTrackingLabel derives the human-facing reference printed on pickup
// receipts, e.g. CZ-260314-3F9A1C2B40D7. The suffix comes from the pickup id so
// labels stay unique without a lookup.
func NewTrackingLabel(pickupID uuid.UUID, scheduled time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(pickupID.String(), "-", "")[:12])
	return fmt.Sprintf("CZ-%s-%s", scheduled.UTC().Format("060102"), suffix)
}
