package instance

import (
	"os"
	"strings"
)

// ID names this worker replica in logs. COLLECTZ_WORKER_ID wins, then the
// container hostname.
func ID() string {
	if id := strings.TrimSpace(os.Getenv("COLLECTZ_WORKER_ID")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
