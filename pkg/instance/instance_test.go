package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDPrefersEnv(t *testing.T) {
	t.Setenv("COLLECTZ_WORKER_ID", " publisher-2 ")
	assert.Equal(t, "publisher-2", ID())
}

func TestIDFallsBackToHostname(t *testing.T) {
	t.Setenv("COLLECTZ_WORKER_ID", "")
	assert.NotEmpty(t, ID())
}
