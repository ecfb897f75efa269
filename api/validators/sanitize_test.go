package validators

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStringTrims(t *testing.T) {
	assert.Equal(t, "Bastos", SanitizeString("  Bastos \n", 0))
	assert.Equal(t, "Bastos", SanitizeString("Bastos", 10))
}

func TestSanitizeStringCutsOnRuneBoundary(t *testing.T) {
	got := SanitizeString("Marché Central", 6)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "Marché", got)

	got = SanitizeString("Marché Central", 5)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "March", got)

	assert.Equal(t, "éé", SanitizeString("ééé", 2))
}
