package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskMetadata(t *testing.T) {
	got := MaskMetadata(map[string]any{
		"email":          "jane@example.com",
		"client_contact": "+62 812 3456 7890",
		"invoice_number": "0007",
		"nested":         map[string]any{"token": "abcdefgh"},
		"":               "dropped",
	})

	assert.Equal(t, "j****@example.com", got["email"])
	assert.Equal(t, "****7890", got["client_contact"])
	assert.Equal(t, "0007", got["invoice_number"])
	assert.Equal(t, map[string]any{"token": "****efgh"}, got["nested"])
	assert.NotContains(t, got, "")
}

func TestMaskSecretShortValues(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abc"))
}
