package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusDraft, StatusSent, true},
		{StatusDraft, StatusAccepted, true},
		{StatusDraft, StatusRejected, true},
		{StatusDraft, StatusDraft, true},
		{StatusDraft, StatusConverted, false},
		{StatusSent, StatusAccepted, true},
		{StatusSent, StatusRejected, true},
		{StatusSent, StatusDraft, false},
		{StatusAccepted, StatusRejected, false},
		{StatusAccepted, StatusSent, false},
		{StatusAccepted, StatusAccepted, true},
		{StatusRejected, StatusAccepted, false},
		{StatusConverted, StatusConverted, false},
		{StatusConverted, StatusDraft, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestCapabilities(t *testing.T) {
	assert.True(t, StatusDraft.CanEdit())
	assert.True(t, StatusRejected.CanEdit())
	assert.False(t, StatusConverted.CanEdit())

	assert.True(t, StatusDraft.CanConvert())
	assert.True(t, StatusSent.CanConvert())
	assert.True(t, StatusAccepted.CanConvert())
	assert.False(t, StatusRejected.CanConvert())
	assert.False(t, StatusConverted.CanConvert())

	assert.False(t, StatusDraft.Terminal())
	assert.True(t, StatusAccepted.Terminal())
	assert.True(t, StatusConverted.Terminal())
}

func TestParseStatus(t *testing.T) {
	status, ok := ParseStatus("  Sent ")
	assert.True(t, ok)
	assert.Equal(t, StatusSent, status)

	_, ok = ParseStatus("archived")
	assert.False(t, ok)
}
