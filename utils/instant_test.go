package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInstant(t *testing.T) {
	wib := time.FixedZone("WIB", 7*3600)
	want := time.Date(2025, 3, 10, 9, 0, 0, 0, wib)

	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"naive with seconds", "2025-03-10T09:00:00", want},
		{"naive minutes", "2025-03-10T09:00", want},
		{"naive with space", "2025-03-10 09:00:00", want},
		{"naive fraction", "2025-03-10T09:00:00.000", want},
		{"rfc3339 utc", "2025-03-10T02:00:00Z", want},
		{"rfc3339 offset", "2025-03-10T09:00:00+07:00", want},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInstant(tt.in, wib)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := ParseInstant("tomorrow morning", wib)
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-03-10", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("10/03/2025", time.UTC)
	assert.Error(t, err)
}
