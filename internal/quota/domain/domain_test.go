package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekStart(t *testing.T) {
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"monday midnight maps to itself", monday, monday},
		{"mid week", time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC), monday},
		{"sunday belongs to the week behind it", time.Date(2025, 3, 16, 23, 59, 59, 0, time.UTC), monday},
		{"non-utc input is normalized first", time.Date(2025, 3, 10, 1, 0, 0, 0, time.FixedZone("EST", -5*3600)), monday},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := WeekStart(tc.in)
			assert.True(t, got.Equal(tc.want), "got %v want %v", got, tc.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestDurationMinutes(t *testing.T) {
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, 60, DurationMinutes(start, start.Add(time.Hour)))
	assert.Equal(t, 90, DurationMinutes(start, start.Add(90*time.Minute)))
	assert.Equal(t, 1, DurationMinutes(start, start.Add(90*time.Second)), "partial minutes truncate")
}

func TestExceeds(t *testing.T) {
	assert.False(t, Exceeds(170, 10, 180), "exactly at cap is allowed")
	assert.True(t, Exceeds(170, 20, 180))
	assert.False(t, Exceeds(0, 180, 180))
	assert.True(t, Exceeds(0, 181, 180))
}
