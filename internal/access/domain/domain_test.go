package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := GenerateCode()
		assert.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "code %q must be decimal digits", code)
		}
	}
}

func TestAccepts(t *testing.T) {
	from := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)
	ac := AccessCode{BookingID: 1, Code: "123456", ValidFrom: from, ValidTo: to, Status: StatusActive}

	cases := []struct {
		name string
		code string
		now  time.Time
		want bool
	}{
		{"matching code inside window", "123456", from.Add(30 * time.Minute), true},
		{"window boundaries are inclusive", "123456", from, true},
		{"wrong code", "654321", from.Add(30 * time.Minute), false},
		{"before window", "123456", from.Add(-time.Minute), false},
		{"after window", "123456", to.Add(time.Minute), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ac.Accepts(tc.code, tc.now))
		})
	}
}

func TestAcceptsRejectsNonActive(t *testing.T) {
	from := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	ac := AccessCode{Code: "123456", ValidFrom: from, ValidTo: from.Add(time.Hour), Status: StatusRevoked}
	assert.False(t, ac.Accepts("123456", from.Add(time.Minute)))

	ac.Status = StatusExpired
	assert.False(t, ac.Accepts("123456", from.Add(time.Minute)))
}
