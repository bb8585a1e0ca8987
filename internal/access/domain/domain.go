package domain

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

type CodeStatus string

const (
	StatusActive  CodeStatus = "ACTIVE"
	StatusRevoked CodeStatus = "REVOKED"
	StatusExpired CodeStatus = "EXPIRED"
)

var ErrNotFound = errors.New("access code not found")

// AccessCode is the 6-digit shared secret bound to a booking's validity
// window. One code per booking.
type AccessCode struct {
	BookingID int64
	Code      string
	ValidFrom time.Time
	ValidTo   time.Time
	Status    CodeStatus
}

// Accepts reports whether the presented code opens the door right now.
func (c AccessCode) Accepts(code string, now time.Time) bool {
	if c.Status != StatusActive {
		return false
	}
	if c.Code != code {
		return false
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidTo) {
		return false
	}
	return true
}

// GenerateCode draws a 6-digit decimal code uniformly at random.
func GenerateCode() string {
	return fmt.Sprintf("%06d", rand.Intn(1_000_000))
}
