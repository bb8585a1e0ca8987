package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event types broadcast on the "events" exchange.
const (
	TypeBookingCreated    = "BookingCreated"
	TypeAccessCodeIssued  = "AccessCodeIssued"
	TypeAccessIssueFailed = "AccessIssueFailed"
	TypeQuotaReserved     = "QuotaReserved"
	TypeQuotaDenied       = "QuotaDenied"
	TypeBookingReady      = "BookingReady"
	TypeBookingCheckedIn  = "BookingCheckedIn"
	TypeBookingCheckedOut = "BookingCheckedOut"
	TypeBookingCancelled  = "BookingCancelled"
)

// Envelope is the canonical wire format on the "events" exchange.
// messageId is optional; consumers that dedupe fall back to "{type}:{bookingId}".
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	MessageID string          `json:"messageId,omitempty"`
}

// Decode parses an envelope off the wire. A missing type is treated as
// malformed so poison messages can be dropped in one place.
func Decode(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, err
	}
	env.Type = strings.TrimSpace(env.Type)
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("envelope missing type")
	}
	return env, nil
}

// DedupID returns the consumer-side dedup key for this envelope.
func (e Envelope) DedupID(bookingID int64) string {
	if id := strings.TrimSpace(e.MessageID); id != "" {
		return id
	}
	return fmt.Sprintf("%s:%d", e.Type, bookingID)
}

// BookingRef carries only the booking id; several events need nothing else.
type BookingRef struct {
	BookingID int64 `json:"bookingId"`
}

type BookingCreatedPayload struct {
	BookingID int64     `json:"bookingId"`
	UserID    int64     `json:"userId"`
	StudioID  int64     `json:"studioId"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

type AccessCodeIssuedPayload struct {
	BookingID int64  `json:"bookingId"`
	Code      string `json:"code"`
}

type AccessIssueFailedPayload struct {
	BookingID int64  `json:"bookingId"`
	Reason    string `json:"reason"`
}

type QuotaReservedPayload struct {
	BookingID     int64  `json:"bookingId"`
	ReservationID string `json:"reservationId"`
}

type QuotaDeniedPayload struct {
	BookingID int64  `json:"bookingId"`
	Reason    string `json:"reason"`
}

type BookingCancelledPayload struct {
	BookingID int64  `json:"bookingId"`
	Reason    string `json:"reason"`
}
