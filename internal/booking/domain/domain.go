package domain

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusReady     Status = "READY"
	StatusInUse     Status = "IN_USE"
	StatusFinished  Status = "FINISHED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal statuses accept no further transitions.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

var (
	ErrNotFound        = errors.New("booking not found")
	ErrInvalidInterval = errors.New("start must be before end")
	ErrNotReady        = errors.New("booking is not READY")
	ErrNotInUse        = errors.New("booking is not IN_USE")
	ErrInvalidCode     = errors.New("invalid access code")
	ErrStatusConflict  = errors.New("booking status changed concurrently")
)

// Booking is the orchestrator's entity. Instants are stored in UTC; code and
// quota reservation id are merged in asynchronously by the event consumer.
type Booking struct {
	ID                 int64
	UserID             int64
	StudioID           int64
	Start              time.Time
	End                time.Time
	Status             Status
	Code               *string
	QuotaReservationID *string
	CreatedAt          time.Time
}

type BookingRepository interface {
	Create(ctx context.Context, b Booking) (Booking, error)
	Get(ctx context.Context, id int64) (Booking, error)
	ListRecent(ctx context.Context, limit int) ([]Booking, error)
	// UpdateStatus is a compare-and-swap; ErrStatusConflict when the row moved.
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
}

// AccessClient validates an access code against the access provisioner.
type AccessClient interface {
	Validate(ctx context.Context, bookingID int64, code string) (bool, error)
}

// QuotaClient commits or releases a quota reservation on the accountant.
type QuotaClient interface {
	Commit(ctx context.Context, reservationID string) (bool, error)
	Release(ctx context.Context, reservationID string) (bool, error)
}

// EventPublisher broadcasts an event on the shared bus.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}
