package domain

import (
	"errors"
	"time"
)

type ReservationStatus string

const (
	StatusHeld      ReservationStatus = "HELD"
	StatusCommitted ReservationStatus = "COMMITTED"
	StatusReleased  ReservationStatus = "RELEASED"
	StatusDenied    ReservationStatus = "DENIED"
)

var ErrNotFound = errors.New("reservation not found")

// Reservation is one booking's claim against a user's weekly minute budget.
// HELD and COMMITTED minutes both count toward the cap; RELEASED and DENIED
// do not.
type Reservation struct {
	ID              int64
	UserID          int64
	BookingID       int64
	WeekStart       time.Time
	MinutesReserved int
	Status          ReservationStatus
}

// WeekStart returns the Monday 00:00:00 UTC that opens the accounting week
// containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	wd := (int(t.Weekday()) + 6) % 7 // Monday = 0
	t = t.AddDate(0, 0, -wd)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DurationMinutes is the booking length in whole minutes, truncated.
func DurationMinutes(start, end time.Time) int {
	return int(end.Sub(start) / time.Minute)
}

// Exceeds reports whether adding duration to the minutes already held or
// committed would break the weekly cap.
func Exceeds(held, duration, cap int) bool {
	return held+duration > cap
}
