package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/baechuer/studio-booking/internal/quota/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS quota_reservations (
			id               BIGSERIAL PRIMARY KEY,
			user_id          BIGINT NOT NULL,
			booking_id       BIGINT NOT NULL,
			week_start       TIMESTAMPTZ NOT NULL,
			minutes_reserved INT NOT NULL,
			status           TEXT NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_quota_user_week
			ON quota_reservations (user_id, week_start);
	`)
	return err
}

// Reserve checks the user's week against the cap and records the outcome.
// The check-then-insert runs under a per-(user, week) advisory lock so two
// concurrent reservations for the same user cannot both pass the sum check.
// Returns the reservation and whether it was granted.
func (r *Repository) Reserve(ctx context.Context, userID, bookingID int64, weekStart time.Time, durationMin, capMin int) (domain.Reservation, bool, error) {
	res := domain.Reservation{
		UserID:    userID,
		BookingID: bookingID,
		WeekStart: weekStart.UTC(),
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Reservation{}, false, err
	}
	defer tx.Rollback(ctx)

	lockKey := fmt.Sprintf("%d:%d", userID, res.WeekStart.Unix())
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
		return domain.Reservation{}, false, err
	}

	var held int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(minutes_reserved), 0)
		FROM quota_reservations
		WHERE user_id = $1 AND week_start = $2 AND status IN ('HELD', 'COMMITTED')
	`, userID, res.WeekStart).Scan(&held)
	if err != nil {
		return domain.Reservation{}, false, err
	}

	granted := !domain.Exceeds(held, durationMin, capMin)
	if granted {
		res.Status = domain.StatusHeld
		res.MinutesReserved = durationMin
	} else {
		res.Status = domain.StatusDenied
		res.MinutesReserved = 0
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO quota_reservations (user_id, booking_id, week_start, minutes_reserved, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, res.UserID, res.BookingID, res.WeekStart, res.MinutesReserved, string(res.Status)).Scan(&res.ID)
	if err != nil {
		return domain.Reservation{}, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Reservation{}, false, err
	}
	return res, granted, nil
}

// Commit flips a reservation to COMMITTED. Idempotent; reports whether the
// reservation exists.
func (r *Repository) Commit(ctx context.Context, reservationID int64) (bool, error) {
	return r.setStatus(ctx, reservationID, domain.StatusCommitted)
}

// Release flips a reservation to RELEASED, returning its minutes to the
// week's budget.
func (r *Repository) Release(ctx context.Context, reservationID int64) (bool, error) {
	return r.setStatus(ctx, reservationID, domain.StatusReleased)
}

func (r *Repository) setStatus(ctx context.Context, reservationID int64, status domain.ReservationStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE quota_reservations SET status = $2 WHERE id = $1
	`, reservationID, string(status))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
