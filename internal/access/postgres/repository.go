package postgres

import (
	"context"
	"errors"

	"github.com/baechuer/studio-booking/internal/access/domain"
	"github.com/jackc/pgx/v5"
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
		CREATE TABLE IF NOT EXISTS access_codes (
			booking_id BIGINT PRIMARY KEY,
			code       TEXT NOT NULL,
			valid_from TIMESTAMPTZ NOT NULL,
			valid_to   TIMESTAMPTZ NOT NULL,
			status     TEXT NOT NULL DEFAULT 'ACTIVE',
			CHECK (valid_from < valid_to)
		);
	`)
	return err
}

// CreateOrGet persists the code for a booking, or returns the one already
// issued. BookingCreated can be redelivered; the first issued code wins so a
// duplicate delivery republishes the same secret instead of minting another.
func (r *Repository) CreateOrGet(ctx context.Context, ac domain.AccessCode) (code string, created bool, err error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO access_codes (booking_id, code, valid_from, valid_to, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (booking_id) DO NOTHING
	`, ac.BookingID, ac.Code, ac.ValidFrom, ac.ValidTo, string(ac.Status))
	if err != nil {
		return "", false, err
	}
	if tag.RowsAffected() == 1 {
		return ac.Code, true, nil
	}

	existing, err := r.Get(ctx, ac.BookingID)
	if err != nil {
		return "", false, err
	}
	return existing.Code, false, nil
}

func (r *Repository) Get(ctx context.Context, bookingID int64) (domain.AccessCode, error) {
	var ac domain.AccessCode
	err := r.pool.QueryRow(ctx, `
		SELECT booking_id, code, valid_from, valid_to, status
		FROM access_codes
		WHERE booking_id = $1
	`, bookingID).Scan(&ac.BookingID, &ac.Code, &ac.ValidFrom, &ac.ValidTo, &ac.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AccessCode{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.AccessCode{}, err
	}
	ac.ValidFrom = ac.ValidFrom.UTC()
	ac.ValidTo = ac.ValidTo.UTC()
	return ac, nil
}

// Revoke marks a code REVOKED. Idempotent; reports whether a row existed.
func (r *Repository) Revoke(ctx context.Context, bookingID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE access_codes SET status = $2 WHERE booking_id = $1
	`, bookingID, string(domain.StatusRevoked))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
