package postgres

import (
	"context"
	"errors"

	"github.com/baechuer/studio-booking/internal/booking/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the booking store tables when absent. The original
// deployment creates its schema at startup, so the repo keeps that behavior.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bookings (
			id                   BIGSERIAL PRIMARY KEY,
			user_id              BIGINT NOT NULL,
			studio_id            BIGINT NOT NULL,
			start_at             TIMESTAMPTZ NOT NULL,
			end_at               TIMESTAMPTZ NOT NULL,
			status               TEXT NOT NULL DEFAULT 'PENDING',
			code                 TEXT,
			quota_reservation_id TEXT,
			created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (start_at < end_at)
		);

		CREATE TABLE IF NOT EXISTS processed_messages (
			id           BIGSERIAL PRIMARY KEY,
			message_id   TEXT NOT NULL UNIQUE,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

const bookingColumns = `id, user_id, studio_id, start_at, end_at, status, code, quota_reservation_id, created_at`

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.ID, &b.UserID, &b.StudioID, &b.Start, &b.End, &b.Status, &b.Code, &b.QuotaReservationID, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Booking{}, err
	}
	b.Start = b.Start.UTC()
	b.End = b.End.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	return b, nil
}

func (r *Repository) Create(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO bookings (user_id, studio_id, start_at, end_at, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+bookingColumns,
		b.UserID, b.StudioID, b.Start, b.End, string(b.Status))
	return scanBooking(row)
}

func (r *Repository) Get(ctx context.Context, id int64) (domain.Booking, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	return scanBooking(row)
}

func (r *Repository) ListRecent(ctx context.Context, limit int) ([]domain.Booking, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateStatus moves a booking from one status to another. The WHERE clause on
// the current status is the guard against racing commands and consumer events.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to domain.Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE bookings SET status = $3 WHERE id = $1 AND status = $2`,
		id, string(from), string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrStatusConflict
}

// --- transactional variants used by the event consumer inside ProcessOnce ---

func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (domain.Booking, error) {
	row := tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
	return scanBooking(row)
}

func (r *Repository) SetCode(ctx context.Context, tx pgx.Tx, id int64, code string) error {
	_, err := tx.Exec(ctx, `UPDATE bookings SET code = $2 WHERE id = $1`, id, code)
	return err
}

func (r *Repository) SetQuotaReservation(ctx context.Context, tx pgx.Tx, id int64, reservationID string) error {
	_, err := tx.Exec(ctx, `UPDATE bookings SET quota_reservation_id = $2 WHERE id = $1`, id, reservationID)
	return err
}

func (r *Repository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id int64, to domain.Status) error {
	_, err := tx.Exec(ctx, `UPDATE bookings SET status = $2 WHERE id = $1`, id, string(to))
	return err
}
