package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
)

// TryMarkProcessedTx inserts the message id once.
//
//	ok=true  -> first time processed
//	ok=false -> duplicate delivery (already processed)
func (r *Repository) TryMarkProcessedTx(ctx context.Context, tx pgx.Tx, messageID string) (ok bool, err error) {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		// Without a message id there is nothing to fence on.
		return true, nil
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO processed_messages (message_id)
		VALUES ($1)
		ON CONFLICT DO NOTHING
	`, messageID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ProcessOnce runs fn inside a DB transaction guarded by the processed_messages
// idempotency fence.
// - Duplicate (already processed): fn is NOT executed; processed=false, err=nil.
// - fn fails: tx rolls back, the marker does not persist, the message can retry.
func (r *Repository) ProcessOnce(
	ctx context.Context,
	messageID string,
	fn func(tx pgx.Tx) error,
) (processed bool, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	first, err := r.TryMarkProcessedTx(ctx, tx, messageID)
	if err != nil {
		return false, err
	}
	if !first {
		return false, nil
	}

	if err := fn(tx); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
