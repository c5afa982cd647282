package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/hivecinema/hive/internal/fault"
	"github.com/hivecinema/hive/internal/model"
)

// OutboxRepo provides the dispatcher's view of the outbox table.  Producers
// never touch this repo directly: events are inserted by the business
// transaction that causes them (see TicketRepo.Confirm).  Claims rely on
// SELECT ... FOR UPDATE SKIP LOCKED so two dispatcher replicas can never own
// the same row; the processing_at sentinel plus the stuck-reset substitutes
// for a lease.
type OutboxRepo struct {
	db *sql.DB
}

// NewOutboxRepo returns a new OutboxRepo bound to the given database.
func NewOutboxRepo(db *sql.DB) *OutboxRepo { return &OutboxRepo{db: db} }

// insertOutboxTx stages a message inside the caller's transaction.
func insertOutboxTx(ctx context.Context, tx *sql.Tx, m *model.OutboxMessage) error {
	const q = `INSERT INTO outbox_messages (id, event_type, payload, created_at, retry_count)
	           VALUES (?, ?, ?, ?, 0)`
	_, err := tx.ExecContext(ctx, q, m.ID.String(), m.EventType, m.Payload, m.CreatedAt)
	return fault.Wrap(fault.KindInternal, "insert outbox message", err)
}

// ResetStuck clears the claim sentinel on rows that were claimed longer ago
// than the cutoff but never finished, so the next pass reclaims them.  It
// returns how many rows were reset.
func (r *OutboxRepo) ResetStuck(ctx context.Context, before time.Time) (int64, error) {
	const q = `UPDATE outbox_messages SET processing_at = NULL
	           WHERE processing_at IS NOT NULL AND processed_at IS NULL AND processing_at < ?`
	res, err := r.db.ExecContext(ctx, q, before)
	if err != nil {
		return 0, fault.Wrap(fault.KindInternal, "reset stuck outbox rows", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fault.Wrap(fault.KindInternal, "reset stuck outbox rows", err)
	}
	return n, nil
}

// Claim atomically takes ownership of up to limit unprocessed rows below the
// retry ceiling, oldest first.  The select locks the rows (skipping ones
// locked by a competing dispatcher) and the same transaction stamps
// processing_at before committing, which is the claim.
func (r *OutboxRepo) Claim(ctx context.Context, limit, maxRetries int) ([]model.OutboxMessage, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "begin claim", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const sel = `SELECT id, event_type, payload, created_at, retry_count, error_message
	             FROM outbox_messages
	             WHERE processed_at IS NULL AND processing_at IS NULL AND retry_count < ?
	             ORDER BY created_at
	             LIMIT ?
	             FOR UPDATE SKIP LOCKED`
	rows, err := tx.QueryContext(ctx, sel, maxRetries, limit)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "select outbox batch", err)
	}
	claimed := make([]model.OutboxMessage, 0, limit)
	for rows.Next() {
		var m model.OutboxMessage
		var id string
		if err := rows.Scan(&id, &m.EventType, &m.Payload, &m.CreatedAt, &m.RetryCount, &m.ErrorMessage); err != nil {
			rows.Close()
			return nil, fault.Wrap(fault.KindInternal, "scan outbox row", err)
		}
		if m.ID, err = uuid.Parse(id); err != nil {
			rows.Close()
			return nil, fault.Wrap(fault.KindInternal, "scan outbox row", err)
		}
		claimed = append(claimed, m)
	}
	if err := rows.Close(); err != nil {
		return nil, fault.Wrap(fault.KindInternal, "select outbox batch", err)
	}
	if len(claimed) == 0 {
		_ = tx.Rollback()
		return nil, nil
	}
	now := time.Now().UTC()
	query := `UPDATE outbox_messages SET processing_at = ? WHERE id IN (`
	args := []any{now}
	for i, m := range claimed {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, m.ID.String())
	}
	query += ")"
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fault.Wrap(fault.KindInternal, "mark outbox batch processing", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fault.Wrap(fault.KindInternal, "commit claim", err)
	}
	committed = true
	for i := range claimed {
		at := now
		claimed[i].ProcessingAt = &at
	}
	return claimed, nil
}

// MarkProcessed records a successful publish and clears any stale error.
func (r *OutboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE outbox_messages SET processed_at = UTC_TIMESTAMP(), error_message = NULL
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, id.String())
	return fault.Wrap(fault.KindInternal, "mark outbox processed", err)
}

// MarkFailed records a publish failure: the retry counter advances, the error
// is kept for operators and the claim is released.  When poisoned is set the
// row also gets processed_at so it is never claimed again yet remains
// auditable.
func (r *OutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, poisoned bool) error {
	if poisoned {
		const q = `UPDATE outbox_messages
		           SET retry_count = retry_count + 1, error_message = ?, processing_at = NULL, processed_at = UTC_TIMESTAMP()
		           WHERE id = ?`
		_, err := r.db.ExecContext(ctx, q, errMsg, id.String())
		return fault.Wrap(fault.KindInternal, "poison outbox row", err)
	}
	const q = `UPDATE outbox_messages
	           SET retry_count = retry_count + 1, error_message = ?, processing_at = NULL
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, errMsg, id.String())
	return fault.Wrap(fault.KindInternal, "mark outbox failed", err)
}
