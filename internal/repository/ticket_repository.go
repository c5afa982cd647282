package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hivecinema/hive/internal/fault"
	"github.com/hivecinema/hive/internal/model"
	"github.com/hivecinema/hive/internal/seatmap"
)

// TicketRepo provides access to tickets and owns the transactions that
// couple a ticket transition to its showtime's seat buffer.  Each lifecycle
// method is one atomic unit: the showtime compare-and-swap and the ticket
// write commit together or not at all.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `id, user_id, user_email, showtime_id, booking_reference, reserved_seats,
	total_amount_cents, status, created_at, paid_at, is_deleted, deleted_at`

func scanTicket(row interface{ Scan(...any) error }) (*model.Ticket, error) {
	var t model.Ticket
	var id, showtimeID string
	var seatsRaw []byte
	var cents int64
	if err := row.Scan(
		&id, &t.UserID, &t.UserEmail, &showtimeID, &t.BookingReference, &seatsRaw,
		&cents, &t.Status, &t.CreatedAt, &t.PaidAt, &t.IsDeleted, &t.DeletedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if t.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if t.ShowtimeID, err = uuid.Parse(showtimeID); err != nil {
		return nil, err
	}
	t.TotalAmount = model.Money(cents)
	if len(seatsRaw) > 0 {
		if err := json.Unmarshal(seatsRaw, &t.ReservedSeats); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

// CreatePending persists a reservation: the mutated seat buffer goes out
// under the showtime's version token and the Pending ticket row is inserted
// in the same transaction.  A unique-index collision on booking_reference
// surfaces as ErrDuplicateReference so the service can regenerate; a version
// mismatch surfaces as a concurrency fault.  On success the in-memory
// showtime version is advanced.
func (r *TicketRepo) CreatePending(ctx context.Context, t *model.Ticket, s *model.Showtime) error {
	seatsRaw, err := json.Marshal(t.ReservedSeats)
	if err != nil {
		return fault.Wrap(fault.KindInternal, "encode reserved seats", err)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fault.Wrap(fault.KindInternal, "begin reserve", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := updateSeatStateTx(ctx, tx, s); err != nil {
		return err
	}
	const q = `INSERT INTO tickets (id, user_id, user_email, showtime_id, booking_reference, reserved_seats,
	           total_amount_cents, status, created_at, is_deleted)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`
	if _, err := tx.ExecContext(ctx, q, t.ID.String(), t.UserID, t.UserEmail, t.ShowtimeID.String(),
		t.BookingReference, seatsRaw, t.TotalAmount.Cents(), t.Status, t.CreatedAt); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateReference
		}
		return fault.Wrap(fault.KindInternal, "insert ticket", err)
	}
	if err := tx.Commit(); err != nil {
		return fault.Wrap(fault.KindInternal, "commit reserve", err)
	}
	committed = true
	s.Version++
	return nil
}

// Confirm persists a payment confirmation: seat buffer (cells now Sold),
// ticket status and the outbox notification commit atomically.  The ticket
// update is guarded on Pending so a ticket expired by a concurrent sweep can
// never be revived even if the buffer write raced through first.
func (r *TicketRepo) Confirm(ctx context.Context, t *model.Ticket, s *model.Showtime, msg *model.OutboxMessage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fault.Wrap(fault.KindInternal, "begin confirm", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := updateSeatStateTx(ctx, tx, s); err != nil {
		return err
	}
	const q = `UPDATE tickets SET status = ?, paid_at = ? WHERE id = ? AND status = ? AND is_deleted = 0`
	res, err := tx.ExecContext(ctx, q, model.TicketConfirmed, t.PaidAt, t.ID.String(), model.TicketPending)
	if err != nil {
		return fault.Wrap(fault.KindInternal, "update ticket", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fault.Wrap(fault.KindInternal, "update ticket", err)
	}
	if n == 0 {
		return fault.Concurrency("ticket left pending state concurrently")
	}
	if msg != nil {
		if err := insertOutboxTx(ctx, tx, msg); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fault.Wrap(fault.KindInternal, "commit confirm", err)
	}
	committed = true
	t.Status = model.TicketConfirmed
	s.Version++
	return nil
}

// Expire persists one showtime's sweep results: the released buffer and the
// Expired flips of every listed ticket commit together.  The status guard
// keeps a concurrently-confirmed ticket out of the update even when it was
// selected by the scan.
func (r *TicketRepo) Expire(ctx context.Context, s *model.Showtime, ticketIDs []uuid.UUID) error {
	if len(ticketIDs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fault.Wrap(fault.KindInternal, "begin expire", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := updateSeatStateTx(ctx, tx, s); err != nil {
		return err
	}
	query := `UPDATE tickets SET status = ? WHERE status = ? AND id IN (`
	args := []any{model.TicketExpired, model.TicketPending}
	for i, id := range ticketIDs {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, id.String())
	}
	query += ")"
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fault.Wrap(fault.KindInternal, "expire tickets", err)
	}
	if err := tx.Commit(); err != nil {
		return fault.Wrap(fault.KindInternal, "commit expire", err)
	}
	committed = true
	s.Version++
	return nil
}

// GetByReference returns a ticket by its booking reference.
func (r *TicketRepo) GetByReference(ctx context.Context, ref string) (*model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE booking_reference = ? AND is_deleted = 0`
	t, err := scanTicket(r.db.QueryRowContext(ctx, q, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.NotFound("ticket")
	}
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "load ticket", err)
	}
	return t, nil
}

// ListByUser returns the user's tickets joined with movie, cinema and
// auditorium names, newest first.  Unknown users yield an empty slice.
func (r *TicketRepo) ListByUser(ctx context.Context, userID string) ([]model.TicketDetail, error) {
	const q = `SELECT t.id, t.user_id, t.user_email, t.showtime_id, t.booking_reference, t.reserved_seats,
	                  t.total_amount_cents, t.status, t.created_at, t.paid_at, t.is_deleted, t.deleted_at,
	                  m.title, c.name, a.name, s.start_time
	           FROM tickets t
	           JOIN showtimes s ON s.id = t.showtime_id
	           JOIN movies m ON m.id = s.movie_id
	           JOIN auditoriums a ON a.id = s.auditorium_id
	           JOIN cinemas c ON c.id = a.cinema_id
	           WHERE t.user_id = ? AND t.is_deleted = 0
	           ORDER BY t.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "list tickets", err)
	}
	defer rows.Close()
	details := make([]model.TicketDetail, 0)
	for rows.Next() {
		var d model.TicketDetail
		var id, showtimeID string
		var seatsRaw []byte
		var cents int64
		if err := rows.Scan(
			&id, &d.UserID, &d.UserEmail, &showtimeID, &d.BookingReference, &seatsRaw,
			&cents, &d.Status, &d.CreatedAt, &d.PaidAt, &d.IsDeleted, &d.DeletedAt,
			&d.MovieTitle, &d.CinemaName, &d.AuditoriumName, &d.StartTime,
		); err != nil {
			return nil, fault.Wrap(fault.KindInternal, "scan ticket", err)
		}
		if d.ID, err = uuid.Parse(id); err != nil {
			return nil, fault.Wrap(fault.KindInternal, "scan ticket", err)
		}
		if d.ShowtimeID, err = uuid.Parse(showtimeID); err != nil {
			return nil, fault.Wrap(fault.KindInternal, "scan ticket", err)
		}
		d.TotalAmount = model.Money(cents)
		if len(seatsRaw) > 0 {
			if err := json.Unmarshal(seatsRaw, &d.ReservedSeats); err != nil {
				return nil, fault.Wrap(fault.KindInternal, "decode seats", err)
			}
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.KindInternal, "list tickets", err)
	}
	return details, nil
}

// ExpiryCandidate is one overdue Pending ticket joined with its showtime and
// the auditorium grid, as selected by the expiry sweep.
type ExpiryCandidate struct {
	Ticket   model.Ticket
	Showtime model.Showtime
	MaxRows  int
	MaxCols  int
}

// Seats decodes nothing extra; reserved seats are already on the ticket.
func (c ExpiryCandidate) Seats() []seatmap.Seat { return c.Ticket.ReservedSeats }

// ListExpiredPending selects all Pending tickets created before the cutoff,
// joined with their showtime buffer and auditorium dimensions, ordered by
// showtime so the worker can group them into per-showtime units.
func (r *TicketRepo) ListExpiredPending(ctx context.Context, cutoff time.Time) ([]ExpiryCandidate, error) {
	const q = `SELECT t.id, t.user_id, t.user_email, t.showtime_id, t.booking_reference, t.reserved_seats,
	                  t.total_amount_cents, t.status, t.created_at, t.paid_at, t.is_deleted, t.deleted_at,
	                  s.id, s.movie_id, s.auditorium_id, s.start_time, s.base_price_cents, s.seat_state, s.version,
	                  s.created_at, s.created_by, s.updated_at, s.updated_by, s.is_deleted, s.deleted_at,
	                  a.max_rows, a.max_columns
	           FROM tickets t
	           JOIN showtimes s ON s.id = t.showtime_id
	           JOIN auditoriums a ON a.id = s.auditorium_id
	           WHERE t.status = ? AND t.created_at < ? AND t.is_deleted = 0 AND s.is_deleted = 0
	           ORDER BY s.id, t.created_at`
	rows, err := r.db.QueryContext(ctx, q, model.TicketPending, cutoff)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "scan expired tickets", err)
	}
	defer rows.Close()
	out := make([]ExpiryCandidate, 0)
	for rows.Next() {
		var c ExpiryCandidate
		var tid, tShowtime, sid, sMovie, sAud string
		var seatsRaw []byte
		var tCents, sCents int64
		if err := rows.Scan(
			&tid, &c.Ticket.UserID, &c.Ticket.UserEmail, &tShowtime, &c.Ticket.BookingReference, &seatsRaw,
			&tCents, &c.Ticket.Status, &c.Ticket.CreatedAt, &c.Ticket.PaidAt, &c.Ticket.IsDeleted, &c.Ticket.DeletedAt,
			&sid, &sMovie, &sAud, &c.Showtime.StartTime, &sCents, &c.Showtime.SeatState, &c.Showtime.Version,
			&c.Showtime.CreatedAt, &c.Showtime.CreatedBy, &c.Showtime.UpdatedAt, &c.Showtime.UpdatedBy,
			&c.Showtime.IsDeleted, &c.Showtime.DeletedAt,
			&c.MaxRows, &c.MaxCols,
		); err != nil {
			return nil, fault.Wrap(fault.KindInternal, "scan expiry candidate", err)
		}
		if c.Ticket.ID, err = uuid.Parse(tid); err != nil {
			return nil, fault.Wrap(fault.KindInternal, "scan expiry candidate", err)
		}
		if c.Ticket.ShowtimeID, err = uuid.Parse(tShowtime); err != nil {
			return nil, fault.Wrap(fault.KindInternal, "scan expiry candidate", err)
		}
		if c.Showtime.ID, err = uuid.Parse(sid); err != nil {
			return nil, fault.Wrap(fault.KindInternal, "scan expiry candidate", err)
		}
		if c.Showtime.MovieID, err = uuid.Parse(sMovie); err != nil {
			return nil, fault.Wrap(fault.KindInternal, "scan expiry candidate", err)
		}
		if c.Showtime.AuditoriumID, err = uuid.Parse(sAud); err != nil {
			return nil, fault.Wrap(fault.KindInternal, "scan expiry candidate", err)
		}
		c.Ticket.TotalAmount = model.Money(tCents)
		c.Showtime.BasePrice = model.Money(sCents)
		if len(seatsRaw) > 0 {
			if err := json.Unmarshal(seatsRaw, &c.Ticket.ReservedSeats); err != nil {
				return nil, fault.Wrap(fault.KindInternal, "decode seats", err)
			}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.KindInternal, "scan expired tickets", err)
	}
	return out, nil
}
