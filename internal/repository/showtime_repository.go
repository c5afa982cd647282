package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/hivecinema/hive/internal/fault"
	"github.com/hivecinema/hive/internal/model"
)

// ShowtimeRepo provides access to showtimes and their seat-availability
// buffers.  Every update statement carries the optimistic version token in
// its WHERE clause and advances it in the SET clause; a zero rows-affected
// result on an existing row means another writer won the race.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo returns a new ShowtimeRepo bound to the given database.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo { return &ShowtimeRepo{db: db} }

const showtimeColumns = `id, movie_id, auditorium_id, start_time, base_price_cents, seat_state, version,
	created_at, created_by, updated_at, updated_by, is_deleted, deleted_at`

func scanShowtime(row interface{ Scan(...any) error }) (*model.Showtime, error) {
	var s model.Showtime
	var id, movieID, auditoriumID string
	var cents int64
	if err := row.Scan(
		&id, &movieID, &auditoriumID, &s.StartTime, &cents, &s.SeatState, &s.Version,
		&s.CreatedAt, &s.CreatedBy, &s.UpdatedAt, &s.UpdatedBy, &s.IsDeleted, &s.DeletedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if s.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if s.MovieID, err = uuid.Parse(movieID); err != nil {
		return nil, err
	}
	if s.AuditoriumID, err = uuid.Parse(auditoriumID); err != nil {
		return nil, err
	}
	s.BasePrice = model.Money(cents)
	return &s, nil
}

// Create inserts a new showtime with the availability buffer the caller
// built and version 1.
func (r *ShowtimeRepo) Create(ctx context.Context, s *model.Showtime, by string) error {
	stampCreate(&s.Audit, by)
	s.Version = 1
	const q = `INSERT INTO showtimes (id, movie_id, auditorium_id, start_time, base_price_cents, seat_state, version,
	           created_at, created_by, updated_at, updated_by, is_deleted)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`
	_, err := r.db.ExecContext(ctx, q, s.ID.String(), s.MovieID.String(), s.AuditoriumID.String(),
		s.StartTime, s.BasePrice.Cents(), s.SeatState, s.Version,
		s.CreatedAt, s.CreatedBy, s.UpdatedAt, s.UpdatedBy)
	return fault.Wrap(fault.KindInternal, "insert showtime", err)
}

// GetByID returns a showtime that has not been soft-deleted.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Showtime, error) {
	const q = `SELECT ` + showtimeColumns + ` FROM showtimes WHERE id = ? AND is_deleted = 0`
	s, err := scanShowtime(r.db.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.NotFound("showtime")
	}
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "load showtime", err)
	}
	return s, nil
}

// GetWithAuditorium loads a showtime together with its auditorium (layout
// included) in one query.  This is the read the reservation hot path makes.
func (r *ShowtimeRepo) GetWithAuditorium(ctx context.Context, id uuid.UUID) (*model.Showtime, *model.Auditorium, error) {
	const q = `SELECT s.id, s.movie_id, s.auditorium_id, s.start_time, s.base_price_cents, s.seat_state, s.version,
	                  s.created_at, s.created_by, s.updated_at, s.updated_by, s.is_deleted, s.deleted_at,
	                  a.id, a.cinema_id, a.name, a.max_rows, a.max_columns, a.layout,
	                  a.created_at, a.created_by, a.updated_at, a.updated_by, a.is_deleted, a.deleted_at
	           FROM showtimes s
	           JOIN auditoriums a ON a.id = s.auditorium_id
	           WHERE s.id = ? AND s.is_deleted = 0 AND a.is_deleted = 0`
	var s model.Showtime
	var a model.Auditorium
	var sID, sMovie, sAud, aID, aCinema string
	var cents int64
	var layoutRaw []byte
	err := r.db.QueryRowContext(ctx, q, id.String()).Scan(
		&sID, &sMovie, &sAud, &s.StartTime, &cents, &s.SeatState, &s.Version,
		&s.CreatedAt, &s.CreatedBy, &s.UpdatedAt, &s.UpdatedBy, &s.IsDeleted, &s.DeletedAt,
		&aID, &aCinema, &a.Name, &a.MaxRows, &a.MaxColumns, &layoutRaw,
		&a.CreatedAt, &a.CreatedBy, &a.UpdatedAt, &a.UpdatedBy, &a.IsDeleted, &a.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fault.NotFound("showtime")
	}
	if err != nil {
		return nil, nil, fault.Wrap(fault.KindInternal, "load showtime", err)
	}
	if s.ID, err = uuid.Parse(sID); err != nil {
		return nil, nil, fault.Wrap(fault.KindInternal, "load showtime", err)
	}
	if s.MovieID, err = uuid.Parse(sMovie); err != nil {
		return nil, nil, fault.Wrap(fault.KindInternal, "load showtime", err)
	}
	if s.AuditoriumID, err = uuid.Parse(sAud); err != nil {
		return nil, nil, fault.Wrap(fault.KindInternal, "load showtime", err)
	}
	if a.ID, err = uuid.Parse(aID); err != nil {
		return nil, nil, fault.Wrap(fault.KindInternal, "load showtime", err)
	}
	if a.CinemaID, err = uuid.Parse(aCinema); err != nil {
		return nil, nil, fault.Wrap(fault.KindInternal, "load showtime", err)
	}
	s.BasePrice = model.Money(cents)
	if len(layoutRaw) > 0 {
		if err := json.Unmarshal(layoutRaw, &a.Layout); err != nil {
			return nil, nil, fault.Wrap(fault.KindInternal, "decode layout", err)
		}
	}
	return &s, &a, nil
}

// Update rewrites start time and base price under the version token.  On
// success the in-memory version is advanced to match the row.
func (r *ShowtimeRepo) Update(ctx context.Context, s *model.Showtime, by string) error {
	stampUpdate(&s.Audit, by)
	const q = `UPDATE showtimes SET start_time = ?, base_price_cents = ?, version = version + 1,
	           updated_at = ?, updated_by = ?
	           WHERE id = ? AND version = ? AND is_deleted = 0`
	res, err := r.db.ExecContext(ctx, q, s.StartTime, s.BasePrice.Cents(),
		s.UpdatedAt, s.UpdatedBy, s.ID.String(), s.Version)
	if err != nil {
		return fault.Wrap(fault.KindInternal, "update showtime", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fault.Wrap(fault.KindInternal, "update showtime", err)
	}
	if n == 0 {
		return r.casFailure(ctx, s.ID)
	}
	s.Version++
	return nil
}

// SoftDelete marks the showtime deleted under the version token.
func (r *ShowtimeRepo) SoftDelete(ctx context.Context, id uuid.UUID, version int64, by string) error {
	const q = `UPDATE showtimes SET is_deleted = 1, deleted_at = UTC_TIMESTAMP(), version = version + 1,
	           updated_at = UTC_TIMESTAMP(), updated_by = ?
	           WHERE id = ? AND version = ? AND is_deleted = 0`
	res, err := r.db.ExecContext(ctx, q, by, id.String(), version)
	if err != nil {
		return fault.Wrap(fault.KindInternal, "delete showtime", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fault.Wrap(fault.KindInternal, "delete showtime", err)
	}
	if n == 0 {
		return r.casFailure(ctx, id)
	}
	return nil
}

// casFailure distinguishes a version conflict from a missing row after a
// compare-and-swap update matched nothing.
func (r *ShowtimeRepo) casFailure(ctx context.Context, id uuid.UUID) error {
	const q = `SELECT EXISTS(SELECT 1 FROM showtimes WHERE id = ? AND is_deleted = 0)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, id.String()).Scan(&exists); err != nil {
		return fault.Wrap(fault.KindInternal, "check showtime", err)
	}
	if !exists {
		return fault.NotFound("showtime")
	}
	return fault.Concurrency("showtime was modified concurrently")
}

// updateSeatStateTx writes the mutated availability buffer under the version
// token inside an existing transaction.  It is shared by the ticket
// lifecycle transactions in ticket_repository.go.
func updateSeatStateTx(ctx context.Context, tx *sql.Tx, s *model.Showtime) error {
	const q = `UPDATE showtimes SET seat_state = ?, version = version + 1, updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND version = ? AND is_deleted = 0`
	res, err := tx.ExecContext(ctx, q, s.SeatState, s.ID.String(), s.Version)
	if err != nil {
		return fault.Wrap(fault.KindInternal, "update seat state", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fault.Wrap(fault.KindInternal, "update seat state", err)
	}
	if n == 0 {
		return fault.Concurrency("showtime was modified concurrently")
	}
	return nil
}
