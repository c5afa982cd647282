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

// AuditoriumRepo provides CRUD operations for auditoriums.  The layout is an
// embedded JSON document on the row so the reservation path reads it together
// with the dimensions in one round-trip.
type AuditoriumRepo struct {
	db *sql.DB
}

// NewAuditoriumRepo returns a new AuditoriumRepo bound to the given database.
func NewAuditoriumRepo(db *sql.DB) *AuditoriumRepo { return &AuditoriumRepo{db: db} }

const auditoriumColumns = `id, cinema_id, name, max_rows, max_columns, layout,
	created_at, created_by, updated_at, updated_by, is_deleted, deleted_at`

func scanAuditorium(row interface{ Scan(...any) error }) (*model.Auditorium, error) {
	var a model.Auditorium
	var id, cinemaID string
	var layoutRaw []byte
	if err := row.Scan(
		&id, &cinemaID, &a.Name, &a.MaxRows, &a.MaxColumns, &layoutRaw,
		&a.CreatedAt, &a.CreatedBy, &a.UpdatedAt, &a.UpdatedBy, &a.IsDeleted, &a.DeletedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if a.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if a.CinemaID, err = uuid.Parse(cinemaID); err != nil {
		return nil, err
	}
	if len(layoutRaw) > 0 {
		if err := json.Unmarshal(layoutRaw, &a.Layout); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

// Create inserts a new auditorium with its layout document.  The layout has
// been validated against the grid dimensions by the caller.
func (r *AuditoriumRepo) Create(ctx context.Context, a *model.Auditorium, by string) error {
	stampCreate(&a.Audit, by)
	layoutRaw, err := json.Marshal(a.Layout)
	if err != nil {
		return fault.Wrap(fault.KindInternal, "encode layout", err)
	}
	const q = `INSERT INTO auditoriums (id, cinema_id, name, max_rows, max_columns, layout,
	           created_at, created_by, updated_at, updated_by, is_deleted)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`
	_, err = r.db.ExecContext(ctx, q, a.ID.String(), a.CinemaID.String(), a.Name,
		a.MaxRows, a.MaxColumns, layoutRaw, a.CreatedAt, a.CreatedBy, a.UpdatedAt, a.UpdatedBy)
	return fault.Wrap(fault.KindInternal, "insert auditorium", err)
}

// GetByID returns an auditorium that has not been soft-deleted.
func (r *AuditoriumRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Auditorium, error) {
	const q = `SELECT ` + auditoriumColumns + ` FROM auditoriums WHERE id = ? AND is_deleted = 0`
	a, err := scanAuditorium(r.db.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.NotFound("auditorium")
	}
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "load auditorium", err)
	}
	return a, nil
}

// List returns all live auditoriums.
func (r *AuditoriumRepo) List(ctx context.Context) ([]model.Auditorium, error) {
	const q = `SELECT ` + auditoriumColumns + ` FROM auditoriums WHERE is_deleted = 0 ORDER BY name`
	return r.queryMany(ctx, q)
}

// ListByCinema returns the live auditoriums of one cinema.
func (r *AuditoriumRepo) ListByCinema(ctx context.Context, cinemaID uuid.UUID) ([]model.Auditorium, error) {
	const q = `SELECT ` + auditoriumColumns + ` FROM auditoriums WHERE cinema_id = ? AND is_deleted = 0 ORDER BY name`
	return r.queryMany(ctx, q, cinemaID.String())
}

func (r *AuditoriumRepo) queryMany(ctx context.Context, q string, args ...any) ([]model.Auditorium, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "list auditoriums", err)
	}
	defer rows.Close()
	out := make([]model.Auditorium, 0)
	for rows.Next() {
		a, err := scanAuditorium(rows)
		if err != nil {
			return nil, fault.Wrap(fault.KindInternal, "scan auditorium", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.KindInternal, "list auditoriums", err)
	}
	return out, nil
}

// HasShowtimes reports whether any live showtime references the auditorium.
// Grid dimensions are immutable once this returns true, otherwise existing
// seat buffers would no longer match their grids.
func (r *AuditoriumRepo) HasShowtimes(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM showtimes WHERE auditorium_id = ? AND is_deleted = 0)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, id.String()).Scan(&exists); err != nil {
		return false, fault.Wrap(fault.KindInternal, "check showtimes", err)
	}
	return exists, nil
}

// Update rewrites name, dimensions and layout.  Callers enforce the
// dimension-immutability rule via HasShowtimes before getting here.
func (r *AuditoriumRepo) Update(ctx context.Context, a *model.Auditorium, by string) error {
	stampUpdate(&a.Audit, by)
	layoutRaw, err := json.Marshal(a.Layout)
	if err != nil {
		return fault.Wrap(fault.KindInternal, "encode layout", err)
	}
	const q = `UPDATE auditoriums SET name = ?, max_rows = ?, max_columns = ?, layout = ?,
	           updated_at = ?, updated_by = ?
	           WHERE id = ? AND is_deleted = 0`
	res, err := r.db.ExecContext(ctx, q, a.Name, a.MaxRows, a.MaxColumns, layoutRaw,
		a.UpdatedAt, a.UpdatedBy, a.ID.String())
	if err != nil {
		return fault.Wrap(fault.KindInternal, "update auditorium", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fault.Wrap(fault.KindInternal, "update auditorium", err)
	}
	if n == 0 {
		return fault.NotFound("auditorium")
	}
	return nil
}

// SoftDelete marks the auditorium deleted.
func (r *AuditoriumRepo) SoftDelete(ctx context.Context, id uuid.UUID, by string) error {
	const q = `UPDATE auditoriums SET is_deleted = 1, deleted_at = UTC_TIMESTAMP(), updated_at = UTC_TIMESTAMP(), updated_by = ?
	           WHERE id = ? AND is_deleted = 0`
	res, err := r.db.ExecContext(ctx, q, by, id.String())
	if err != nil {
		return fault.Wrap(fault.KindInternal, "delete auditorium", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fault.Wrap(fault.KindInternal, "delete auditorium", err)
	}
	if n == 0 {
		return fault.NotFound("auditorium")
	}
	return nil
}
