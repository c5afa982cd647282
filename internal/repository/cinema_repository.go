package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/hivecinema/hive/internal/fault"
	"github.com/hivecinema/hive/internal/model"
)

// CinemaRepo provides CRUD operations for cinemas.  The organizer_id column
// is written once at creation and never rewritten; approval transitions go
// through UpdateStatus so the admin-only rule has a single enforcement seam
// above it.
type CinemaRepo struct {
	db *sql.DB
}

// NewCinemaRepo returns a new CinemaRepo bound to the given database.
func NewCinemaRepo(db *sql.DB) *CinemaRepo { return &CinemaRepo{db: db} }

const cinemaColumns = `id, organizer_id, name, location, contact_email, approval_status,
	created_at, created_by, updated_at, updated_by, is_deleted, deleted_at`

func scanCinema(row interface{ Scan(...any) error }) (*model.Cinema, error) {
	var c model.Cinema
	var id string
	if err := row.Scan(
		&id, &c.OrganizerID, &c.Name, &c.Location, &c.ContactEmail, &c.ApprovalStatus,
		&c.CreatedAt, &c.CreatedBy, &c.UpdatedAt, &c.UpdatedBy, &c.IsDeleted, &c.DeletedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	c.ID = parsed
	return &c, nil
}

// Create inserts a new cinema.  New cinemas always start in PENDING approval
// regardless of what the caller set.
func (r *CinemaRepo) Create(ctx context.Context, c *model.Cinema, by string) error {
	stampCreate(&c.Audit, by)
	c.ApprovalStatus = model.ApprovalPending
	const q = `INSERT INTO cinemas (id, organizer_id, name, location, contact_email, approval_status,
	           created_at, created_by, updated_at, updated_by, is_deleted)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`
	_, err := r.db.ExecContext(ctx, q, c.ID.String(), c.OrganizerID, c.Name, c.Location,
		c.ContactEmail, c.ApprovalStatus, c.CreatedAt, c.CreatedBy, c.UpdatedAt, c.UpdatedBy)
	return fault.Wrap(fault.KindInternal, "insert cinema", err)
}

// GetByID returns a cinema that has not been soft-deleted.
func (r *CinemaRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Cinema, error) {
	const q = `SELECT ` + cinemaColumns + ` FROM cinemas WHERE id = ? AND is_deleted = 0`
	c, err := scanCinema(r.db.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.NotFound("cinema")
	}
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "load cinema", err)
	}
	return c, nil
}

// List returns all live cinemas ordered by name.
func (r *CinemaRepo) List(ctx context.Context) ([]model.Cinema, error) {
	const q = `SELECT ` + cinemaColumns + ` FROM cinemas WHERE is_deleted = 0 ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "list cinemas", err)
	}
	defer rows.Close()
	cinemas := make([]model.Cinema, 0)
	for rows.Next() {
		c, err := scanCinema(rows)
		if err != nil {
			return nil, fault.Wrap(fault.KindInternal, "scan cinema", err)
		}
		cinemas = append(cinemas, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.KindInternal, "list cinemas", err)
	}
	return cinemas, nil
}

// Update rewrites the mutable cinema fields.  organizer_id and
// approval_status are deliberately not part of this statement.
func (r *CinemaRepo) Update(ctx context.Context, c *model.Cinema, by string) error {
	stampUpdate(&c.Audit, by)
	const q = `UPDATE cinemas SET name = ?, location = ?, contact_email = ?, updated_at = ?, updated_by = ?
	           WHERE id = ? AND is_deleted = 0`
	res, err := r.db.ExecContext(ctx, q, c.Name, c.Location, c.ContactEmail,
		c.UpdatedAt, c.UpdatedBy, c.ID.String())
	if err != nil {
		return fault.Wrap(fault.KindInternal, "update cinema", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fault.Wrap(fault.KindInternal, "update cinema", err)
	}
	if n == 0 {
		return fault.NotFound("cinema")
	}
	return nil
}

// UpdateStatus transitions the approval status.  The policy layer restricts
// callers to the admin role before this runs.
func (r *CinemaRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ApprovalStatus, by string) error {
	const q = `UPDATE cinemas SET approval_status = ?, updated_at = UTC_TIMESTAMP(), updated_by = ?
	           WHERE id = ? AND is_deleted = 0`
	res, err := r.db.ExecContext(ctx, q, status, by, id.String())
	if err != nil {
		return fault.Wrap(fault.KindInternal, "update cinema status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fault.Wrap(fault.KindInternal, "update cinema status", err)
	}
	if n == 0 {
		return fault.NotFound("cinema")
	}
	return nil
}

// SoftDelete marks the cinema deleted.
func (r *CinemaRepo) SoftDelete(ctx context.Context, id uuid.UUID, by string) error {
	const q = `UPDATE cinemas SET is_deleted = 1, deleted_at = UTC_TIMESTAMP(), updated_at = UTC_TIMESTAMP(), updated_by = ?
	           WHERE id = ? AND is_deleted = 0`
	res, err := r.db.ExecContext(ctx, q, by, id.String())
	if err != nil {
		return fault.Wrap(fault.KindInternal, "delete cinema", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fault.Wrap(fault.KindInternal, "delete cinema", err)
	}
	if n == 0 {
		return fault.NotFound("cinema")
	}
	return nil
}
