package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/hivecinema/hive/internal/fault"
	"github.com/hivecinema/hive/internal/model"
)

// MovieRepo provides CRUD operations for movies.  Default queries exclude
// soft-deleted rows; GetByIDIncludeDeleted exists for audit reads.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo returns a new MovieRepo bound to the given database.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

const movieColumns = `id, title, description, duration_minutes, release_date, poster_url,
	created_at, created_by, updated_at, updated_by, is_deleted, deleted_at`

// scanMovie reads one row in movieColumns order.
func scanMovie(row interface{ Scan(...any) error }) (*model.Movie, error) {
	var m model.Movie
	var id string
	var poster sql.NullString
	if err := row.Scan(
		&id, &m.Title, &m.Description, &m.DurationMinutes, &m.ReleaseDate, &poster,
		&m.CreatedAt, &m.CreatedBy, &m.UpdatedAt, &m.UpdatedBy, &m.IsDeleted, &m.DeletedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	m.ID = parsed
	if poster.Valid {
		m.PosterURL = &poster.String
	}
	return &m, nil
}

// Create inserts a new movie and stamps its audit fields.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie, by string) error {
	stampCreate(&m.Audit, by)
	const q = `INSERT INTO movies (id, title, description, duration_minutes, release_date, poster_url,
	           created_at, created_by, updated_at, updated_by, is_deleted)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`
	_, err := r.db.ExecContext(ctx, q, m.ID.String(), m.Title, m.Description, m.DurationMinutes,
		m.ReleaseDate, m.PosterURL, m.CreatedAt, m.CreatedBy, m.UpdatedAt, m.UpdatedBy)
	return fault.Wrap(fault.KindInternal, "insert movie", err)
}

// GetByID returns a movie that has not been soft-deleted.
func (r *MovieRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies WHERE id = ? AND is_deleted = 0`
	m, err := scanMovie(r.db.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.NotFound("movie")
	}
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "load movie", err)
	}
	return m, nil
}

// GetByIDIncludeDeleted returns a movie regardless of its deletion flag, for
// audit queries.
func (r *MovieRepo) GetByIDIncludeDeleted(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies WHERE id = ?`
	m, err := scanMovie(r.db.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.NotFound("movie")
	}
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "load movie", err)
	}
	return m, nil
}

// List returns all live movies ordered by release date descending.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies WHERE is_deleted = 0 ORDER BY release_date DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "list movies", err)
	}
	defer rows.Close()
	movies := make([]model.Movie, 0)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, fault.Wrap(fault.KindInternal, "scan movie", err)
		}
		movies = append(movies, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.KindInternal, "list movies", err)
	}
	return movies, nil
}

// Update rewrites the mutable movie fields.  Soft-deleted rows are not
// updatable; the caller sees NotFound.
func (r *MovieRepo) Update(ctx context.Context, m *model.Movie, by string) error {
	stampUpdate(&m.Audit, by)
	const q = `UPDATE movies SET title = ?, description = ?, duration_minutes = ?, release_date = ?,
	           poster_url = ?, updated_at = ?, updated_by = ?
	           WHERE id = ? AND is_deleted = 0`
	res, err := r.db.ExecContext(ctx, q, m.Title, m.Description, m.DurationMinutes, m.ReleaseDate,
		m.PosterURL, m.UpdatedAt, m.UpdatedBy, m.ID.String())
	if err != nil {
		return fault.Wrap(fault.KindInternal, "update movie", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fault.Wrap(fault.KindInternal, "update movie", err)
	}
	if n == 0 {
		return fault.NotFound("movie")
	}
	return nil
}

// SoftDelete marks the movie deleted.  Deleting an already-deleted movie
// reports NotFound.
func (r *MovieRepo) SoftDelete(ctx context.Context, id uuid.UUID, by string) error {
	const q = `UPDATE movies SET is_deleted = 1, deleted_at = UTC_TIMESTAMP(), updated_at = UTC_TIMESTAMP(), updated_by = ?
	           WHERE id = ? AND is_deleted = 0`
	res, err := r.db.ExecContext(ctx, q, by, id.String())
	if err != nil {
		return fault.Wrap(fault.KindInternal, "delete movie", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fault.Wrap(fault.KindInternal, "delete movie", err)
	}
	if n == 0 {
		return fault.NotFound("movie")
	}
	return nil
}
