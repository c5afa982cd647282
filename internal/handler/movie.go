package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hivecinema/hive/internal/fault"
	"github.com/hivecinema/hive/internal/model"
	"github.com/hivecinema/hive/internal/repository"
)

// MovieHandler serves the movie catalog endpoints.  Reads are anonymous;
// writes require the organizer or admin role, enforced by the router.
type MovieHandler struct {
	Movies *repository.MovieRepo
}

// NewMovieHandler constructs a MovieHandler.
func NewMovieHandler(movies *repository.MovieRepo) *MovieHandler {
	return &MovieHandler{Movies: movies}
}

// movieBody is the write payload shared by create and update.
type movieBody struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	DurationMinutes int     `json:"duration_minutes"`
	ReleaseDate     string  `json:"release_date"` // YYYY-MM-DD
	PosterURL       *string `json:"poster_url"`
}

func (b movieBody) validate() (time.Time, error) {
	if strings.TrimSpace(b.Title) == "" {
		return time.Time{}, fault.Validation("title is required")
	}
	if b.DurationMinutes <= 0 {
		return time.Time{}, fault.Validation("duration_minutes must be positive")
	}
	release, err := time.Parse("2006-01-02", b.ReleaseDate)
	if err != nil {
		return time.Time{}, fault.Validation("release_date must be YYYY-MM-DD")
	}
	return release, nil
}

// List handles GET /api/movies.
func (h *MovieHandler) List(c echo.Context) error {
	movies, err := h.Movies.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": movies})
}

// Get handles GET /api/movies/:id.
func (h *MovieHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fault.Validation("invalid movie id")
	}
	movie, err := h.Movies.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, movie)
}

// Create handles POST /api/movies.
func (h *MovieHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var body movieBody
	if err := c.Bind(&body); err != nil {
		return fault.Validation("invalid request body")
	}
	release, err := body.validate()
	if err != nil {
		return err
	}
	movie := &model.Movie{
		ID:              uuid.Must(uuid.NewV7()),
		Title:           strings.TrimSpace(body.Title),
		Description:     body.Description,
		DurationMinutes: body.DurationMinutes,
		ReleaseDate:     release,
		PosterURL:       body.PosterURL,
	}
	if err := h.Movies.Create(c.Request().Context(), movie, p.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, movie)
}

// Update handles PUT /api/movies/:id.
func (h *MovieHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fault.Validation("invalid movie id")
	}
	var body movieBody
	if err := c.Bind(&body); err != nil {
		return fault.Validation("invalid request body")
	}
	release, err := body.validate()
	if err != nil {
		return err
	}
	movie, err := h.Movies.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	movie.Title = strings.TrimSpace(body.Title)
	movie.Description = body.Description
	movie.DurationMinutes = body.DurationMinutes
	movie.ReleaseDate = release
	movie.PosterURL = body.PosterURL
	if err := h.Movies.Update(c.Request().Context(), movie, p.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /api/movies/:id.
func (h *MovieHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fault.Validation("invalid movie id")
	}
	if err := h.Movies.SoftDelete(c.Request().Context(), id, p.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
