package handler

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hivecinema/hive/internal/fault"
	"github.com/hivecinema/hive/internal/model"
	"github.com/hivecinema/hive/internal/policy"
	"github.com/hivecinema/hive/internal/repository"
)

// AuditoriumHandler serves the auditorium endpoints.  Every write validates
// the embedded layout against the grid and runs the ownership policy through
// the parent cinema.
type AuditoriumHandler struct {
	Auditoriums *repository.AuditoriumRepo
	Cinemas     *repository.CinemaRepo
}

// NewAuditoriumHandler constructs an AuditoriumHandler.
func NewAuditoriumHandler(auditoriums *repository.AuditoriumRepo, cinemas *repository.CinemaRepo) *AuditoriumHandler {
	return &AuditoriumHandler{Auditoriums: auditoriums, Cinemas: cinemas}
}

type auditoriumBody struct {
	CinemaID   string       `json:"cinema_id"`
	Name       string       `json:"name"`
	MaxRows    int          `json:"max_rows"`
	MaxColumns int          `json:"max_columns"`
	Layout     model.Layout `json:"layout"`
}

func (b auditoriumBody) validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return fault.Validation("name is required")
	}
	if b.MaxRows <= 0 || b.MaxColumns <= 0 {
		return fault.Validation("max_rows and max_columns must be positive")
	}
	// Layout invariants (bounds, tier overlaps, disabled overlap) are
	// enforced here at write time, never on the reservation path.
	if err := b.Layout.Validate(b.MaxRows, b.MaxColumns); err != nil {
		return fault.Wrap(fault.KindValidation, "invalid layout", err)
	}
	return nil
}

// ownedCinema loads the parent cinema and runs the ownership policy.
func (h *AuditoriumHandler) ownedCinema(c echo.Context, p model.Principal, cinemaID uuid.UUID) (*model.Cinema, error) {
	cinema, err := h.Cinemas.GetByID(c.Request().Context(), cinemaID)
	if err != nil {
		return nil, err
	}
	if err := policy.RequireOwner(p, cinema); err != nil {
		return nil, err
	}
	return cinema, nil
}

// List handles GET /api/auditoriums.
func (h *AuditoriumHandler) List(c echo.Context) error {
	auditoriums, err := h.Auditoriums.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": auditoriums})
}

// Get handles GET /api/auditoriums/:id.
func (h *AuditoriumHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fault.Validation("invalid auditorium id")
	}
	auditorium, err := h.Auditoriums.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, auditorium)
}

// ListByCinema handles GET /api/auditoriums/cinema/:cinemaId.
func (h *AuditoriumHandler) ListByCinema(c echo.Context) error {
	cinemaID, err := uuid.Parse(c.Param("cinemaId"))
	if err != nil {
		return fault.Validation("invalid cinema id")
	}
	auditoriums, err := h.Auditoriums.ListByCinema(c.Request().Context(), cinemaID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": auditoriums})
}

// Create handles POST /api/auditoriums, owner-or-admin on the parent cinema.
func (h *AuditoriumHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var body auditoriumBody
	if err := c.Bind(&body); err != nil {
		return fault.Validation("invalid request body")
	}
	cinemaID, err := uuid.Parse(body.CinemaID)
	if err != nil {
		return fault.Validation("invalid cinema_id")
	}
	if err := body.validate(); err != nil {
		return err
	}
	if _, err := h.ownedCinema(c, p, cinemaID); err != nil {
		return err
	}
	auditorium := &model.Auditorium{
		ID:         uuid.Must(uuid.NewV7()),
		CinemaID:   cinemaID,
		Name:       strings.TrimSpace(body.Name),
		MaxRows:    body.MaxRows,
		MaxColumns: body.MaxColumns,
		Layout:     body.Layout,
	}
	if err := h.Auditoriums.Create(c.Request().Context(), auditorium, p.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, auditorium)
}

// Update handles PUT /api/auditoriums/:id, owner-or-admin.  Grid dimensions
// become immutable once the auditorium has showtimes, otherwise their seat
// buffers would no longer match the grid.
func (h *AuditoriumHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fault.Validation("invalid auditorium id")
	}
	var body auditoriumBody
	if err := c.Bind(&body); err != nil {
		return fault.Validation("invalid request body")
	}
	if err := body.validate(); err != nil {
		return err
	}
	auditorium, err := h.Auditoriums.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if _, err := h.ownedCinema(c, p, auditorium.CinemaID); err != nil {
		return err
	}
	if body.MaxRows != auditorium.MaxRows || body.MaxColumns != auditorium.MaxColumns {
		used, err := h.Auditoriums.HasShowtimes(c.Request().Context(), id)
		if err != nil {
			return err
		}
		if used {
			return fault.Validation("grid dimensions cannot change while showtimes exist")
		}
	}
	auditorium.Name = strings.TrimSpace(body.Name)
	auditorium.MaxRows = body.MaxRows
	auditorium.MaxColumns = body.MaxColumns
	auditorium.Layout = body.Layout
	if err := h.Auditoriums.Update(c.Request().Context(), auditorium, p.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /api/auditoriums/:id, owner-or-admin.
func (h *AuditoriumHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fault.Validation("invalid auditorium id")
	}
	auditorium, err := h.Auditoriums.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if _, err := h.ownedCinema(c, p, auditorium.CinemaID); err != nil {
		return err
	}
	if err := h.Auditoriums.SoftDelete(c.Request().Context(), id, p.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
