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

// CinemaHandler serves the cinema endpoints.  Mutations run the ownership
// policy; the approval transition is admin-only.
type CinemaHandler struct {
	Cinemas *repository.CinemaRepo
}

// NewCinemaHandler constructs a CinemaHandler.
func NewCinemaHandler(cinemas *repository.CinemaRepo) *CinemaHandler {
	return &CinemaHandler{Cinemas: cinemas}
}

type cinemaBody struct {
	Name         string `json:"name"`
	Location     string `json:"location"`
	ContactEmail string `json:"contact_email"`
}

func (b cinemaBody) validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return fault.Validation("name is required")
	}
	if strings.TrimSpace(b.ContactEmail) == "" {
		return fault.Validation("contact_email is required")
	}
	return nil
}

// List handles GET /api/cinemas.
func (h *CinemaHandler) List(c echo.Context) error {
	cinemas, err := h.Cinemas.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": cinemas})
}

// Get handles GET /api/cinemas/:id.
func (h *CinemaHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fault.Validation("invalid cinema id")
	}
	cinema, err := h.Cinemas.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cinema)
}

// Create handles POST /api/cinemas.  The creator becomes the organizer and
// the cinema starts in Pending approval.
func (h *CinemaHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var body cinemaBody
	if err := c.Bind(&body); err != nil {
		return fault.Validation("invalid request body")
	}
	if err := body.validate(); err != nil {
		return err
	}
	cinema := &model.Cinema{
		ID:           uuid.Must(uuid.NewV7()),
		OrganizerID:  p.ID,
		Name:         strings.TrimSpace(body.Name),
		Location:     body.Location,
		ContactEmail: strings.TrimSpace(body.ContactEmail),
	}
	if err := h.Cinemas.Create(c.Request().Context(), cinema, p.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cinema)
}

// Update handles PUT /api/cinemas/:id, owner-or-admin.
func (h *CinemaHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fault.Validation("invalid cinema id")
	}
	var body cinemaBody
	if err := c.Bind(&body); err != nil {
		return fault.Validation("invalid request body")
	}
	if err := body.validate(); err != nil {
		return err
	}
	cinema, err := h.Cinemas.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := policy.RequireOwner(p, cinema); err != nil {
		return err
	}
	cinema.Name = strings.TrimSpace(body.Name)
	cinema.Location = body.Location
	cinema.ContactEmail = strings.TrimSpace(body.ContactEmail)
	if err := h.Cinemas.Update(c.Request().Context(), cinema, p.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateStatus handles PATCH /api/cinemas/:id/status?status=…, admin-only.
func (h *CinemaHandler) UpdateStatus(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := policy.RequireAdmin(p); err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fault.Validation("invalid cinema id")
	}
	status := model.ApprovalStatus(strings.ToUpper(c.QueryParam("status")))
	if !status.Valid() {
		return fault.Validation("status must be one of PENDING, APPROVED, REJECTED")
	}
	if err := h.Cinemas.UpdateStatus(c.Request().Context(), id, status, p.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /api/cinemas/:id, owner-or-admin.
func (h *CinemaHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fault.Validation("invalid cinema id")
	}
	cinema, err := h.Cinemas.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := policy.RequireOwner(p, cinema); err != nil {
		return err
	}
	if err := h.Cinemas.SoftDelete(c.Request().Context(), id, p.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
