package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hivecinema/hive/internal/fault"
	"github.com/hivecinema/hive/internal/model"
	"github.com/hivecinema/hive/internal/policy"
	"github.com/hivecinema/hive/internal/repository"
	"github.com/hivecinema/hive/internal/service"
)

// ShowtimeHandler serves showtime scheduling and the public seat map.
// Creating a showtime requires ownership of the parent cinema and its
// approval; updates and deletes require ownership only, so organizers can
// still cancel screenings after a revocation.
type ShowtimeHandler struct {
	Showtimes   *repository.ShowtimeRepo
	Auditoriums *repository.AuditoriumRepo
	Cinemas     *repository.CinemaRepo
	Movies      *repository.MovieRepo
	SeatMaps    *service.SeatMapService
}

// NewShowtimeHandler constructs a ShowtimeHandler.
func NewShowtimeHandler(showtimes *repository.ShowtimeRepo, auditoriums *repository.AuditoriumRepo, cinemas *repository.CinemaRepo, movies *repository.MovieRepo, seatMaps *service.SeatMapService) *ShowtimeHandler {
	return &ShowtimeHandler{Showtimes: showtimes, Auditoriums: auditoriums, Cinemas: cinemas, Movies: movies, SeatMaps: seatMaps}
}

type showtimeBody struct {
	MovieID      string `json:"movie_id"`
	AuditoriumID string `json:"auditorium_id"`
	StartTime    string `json:"start_time"` // RFC 3339
	BasePrice    string `json:"base_price"` // decimal, e.g. "10.00"
}

// Create handles POST /api/showtimes.  The seat buffer is initialized to all
// Available, sized by the auditorium grid.
func (h *ShowtimeHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var body showtimeBody
	if err := c.Bind(&body); err != nil {
		return fault.Validation("invalid request body")
	}
	movieID, err := uuid.Parse(body.MovieID)
	if err != nil {
		return fault.Validation("invalid movie_id")
	}
	auditoriumID, err := uuid.Parse(body.AuditoriumID)
	if err != nil {
		return fault.Validation("invalid auditorium_id")
	}
	start, err := time.Parse(time.RFC3339, body.StartTime)
	if err != nil {
		return fault.Validation("start_time must be RFC 3339")
	}
	price, err := model.ParseMoney(body.BasePrice)
	if err != nil || price < 0 {
		return fault.Validation("base_price must be a non-negative decimal amount")
	}
	ctx := c.Request().Context()
	if _, err := h.Movies.GetByID(ctx, movieID); err != nil {
		return err
	}
	auditorium, err := h.Auditoriums.GetByID(ctx, auditoriumID)
	if err != nil {
		return err
	}
	cinema, err := h.Cinemas.GetByID(ctx, auditorium.CinemaID)
	if err != nil {
		return err
	}
	if err := policy.RequireOwner(p, cinema); err != nil {
		return err
	}
	if err := policy.RequireApproved(cinema); err != nil {
		return err
	}
	showtime := &model.Showtime{
		ID:           uuid.Must(uuid.NewV7()),
		MovieID:      movieID,
		AuditoriumID: auditoriumID,
		StartTime:    start.UTC(),
		BasePrice:    price,
		SeatState:    make([]byte, auditorium.MaxRows*auditorium.MaxColumns),
	}
	if err := h.Showtimes.Create(ctx, showtime, p.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, showtime)
}

// ownedShowtime loads a showtime and checks ownership via its auditorium's
// cinema.
func (h *ShowtimeHandler) ownedShowtime(c echo.Context, p model.Principal, id uuid.UUID) (*model.Showtime, error) {
	ctx := c.Request().Context()
	showtime, auditorium, err := h.Showtimes.GetWithAuditorium(ctx, id)
	if err != nil {
		return nil, err
	}
	cinema, err := h.Cinemas.GetByID(ctx, auditorium.CinemaID)
	if err != nil {
		return nil, err
	}
	if err := policy.RequireOwner(p, cinema); err != nil {
		return nil, err
	}
	return showtime, nil
}

// Update handles PUT /api/showtimes/:id.  Only start time and base price are
// mutable; no approval requirement applies.
func (h *ShowtimeHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fault.Validation("invalid showtime id")
	}
	var body struct {
		StartTime string `json:"start_time"`
		BasePrice string `json:"base_price"`
	}
	if err := c.Bind(&body); err != nil {
		return fault.Validation("invalid request body")
	}
	start, err := time.Parse(time.RFC3339, body.StartTime)
	if err != nil {
		return fault.Validation("start_time must be RFC 3339")
	}
	price, err := model.ParseMoney(body.BasePrice)
	if err != nil || price < 0 {
		return fault.Validation("base_price must be a non-negative decimal amount")
	}
	showtime, err := h.ownedShowtime(c, p, id)
	if err != nil {
		return err
	}
	showtime.StartTime = start.UTC()
	showtime.BasePrice = price
	if err := h.Showtimes.Update(c.Request().Context(), showtime, p.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /api/showtimes/:id.
func (h *ShowtimeHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fault.Validation("invalid showtime id")
	}
	showtime, err := h.ownedShowtime(c, p, id)
	if err != nil {
		return err
	}
	if err := h.Showtimes.SoftDelete(c.Request().Context(), id, showtime.Version, p.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SeatMap handles GET /api/showtimes/:id/seatmap, serving the cached
// denormalized seat map.
func (h *ShowtimeHandler) SeatMap(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fault.Validation("invalid showtime id")
	}
	payload, err := h.SeatMaps.GetSeatMap(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, payload)
}
