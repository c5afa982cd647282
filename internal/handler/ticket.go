package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hivecinema/hive/internal/fault"
	"github.com/hivecinema/hive/internal/model"
	"github.com/hivecinema/hive/internal/seatmap"
)

// ReservationOps is the slice of the reservation service the ticket
// endpoints use.
type ReservationOps interface {
	Reserve(ctx context.Context, p model.Principal, showtimeID uuid.UUID, seats []seatmap.Seat) (*model.Ticket, error)
	ConfirmPayment(ctx context.Context, ref string) (*model.Ticket, error)
	ListMyTickets(ctx context.Context, p model.Principal) ([]model.TicketDetail, error)
}

// TicketHandler serves the reservation endpoints and the payment webhook.
type TicketHandler struct {
	Reservations ReservationOps
}

// NewTicketHandler constructs a TicketHandler.
func NewTicketHandler(reservations ReservationOps) *TicketHandler {
	return &TicketHandler{Reservations: reservations}
}

// Reserve handles POST /api/tickets/reserve.  A successful reservation holds
// the seats for the configured hold window and returns the Pending ticket.
func (h *TicketHandler) Reserve(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var body struct {
		ShowtimeID string         `json:"showtime_id"`
		Seats      []seatmap.Seat `json:"seats"`
	}
	if err := c.Bind(&body); err != nil {
		return fault.Validation("invalid request body")
	}
	showtimeID, err := uuid.Parse(body.ShowtimeID)
	if err != nil {
		return fault.Validation("invalid showtime_id")
	}
	ticket, err := h.Reservations.Reserve(c.Request().Context(), p, showtimeID, body.Seats)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"ticket_id":         ticket.ID,
		"booking_reference": ticket.BookingReference,
		"total_amount":      ticket.TotalAmount,
		"status":            ticket.Status,
		"created_at":        ticket.CreatedAt,
	})
}

// MyBookings handles GET /api/tickets/my-bookings.
func (h *TicketHandler) MyBookings(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	details, err := h.Reservations.ListMyTickets(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": details})
}

// PaymentSuccess handles POST /api/tickets/payment/success, the payment
// provider webhook.  Only succeeded payments confirm; anything else is a
// validation failure so the provider retries against a stable contract.
// Repeated deliveries for an already-confirmed ticket return 200.
func (h *TicketHandler) PaymentSuccess(c echo.Context) error {
	var body struct {
		BookingReference string `json:"bookingReference"`
		TransactionID    string `json:"transactionId"`
		Status           string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return fault.Validation("invalid request body")
	}
	if strings.TrimSpace(body.BookingReference) == "" {
		return fault.Validation("bookingReference is required")
	}
	if body.Status != "succeeded" {
		return fault.Validationf("unsupported payment status %q", body.Status)
	}
	ticket, err := h.Reservations.ConfirmPayment(c.Request().Context(), body.BookingReference)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_reference": ticket.BookingReference,
		"status":            ticket.Status,
	})
}
