// Package service implements the reservation core: the Pending/Confirmed
// lifecycle of tickets, the money calculation and the seat-map read model.
// Services own no transactions themselves – the repository layer exposes the
// atomic units – but they own every state-machine decision.
package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hivecinema/hive/internal/cache"
	"github.com/hivecinema/hive/internal/fault"
	"github.com/hivecinema/hive/internal/model"
	"github.com/hivecinema/hive/internal/repository"
	"github.com/hivecinema/hive/internal/seatmap"
)

// referenceAttempts bounds regeneration after a booking-reference collision.
const referenceAttempts = 3

// ShowtimeStore is the showtime access the reservation path needs.
type ShowtimeStore interface {
	GetWithAuditorium(ctx context.Context, id uuid.UUID) (*model.Showtime, *model.Auditorium, error)
}

// TicketStore is the transactional ticket access the reservation path needs.
// Implementations couple each call to the showtime buffer write under the
// optimistic version token.
type TicketStore interface {
	CreatePending(ctx context.Context, t *model.Ticket, s *model.Showtime) error
	Confirm(ctx context.Context, t *model.Ticket, s *model.Showtime, msg *model.OutboxMessage) error
	GetByReference(ctx context.Context, ref string) (*model.Ticket, error)
	ListByUser(ctx context.Context, userID string) ([]model.TicketDetail, error)
}

// EmailResolver looks up an account email when the ticket was created
// without one on the principal.
type EmailResolver interface {
	GetUserEmail(ctx context.Context, userID string) (string, error)
}

// ReservationService owns the reserve/confirm/list operations.
type ReservationService struct {
	showtimes ShowtimeStore
	tickets   TicketStore
	seatMaps  cache.SeatMapCache
	emails    EmailResolver
	log       *zap.Logger
}

// NewReservationService wires the reservation service.  emails may be nil
// when no identity fallback is configured.
func NewReservationService(showtimes ShowtimeStore, tickets TicketStore, seatMaps cache.SeatMapCache, emails EmailResolver, log *zap.Logger) *ReservationService {
	return &ReservationService{showtimes: showtimes, tickets: tickets, seatMaps: seatMaps, emails: emails, log: log}
}

// Reserve atomically holds the requested seats for the principal and writes
// a Pending ticket.  The seat buffer mutation and the ticket insert commit
// under the showtime's version token; a token mismatch surfaces as a
// concurrency conflict and is not retried here – the client must re-read the
// seat map and re-request.
func (s *ReservationService) Reserve(ctx context.Context, p model.Principal, showtimeID uuid.UUID, seats []seatmap.Seat) (*model.Ticket, error) {
	if len(seats) == 0 {
		return nil, fault.Validation("at least one seat is required")
	}
	show, aud, err := s.showtimes.GetWithAuditorium(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	engine, err := seatmap.New(show.SeatState, aud.MaxRows, aud.MaxColumns)
	if err != nil {
		return nil, fault.Internal("seat buffer does not match auditorium", err)
	}
	disabled := aud.Layout.DisabledSet()
	for _, st := range seats {
		if _, off := disabled[st]; off {
			return nil, fault.Validationf("seat (%d,%d) is not a sellable seat", st.Row, st.Col)
		}
	}
	ok, err := engine.TryReserveBatch(seats)
	if err != nil {
		if errors.Is(err, seatmap.ErrOutOfRange) {
			return nil, fault.Wrap(fault.KindValidation, "seat out of bounds", err)
		}
		return nil, fault.Internal("seat state corrupted", err)
	}
	if !ok {
		return nil, fault.SeatsUnavailable("one or more requested seats are not available")
	}

	total := s.price(show.BasePrice, aud.Layout, seats)
	ticket := &model.Ticket{
		ID:            newID(),
		UserID:        p.ID,
		UserEmail:     p.Email,
		ShowtimeID:    show.ID,
		ReservedSeats: seats,
		TotalAmount:   total,
		Status:        model.TicketPending,
		CreatedAt:     time.Now().UTC(),
	}
	for attempt := 0; ; attempt++ {
		ref, err := newBookingReference()
		if err != nil {
			return nil, fault.Internal("generate booking reference", err)
		}
		ticket.BookingReference = ref
		err = s.tickets.CreatePending(ctx, ticket, show)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicateReference) && attempt+1 < referenceAttempts {
			s.log.Warn("booking reference collision, regenerating", zap.String("reference", ref))
			continue
		}
		return nil, err
	}
	s.seatMaps.Invalidate(ctx, show.ID)
	s.log.Info("seats reserved",
		zap.String("ticket_id", ticket.ID.String()),
		zap.String("showtime_id", show.ID.String()),
		zap.Int("seats", len(seats)),
		zap.String("total", ticket.TotalAmount.String()))
	return ticket, nil
}

// price sums the base price per seat plus any tier surcharge.  Plain
// fixed-point addition; nothing is rounded.
func (s *ReservationService) price(base model.Money, layout model.Layout, seats []seatmap.Seat) model.Money {
	surcharges := layout.SurchargeMap()
	total := model.Money(0)
	for _, st := range seats {
		total += base + surcharges[st]
	}
	return total
}

// ConfirmPayment transitions a Pending ticket to Confirmed after the payment
// webhook.  Already-Confirmed tickets return success without side effects so
// repeated webhook deliveries stay quiet; any other non-Pending state is an
// invalid transition – an Expired ticket is never revived.  The seat flips,
// the ticket update and the email notification event commit in one
// transaction.
func (s *ReservationService) ConfirmPayment(ctx context.Context, ref string) (*model.Ticket, error) {
	ticket, err := s.tickets.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	if ticket.Status == model.TicketConfirmed {
		return ticket, nil
	}
	if ticket.Status != model.TicketPending {
		return nil, fault.InvalidState(fmt.Sprintf("ticket is %s and cannot be confirmed", ticket.Status))
	}
	show, aud, err := s.showtimes.GetWithAuditorium(ctx, ticket.ShowtimeID)
	if err != nil {
		return nil, err
	}
	engine, err := seatmap.New(show.SeatState, aud.MaxRows, aud.MaxColumns)
	if err != nil {
		return nil, fault.Internal("seat buffer does not match auditorium", err)
	}
	for _, st := range ticket.ReservedSeats {
		// A pending ticket's cells must all be Reserved; anything else is
		// corruption and fatal.
		if err := engine.MarkSold(st.Row, st.Col); err != nil {
			return nil, fault.Internal("seat state corrupted during confirm", err)
		}
	}
	now := time.Now().UTC()
	ticket.PaidAt = &now

	msg, err := s.buildEmailEvent(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if err := s.tickets.Confirm(ctx, ticket, show, msg); err != nil {
		return nil, err
	}
	s.seatMaps.Invalidate(ctx, show.ID)
	s.log.Info("ticket confirmed",
		zap.String("ticket_id", ticket.ID.String()),
		zap.String("reference", ticket.BookingReference))
	return ticket, nil
}

// buildEmailEvent assembles the outbox row for the confirmation email.  The
// recipient comes from the email captured at reservation time; tickets
// created without one fall back to the identity service, and a failed lookup
// degrades to an event without recipient rather than blocking the payment.
func (s *ReservationService) buildEmailEvent(ctx context.Context, t *model.Ticket) (*model.OutboxMessage, error) {
	email := t.UserEmail
	if email == "" && s.emails != nil {
		resolved, err := s.emails.GetUserEmail(ctx, t.UserID)
		if err != nil {
			s.log.Warn("email lookup failed, enqueueing without recipient",
				zap.String("user_id", t.UserID), zap.Error(err))
		} else {
			email = resolved
		}
	}
	seatList := make([]string, 0, len(t.ReservedSeats))
	for _, st := range t.ReservedSeats {
		seatList = append(seatList, fmt.Sprintf("(%d,%d)", st.Row, st.Col))
	}
	payload, err := json.Marshal(model.EmailNotification{
		RecipientEmail: email,
		Subject:        fmt.Sprintf("Your booking %s is confirmed", t.BookingReference),
		TemplateCode:   "booking-confirmed",
		Variables: map[string]string{
			"bookingReference": t.BookingReference,
			"totalAmount":      t.TotalAmount.String(),
			"seats":            strings.Join(seatList, ","),
		},
	})
	if err != nil {
		return nil, fault.Internal("encode email event", err)
	}
	return &model.OutboxMessage{
		ID:        newID(),
		EventType: model.EventTypeEmailNotification,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ListMyTickets returns the principal's tickets with denormalized display
// fields, newest first.  Unknown users get an empty list, never an error.
func (s *ReservationService) ListMyTickets(ctx context.Context, p model.Principal) ([]model.TicketDetail, error) {
	return s.tickets.ListByUser(ctx, p.ID)
}

// newID returns a time-sortable UUIDv7, falling back to v4 if the clock
// source fails.
func newID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// newBookingReference produces "HIVE-" plus 8 uppercase hex characters from
// fresh random bytes.  Global uniqueness is enforced by the unique index;
// callers regenerate on collision.
func newBookingReference() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return fmt.Sprintf("HIVE-%08X", binary.BigEndian.Uint32(b[:])), nil
}
