package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/hivecinema/hive/internal/seatmap"
)

// TicketStatus is the lifecycle state of a ticket.  Transitions are owned by
// the reservation service and the expiry worker; terminal states are never
// rewritten.
type TicketStatus string

const (
	TicketPending   TicketStatus = "PENDING"
	TicketConfirmed TicketStatus = "CONFIRMED"
	TicketExpired   TicketStatus = "EXPIRED"
	TicketCancelled TicketStatus = "CANCELLED"
)

// Ticket is a group reservation of seats on one showtime.  While Pending,
// every reserved seat cell is Reserved in the showtime buffer; Confirmed
// tickets hold Sold cells.  Expired and Cancelled tickets have released
// their cells (releases are idempotent).  UserEmail is captured from the
// principal at reservation time so the notification path does not depend on
// the identity service being reachable.
//
// Fields:
//  ID               – time-sortable UUIDv7 primary key.
//  UserID           – opaque principal id of the buyer.
//  UserEmail        – buyer email captured at reservation time (may be empty).
//  ShowtimeID       – non-owning reference to the showtime.
//  BookingReference – globally unique human-readable code, "HIVE-" + 8 hex.
//  ReservedSeats    – seat coordinates held by this ticket (embedded JSON).
//  TotalAmount      – base price per seat plus tier surcharges.
//  Status           – lifecycle state.
//  CreatedAt        – UTC creation instant; anchors the hold window.
//  PaidAt           – UTC payment instant, nil until confirmed.
type Ticket struct {
	ID               uuid.UUID      `json:"id"`
	UserID           string         `json:"user_id"`
	UserEmail        string         `json:"-"`
	ShowtimeID       uuid.UUID      `json:"showtime_id"`
	BookingReference string         `json:"booking_reference"`
	ReservedSeats    []seatmap.Seat `json:"reserved_seats"`
	TotalAmount      Money          `json:"total_amount"`
	Status           TicketStatus   `json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
	PaidAt           *time.Time     `json:"paid_at,omitempty"`
	SoftDelete
}

// TicketDetail is the denormalized read model returned by the my-bookings
// listing: the ticket joined with movie, cinema and auditorium names so the
// client renders without further lookups.
type TicketDetail struct {
	Ticket
	MovieTitle     string    `json:"movie_title"`
	CinemaName     string    `json:"cinema_name"`
	AuditoriumName string    `json:"auditorium_name"`
	StartTime      time.Time `json:"start_time"`
}
