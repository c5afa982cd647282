package service

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hivecinema/hive/internal/cache"
	"github.com/hivecinema/hive/internal/fault"
	"github.com/hivecinema/hive/internal/model"
	"github.com/hivecinema/hive/internal/seatmap"
)

var buyer = model.Principal{ID: "user-1", Email: "buyer@example.com", Roles: []string{model.RoleCustomer}}

func newTestService(f *fakeStore) (*ReservationService, *cache.MemorySeatMapCache) {
	c := cache.NewMemory()
	return NewReservationService(f, f, c, nil, zap.NewNop()), c
}

func vipLayout() model.Layout {
	return model.Layout{Tiers: []model.Tier{
		{TierName: "VIP", PriceSurcharge: model.Money(500), Seats: []seatmap.Seat{{Row: 5, Col: 5}}},
	}}
}

func TestReserveHappy(t *testing.T) {
	f := newFakeStore(10, 10)
	f.aud.Layout = vipLayout()
	svc, _ := newTestService(f)

	ticket, err := svc.Reserve(context.Background(), buyer, f.show.ID, []seatmap.Seat{{Row: 0, Col: 0}, {Row: 5, Col: 5}})
	require.NoError(t, err)

	assert.Equal(t, "25.00", ticket.TotalAmount.String())
	assert.Equal(t, model.TicketPending, ticket.Status)
	assert.Equal(t, buyer.ID, ticket.UserID)
	assert.Equal(t, buyer.Email, ticket.UserEmail)
	assert.NotZero(t, ticket.CreatedAt)

	assert.Equal(t, seatmap.StatusReserved, f.cellAt(0, 0))
	assert.Equal(t, seatmap.StatusReserved, f.cellAt(5, 5))
	assert.Len(t, f.show.SeatState, 100)
	assert.Equal(t, int64(2), f.show.Version)
}

func TestReserveSeatConflict(t *testing.T) {
	f := newFakeStore(10, 10)
	f.show.SeatState[0] = byte(seatmap.StatusSold)
	svc, _ := newTestService(f)

	_, err := svc.Reserve(context.Background(), buyer, f.show.ID, []seatmap.Seat{{Row: 0, Col: 0}})
	assert.True(t, fault.IsKind(err, fault.KindSeatsUnavailable))
	assert.Empty(t, f.tickets)
	assert.Equal(t, seatmap.StatusSold, f.cellAt(0, 0))
}

func TestReserveConcurrentIdenticalRequests(t *testing.T) {
	f := newFakeStore(10, 10)
	svc, _ := newTestService(f)

	// Both requests observe the showtime at the same version, as they would
	// when hitting storage at the same instant.
	f.stageStaleReads(2)

	_, err1 := svc.Reserve(context.Background(), buyer, f.show.ID, []seatmap.Seat{{Row: 0, Col: 0}})
	_, err2 := svc.Reserve(context.Background(), buyer, f.show.ID, []seatmap.Seat{{Row: 0, Col: 0}})

	require.NoError(t, err1)
	assert.True(t, fault.IsKind(err2, fault.KindConcurrency))
	assert.Len(t, f.tickets, 1)
	assert.Equal(t, seatmap.StatusReserved, f.cellAt(0, 0))
}

func TestReserveOutOfBounds(t *testing.T) {
	f := newFakeStore(10, 10)
	svc, _ := newTestService(f)

	_, err := svc.Reserve(context.Background(), buyer, f.show.ID, []seatmap.Seat{{Row: 99, Col: 99}})
	assert.True(t, fault.IsKind(err, fault.KindValidation))
	assert.Empty(t, f.tickets)
	for _, b := range f.show.SeatState {
		assert.Equal(t, byte(seatmap.StatusAvailable), b)
	}
}

func TestReserveEmptySeats(t *testing.T) {
	f := newFakeStore(10, 10)
	svc, _ := newTestService(f)

	_, err := svc.Reserve(context.Background(), buyer, f.show.ID, nil)
	assert.True(t, fault.IsKind(err, fault.KindValidation))
}

func TestReserveDisabledSeat(t *testing.T) {
	f := newFakeStore(10, 10)
	f.aud.Layout = model.Layout{DisabledSeats: []seatmap.Seat{{Row: 2, Col: 2}}}
	svc, _ := newTestService(f)

	_, err := svc.Reserve(context.Background(), buyer, f.show.ID, []seatmap.Seat{{Row: 2, Col: 2}})
	assert.True(t, fault.IsKind(err, fault.KindValidation))
	assert.Empty(t, f.tickets)
}

func TestReserveUnknownShowtime(t *testing.T) {
	f := newFakeStore(10, 10)
	svc, _ := newTestService(f)

	_, err := svc.Reserve(context.Background(), buyer, uuid.New(), []seatmap.Seat{{Row: 0, Col: 0}})
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestReserveInvalidatesSeatMapCache(t *testing.T) {
	f := newFakeStore(10, 10)
	svc, c := newTestService(f)
	c.Set(context.Background(), f.show.ID, []byte("stale"), time.Minute)

	_, err := svc.Reserve(context.Background(), buyer, f.show.ID, []seatmap.Seat{{Row: 1, Col: 1}})
	require.NoError(t, err)
	_, hit := c.Get(context.Background(), f.show.ID)
	assert.False(t, hit)
}

func TestReserveRetriesBookingReferenceCollision(t *testing.T) {
	f := newFakeStore(10, 10)
	f.dupRefs = 2
	svc, _ := newTestService(f)

	ticket, err := svc.Reserve(context.Background(), buyer, f.show.ID, []seatmap.Seat{{Row: 0, Col: 1}})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^HIVE-[0-9A-F]{8}$`), ticket.BookingReference)
}

func TestReserveGivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFakeStore(10, 10)
	f.dupRefs = 3
	svc, _ := newTestService(f)

	_, err := svc.Reserve(context.Background(), buyer, f.show.ID, []seatmap.Seat{{Row: 0, Col: 1}})
	assert.Error(t, err)
	assert.Empty(t, f.tickets)
}

func reservePending(t *testing.T, svc *ReservationService, f *fakeStore, seats ...seatmap.Seat) *model.Ticket {
	t.Helper()
	ticket, err := svc.Reserve(context.Background(), buyer, f.show.ID, seats)
	require.NoError(t, err)
	return ticket
}

func TestConfirmHappy(t *testing.T) {
	f := newFakeStore(10, 10)
	svc, c := newTestService(f)
	ticket := reservePending(t, svc, f, seatmap.Seat{Row: 0, Col: 0})
	c.Set(context.Background(), f.show.ID, []byte("stale"), time.Minute)

	confirmed, err := svc.ConfirmPayment(context.Background(), ticket.BookingReference)
	require.NoError(t, err)

	assert.Equal(t, model.TicketConfirmed, confirmed.Status)
	assert.NotNil(t, confirmed.PaidAt)
	assert.Equal(t, seatmap.StatusSold, f.cellAt(0, 0))

	require.Len(t, f.outbox, 1)
	assert.Equal(t, model.EventTypeEmailNotification, f.outbox[0].EventType)
	var payload model.EmailNotification
	require.NoError(t, json.Unmarshal(f.outbox[0].Payload, &payload))
	assert.Equal(t, buyer.Email, payload.RecipientEmail)
	assert.Equal(t, "booking-confirmed", payload.TemplateCode)
	assert.Equal(t, ticket.BookingReference, payload.Variables["bookingReference"])

	_, hit := c.Get(context.Background(), f.show.ID)
	assert.False(t, hit)
}

func TestConfirmIsIdempotent(t *testing.T) {
	f := newFakeStore(10, 10)
	svc, _ := newTestService(f)
	ticket := reservePending(t, svc, f, seatmap.Seat{Row: 0, Col: 0})

	_, err := svc.ConfirmPayment(context.Background(), ticket.BookingReference)
	require.NoError(t, err)
	versionAfterFirst := f.show.Version

	again, err := svc.ConfirmPayment(context.Background(), ticket.BookingReference)
	require.NoError(t, err)
	assert.Equal(t, model.TicketConfirmed, again.Status)
	assert.Len(t, f.outbox, 1, "repeat webhook must not enqueue another event")
	assert.Equal(t, versionAfterFirst, f.show.Version, "repeat webhook must not touch the buffer")
}

func TestConfirmAfterExpiryIsRejected(t *testing.T) {
	f := newFakeStore(10, 10)
	svc, _ := newTestService(f)
	ticket := reservePending(t, svc, f, seatmap.Seat{Row: 0, Col: 0})

	// The sweep beat the webhook: ticket expired, seat back to available.
	f.tickets[ticket.BookingReference].Status = model.TicketExpired
	f.show.SeatState[0] = byte(seatmap.StatusAvailable)

	_, err := svc.ConfirmPayment(context.Background(), ticket.BookingReference)
	assert.True(t, fault.IsKind(err, fault.KindInvalidState))
	assert.Equal(t, seatmap.StatusAvailable, f.cellAt(0, 0))
	assert.Equal(t, model.TicketExpired, f.tickets[ticket.BookingReference].Status)
	assert.Empty(t, f.outbox)
}

func TestConfirmUnknownReference(t *testing.T) {
	f := newFakeStore(10, 10)
	svc, _ := newTestService(f)

	_, err := svc.ConfirmPayment(context.Background(), "HIVE-DEADBEEF")
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestConfirmResolvesMissingEmail(t *testing.T) {
	f := newFakeStore(10, 10)
	emails := &fakeEmails{email: "resolved@example.com"}
	c := cache.NewMemory()
	svc := NewReservationService(f, f, c, emails, zap.NewNop())

	noEmail := model.Principal{ID: "user-2", Roles: []string{model.RoleCustomer}}
	ticket, err := svc.Reserve(context.Background(), noEmail, f.show.ID, []seatmap.Seat{{Row: 4, Col: 4}})
	require.NoError(t, err)

	_, err = svc.ConfirmPayment(context.Background(), ticket.BookingReference)
	require.NoError(t, err)
	require.Len(t, f.outbox, 1)
	var payload model.EmailNotification
	require.NoError(t, json.Unmarshal(f.outbox[0].Payload, &payload))
	assert.Equal(t, "resolved@example.com", payload.RecipientEmail)
	assert.Equal(t, 1, emails.calls)
}

func TestListMyTickets(t *testing.T) {
	f := newFakeStore(10, 10)
	svc, _ := newTestService(f)

	details, err := svc.ListMyTickets(context.Background(), buyer)
	require.NoError(t, err)
	assert.Empty(t, details)

	reservePending(t, svc, f, seatmap.Seat{Row: 0, Col: 0})
	details, err = svc.ListMyTickets(context.Background(), buyer)
	require.NoError(t, err)
	assert.Len(t, details, 1)
}

func TestBookingReferenceFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^HIVE-[0-9A-F]{8}$`)
	for i := 0; i < 32; i++ {
		ref, err := newBookingReference()
		require.NoError(t, err)
		assert.Regexp(t, pattern, ref)
	}
}
