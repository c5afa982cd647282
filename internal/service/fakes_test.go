package service

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hivecinema/hive/internal/fault"
	"github.com/hivecinema/hive/internal/model"
	"github.com/hivecinema/hive/internal/repository"
	"github.com/hivecinema/hive/internal/seatmap"
)

// fakeStore emulates the repository layer in memory, including the
// compare-and-swap on the showtime version token.  Reads hand out deep
// copies like a real storage round-trip would, so tests can stage stale
// reads to provoke concurrency conflicts.
type fakeStore struct {
	show    model.Showtime
	aud     model.Auditorium
	tickets map[string]*model.Ticket
	outbox  []*model.OutboxMessage

	// stagedReads, when non-empty, are returned by GetWithAuditorium before
	// any live snapshot.  Used to simulate two requests reading the same
	// version at the same instant.
	stagedReads []model.Showtime
	// dupRefs makes the next n CreatePending calls fail with a booking
	// reference collision.
	dupRefs int
}

func newFakeStore(rows, cols int) *fakeStore {
	return &fakeStore{
		show: model.Showtime{
			ID:        uuid.New(),
			MovieID:   uuid.New(),
			StartTime: time.Now().UTC().Add(24 * time.Hour),
			BasePrice: model.Money(1000),
			SeatState: make([]byte, rows*cols),
			Version:   1,
		},
		aud: model.Auditorium{
			ID:         uuid.New(),
			CinemaID:   uuid.New(),
			Name:       "Screen 1",
			MaxRows:    rows,
			MaxColumns: cols,
		},
		tickets: make(map[string]*model.Ticket),
	}
}

func (f *fakeStore) snapshot() model.Showtime {
	cp := f.show
	cp.SeatState = bytes.Clone(f.show.SeatState)
	return cp
}

func (f *fakeStore) GetWithAuditorium(_ context.Context, id uuid.UUID) (*model.Showtime, *model.Auditorium, error) {
	if len(f.stagedReads) > 0 {
		cp := f.stagedReads[0]
		f.stagedReads = f.stagedReads[1:]
		aud := f.aud
		return &cp, &aud, nil
	}
	if id != f.show.ID {
		return nil, nil, fault.NotFound("showtime")
	}
	cp := f.snapshot()
	aud := f.aud
	return &cp, &aud, nil
}

// stageStaleReads queues n identical snapshots of the current state.
func (f *fakeStore) stageStaleReads(n int) {
	for i := 0; i < n; i++ {
		f.stagedReads = append(f.stagedReads, f.snapshot())
	}
}

func (f *fakeStore) cas(s *model.Showtime) error {
	if s.Version != f.show.Version {
		return fault.Concurrency("showtime was modified concurrently")
	}
	f.show.SeatState = bytes.Clone(s.SeatState)
	f.show.Version++
	s.Version++
	return nil
}

func (f *fakeStore) CreatePending(_ context.Context, t *model.Ticket, s *model.Showtime) error {
	if f.dupRefs > 0 {
		f.dupRefs--
		return repository.ErrDuplicateReference
	}
	if err := f.cas(s); err != nil {
		return err
	}
	cp := *t
	f.tickets[t.BookingReference] = &cp
	return nil
}

func (f *fakeStore) Confirm(_ context.Context, t *model.Ticket, s *model.Showtime, msg *model.OutboxMessage) error {
	stored, ok := f.tickets[t.BookingReference]
	if !ok {
		return fault.NotFound("ticket")
	}
	if stored.Status != model.TicketPending {
		return fault.Concurrency("ticket left pending state concurrently")
	}
	if err := f.cas(s); err != nil {
		return err
	}
	stored.Status = model.TicketConfirmed
	stored.PaidAt = t.PaidAt
	t.Status = model.TicketConfirmed
	if msg != nil {
		f.outbox = append(f.outbox, msg)
	}
	return nil
}

func (f *fakeStore) GetByReference(_ context.Context, ref string) (*model.Ticket, error) {
	stored, ok := f.tickets[ref]
	if !ok {
		return nil, fault.NotFound("ticket")
	}
	cp := *stored
	cp.ReservedSeats = append([]seatmap.Seat(nil), stored.ReservedSeats...)
	return &cp, nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID string) ([]model.TicketDetail, error) {
	out := make([]model.TicketDetail, 0)
	for _, t := range f.tickets {
		if t.UserID == userID && !t.IsDeleted {
			out = append(out, model.TicketDetail{Ticket: *t})
		}
	}
	return out, nil
}

func (f *fakeStore) cellAt(row, col int) seatmap.SeatStatus {
	return seatmap.SeatStatus(f.show.SeatState[row*f.aud.MaxColumns+col])
}

// fakeEmails is a scripted EmailResolver.
type fakeEmails struct {
	email string
	err   error
	calls int
}

func (f *fakeEmails) GetUserEmail(context.Context, string) (string, error) {
	f.calls++
	return f.email, f.err
}
