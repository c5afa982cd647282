package worker

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hivecinema/hive/internal/cache"
	"github.com/hivecinema/hive/internal/fault"
	"github.com/hivecinema/hive/internal/model"
	"github.com/hivecinema/hive/internal/repository"
	"github.com/hivecinema/hive/internal/seatmap"
)

// fakeExpiryStore serves staged candidates and records Expire calls.
type fakeExpiryStore struct {
	candidates []repository.ExpiryCandidate
	// conflicts lists showtime ids whose Expire call fails with a version
	// conflict.
	conflicts map[uuid.UUID]bool
	// expired records, per showtime, the ticket ids and the buffer that were
	// persisted.
	expired map[uuid.UUID][]uuid.UUID
	buffers map[uuid.UUID][]byte
}

func newFakeExpiryStore() *fakeExpiryStore {
	return &fakeExpiryStore{
		conflicts: make(map[uuid.UUID]bool),
		expired:   make(map[uuid.UUID][]uuid.UUID),
		buffers:   make(map[uuid.UUID][]byte),
	}
}

func (f *fakeExpiryStore) ListExpiredPending(context.Context, time.Time) ([]repository.ExpiryCandidate, error) {
	return f.candidates, nil
}

func (f *fakeExpiryStore) Expire(_ context.Context, s *model.Showtime, ticketIDs []uuid.UUID) error {
	if f.conflicts[s.ID] {
		return fault.Concurrency("showtime was modified concurrently")
	}
	f.expired[s.ID] = append(f.expired[s.ID], ticketIDs...)
	f.buffers[s.ID] = bytes.Clone(s.SeatState)
	return nil
}

// stageCandidate builds an overdue pending ticket on a 10x10 showtime with
// the given seats pre-marked Reserved.
func stageCandidate(showtimeID uuid.UUID, buf []byte, seats ...seatmap.Seat) repository.ExpiryCandidate {
	for _, st := range seats {
		buf[st.Row*10+st.Col] = byte(seatmap.StatusReserved)
	}
	return repository.ExpiryCandidate{
		Ticket: model.Ticket{
			ID:            uuid.New(),
			ShowtimeID:    showtimeID,
			ReservedSeats: seats,
			Status:        model.TicketPending,
			CreatedAt:     time.Now().UTC().Add(-11 * time.Minute),
		},
		Showtime: model.Showtime{ID: showtimeID, SeatState: buf, Version: 3},
		MaxRows:  10,
		MaxCols:  10,
	}
}

func newSweeper(f *fakeExpiryStore, c cache.SeatMapCache) *ExpiryWorker {
	return NewExpiryWorker(f, c, 10*time.Minute, time.Minute, zap.NewNop())
}

func TestSweepExpiresOverdueTicket(t *testing.T) {
	f := newFakeExpiryStore()
	showtimeID := uuid.New()
	cand := stageCandidate(showtimeID, make([]byte, 100), seatmap.Seat{Row: 3, Col: 3})
	f.candidates = []repository.ExpiryCandidate{cand}

	c := cache.NewMemory()
	c.Set(context.Background(), showtimeID, []byte("stale"), time.Minute)

	n, err := newSweeper(f, c).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, f.expired[showtimeID], 1)
	assert.Equal(t, cand.Ticket.ID, f.expired[showtimeID][0])
	assert.Equal(t, byte(seatmap.StatusAvailable), f.buffers[showtimeID][3*10+3])

	_, hit := c.Get(context.Background(), showtimeID)
	assert.False(t, hit, "sweep must invalidate the seat map")
}

func TestSweepSkipsCellsNoLongerReserved(t *testing.T) {
	f := newFakeExpiryStore()
	showtimeID := uuid.New()
	buf := make([]byte, 100)
	// One cell was concurrently sold, the other is still reserved.
	buf[0] = byte(seatmap.StatusSold)
	cand := stageCandidate(showtimeID, buf, seatmap.Seat{Row: 1, Col: 1})
	cand.Ticket.ReservedSeats = []seatmap.Seat{{Row: 0, Col: 0}, {Row: 1, Col: 1}}
	f.candidates = []repository.ExpiryCandidate{cand}

	n, err := newSweeper(f, cache.NewMemory()).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// The sold cell is untouched, the reserved one released.
	assert.Equal(t, byte(seatmap.StatusSold), f.buffers[showtimeID][0])
	assert.Equal(t, byte(seatmap.StatusAvailable), f.buffers[showtimeID][1*10+1])
}

func TestSweepConflictSkipsOnlyThatShowtime(t *testing.T) {
	f := newFakeExpiryStore()
	conflicted := uuid.New()
	healthy := uuid.New()
	f.candidates = []repository.ExpiryCandidate{
		stageCandidate(conflicted, make([]byte, 100), seatmap.Seat{Row: 0, Col: 0}),
		stageCandidate(healthy, make([]byte, 100), seatmap.Seat{Row: 2, Col: 2}),
	}
	f.conflicts[conflicted] = true

	c := cache.NewMemory()
	c.Set(context.Background(), conflicted, []byte("stale"), time.Minute)

	n, err := newSweeper(f, c).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, f.expired[conflicted])
	assert.Len(t, f.expired[healthy], 1)

	// The conflicted showtime's cache entry stays; its cells were not
	// persisted and it retries next tick.
	_, hit := c.Get(context.Background(), conflicted)
	assert.True(t, hit)
}

func TestSweepGroupsTicketsPerShowtime(t *testing.T) {
	f := newFakeExpiryStore()
	showtimeID := uuid.New()
	buf := make([]byte, 100)
	a := stageCandidate(showtimeID, buf, seatmap.Seat{Row: 0, Col: 0})
	b := stageCandidate(showtimeID, buf, seatmap.Seat{Row: 0, Col: 1})
	// Both tickets share one showtime row and must persist as one unit.
	b.Showtime = a.Showtime
	f.candidates = []repository.ExpiryCandidate{a, b}

	n, err := newSweeper(f, cache.NewMemory()).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, f.expired[showtimeID], 2)
}

func TestSweepNothingToDo(t *testing.T) {
	f := newFakeExpiryStore()
	n, err := newSweeper(f, cache.NewMemory()).Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStartStop(t *testing.T) {
	f := newFakeExpiryStore()
	w := NewExpiryWorker(f, cache.NewMemory(), 10*time.Minute, 10*time.Millisecond, zap.NewNop())
	w.Start(context.Background())
	time.Sleep(35 * time.Millisecond)
	w.Stop() // must not hang
}
