// Package worker contains the two long-lived background tasks: the expiry
// sweep that reclaims seats from unpaid holds and the outbox dispatcher that
// forwards staged events to the broker.  Both run on a single instance, tick
// on a monotonic ticker and finish their in-flight pass on shutdown.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hivecinema/hive/internal/cache"
	"github.com/hivecinema/hive/internal/fault"
	"github.com/hivecinema/hive/internal/model"
	"github.com/hivecinema/hive/internal/repository"
	"github.com/hivecinema/hive/internal/seatmap"
)

// ExpiryTicketStore is the ticket access the sweep needs.
type ExpiryTicketStore interface {
	ListExpiredPending(ctx context.Context, cutoff time.Time) ([]repository.ExpiryCandidate, error)
	Expire(ctx context.Context, s *model.Showtime, ticketIDs []uuid.UUID) error
}

// ExpiryWorker periodically releases the seats of Pending tickets older than
// the hold window and marks them Expired.  Each showtime is a self-contained
// unit of work: a version conflict on one showtime is logged and retried on
// the next tick without aborting the sweep.
type ExpiryWorker struct {
	tickets    ExpiryTicketStore
	seatMaps   cache.SeatMapCache
	holdWindow time.Duration
	interval   time.Duration
	log        *zap.Logger

	stop chan struct{}
	done chan struct{}
}

// NewExpiryWorker wires the sweep.
func NewExpiryWorker(tickets ExpiryTicketStore, seatMaps cache.SeatMapCache, holdWindow, interval time.Duration, log *zap.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		tickets:    tickets,
		seatMaps:   seatMaps,
		holdWindow: holdWindow,
		interval:   interval,
		log:        log,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the ticker loop.  Call Stop to finish the current sweep and
// exit.
func (w *ExpiryWorker) Start(ctx context.Context) {
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := w.Sweep(ctx); err != nil {
					w.log.Error("expiry sweep failed", zap.Error(err))
				} else if n > 0 {
					w.log.Info("expiry sweep finished", zap.Int("expired", n))
				}
			case <-w.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop signals the loop and waits for the in-flight sweep to finish.
func (w *ExpiryWorker) Stop() {
	close(w.stop)
	<-w.done
}

// Sweep runs one pass: it scans overdue Pending tickets, releases their
// cells grouped per showtime and persists each group under that showtime's
// version token.  It returns the number of tickets expired.
func (w *ExpiryWorker) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-w.holdWindow)
	candidates, err := w.tickets.ListExpiredPending(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	// Candidates arrive ordered by showtime; walk the groups.
	expired := 0
	for start := 0; start < len(candidates); {
		end := start + 1
		for end < len(candidates) && candidates[end].Showtime.ID == candidates[start].Showtime.ID {
			end++
		}
		expired += w.expireGroup(ctx, candidates[start:end])
		start = end
	}
	return expired, nil
}

// expireGroup handles all overdue tickets of one showtime.  Cells that are
// no longer Reserved – already released by a re-entry race or Sold by a
// concurrent confirmation – are skipped silently; that is the tolerated
// idempotency point of the sweep.
func (w *ExpiryWorker) expireGroup(ctx context.Context, group []repository.ExpiryCandidate) int {
	show := group[0].Showtime
	engine, err := seatmap.New(show.SeatState, group[0].MaxRows, group[0].MaxCols)
	if err != nil {
		w.log.Error("skipping showtime with mismatched buffer",
			zap.String("showtime_id", show.ID.String()), zap.Error(err))
		return 0
	}
	ticketIDs := make([]uuid.UUID, 0, len(group))
	for _, c := range group {
		for _, st := range c.Ticket.ReservedSeats {
			if err := engine.Release(st.Row, st.Col); err != nil {
				if errors.Is(err, seatmap.ErrInvalidTransition) {
					continue
				}
				w.log.Warn("skipping unreleasable cell",
					zap.String("ticket_id", c.Ticket.ID.String()),
					zap.Int("row", st.Row), zap.Int("col", st.Col), zap.Error(err))
			}
		}
		ticketIDs = append(ticketIDs, c.Ticket.ID)
	}
	if err := w.tickets.Expire(ctx, &show, ticketIDs); err != nil {
		if fault.IsKind(err, fault.KindConcurrency) {
			// Someone touched the showtime mid-sweep; leave it for the next
			// tick.
			w.log.Warn("expiry skipped showtime on version conflict",
				zap.String("showtime_id", show.ID.String()))
			return 0
		}
		w.log.Error("expiry failed for showtime",
			zap.String("showtime_id", show.ID.String()), zap.Error(err))
		return 0
	}
	w.seatMaps.Invalidate(ctx, show.ID)
	return len(ticketIDs)
}
