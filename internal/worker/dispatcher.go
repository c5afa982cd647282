package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hivecinema/hive/internal/model"
)

// OutboxStore is the dispatcher's view of the outbox table.
type OutboxStore interface {
	ResetStuck(ctx context.Context, before time.Time) (int64, error)
	Claim(ctx context.Context, limit, maxRetries int) ([]model.OutboxMessage, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, poisoned bool) error
}

// BrokerPublisher publishes one staged message to the broker.
type BrokerPublisher interface {
	Publish(ctx context.Context, m model.OutboxMessage) error
}

// DispatcherConfig carries the outbox tunables.
type DispatcherConfig struct {
	BatchSize    int           // rows claimed per pass
	TickInterval time.Duration // pass cadence
	StuckTimeout time.Duration // claim age before a row is reclaimed
	MaxRetries   int           // publish attempts before poisoning
}

// Dispatcher claims outbox rows and publishes them with bounded retries.
// Delivery is at-least-once: a crash between publish and MarkProcessed
// republishes the row, and downstream consumers deduplicate on the message
// id.  Rows that exhaust the retry budget are poisoned – marked processed so
// they never dispatch again but keep their error for operators.
type Dispatcher struct {
	outbox    OutboxStore
	publisher BrokerPublisher
	cfg       DispatcherConfig
	log       *zap.Logger

	stop chan struct{}
	done chan struct{}
}

// NewDispatcher wires the dispatcher.
func NewDispatcher(outbox OutboxStore, publisher BrokerPublisher, cfg DispatcherConfig, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		outbox:    outbox,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the ticker loop.  Call Stop to finish the current batch and
// exit.
func (d *Dispatcher) Start(ctx context.Context) {
	go func() {
		defer close(d.done)
		ticker := time.NewTicker(d.cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := d.RunOnce(ctx); err != nil {
					d.log.Error("outbox pass failed", zap.Error(err))
				}
			case <-d.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop signals the loop and waits for the in-flight batch to finish.
func (d *Dispatcher) Stop() {
	close(d.stop)
	<-d.done
}

// RunOnce executes one dispatcher pass: reclaim stuck rows, claim a batch,
// publish each row and record the outcome.  Per-row failures never abort the
// batch.
func (d *Dispatcher) RunOnce(ctx context.Context) error {
	reset, err := d.outbox.ResetStuck(ctx, time.Now().UTC().Add(-d.cfg.StuckTimeout))
	if err != nil {
		return err
	}
	if reset > 0 {
		d.log.Warn("reclaimed stuck outbox rows", zap.Int64("count", reset))
	}
	batch, err := d.outbox.Claim(ctx, d.cfg.BatchSize, d.cfg.MaxRetries)
	if err != nil {
		return err
	}
	for _, m := range batch {
		if err := d.publisher.Publish(ctx, m); err != nil {
			// A cancelled publish counts as a retriable failure like any
			// other.
			poisoned := m.RetryCount+1 >= d.cfg.MaxRetries
			if markErr := d.outbox.MarkFailed(ctx, m.ID, err.Error(), poisoned); markErr != nil {
				d.log.Error("failed to record publish failure",
					zap.String("message_id", m.ID.String()), zap.Error(markErr))
				continue
			}
			if poisoned {
				d.log.Error("outbox row poisoned after retry budget",
					zap.String("message_id", m.ID.String()),
					zap.Int("retries", m.RetryCount+1),
					zap.Error(err))
			} else {
				d.log.Warn("publish failed, will retry",
					zap.String("message_id", m.ID.String()),
					zap.Int("retries", m.RetryCount+1),
					zap.Error(err))
			}
			continue
		}
		if err := d.outbox.MarkProcessed(ctx, m.ID); err != nil {
			// The publish went out; the row will be republished next pass
			// and deduplicated downstream by message id.
			d.log.Error("failed to mark outbox row processed",
				zap.String("message_id", m.ID.String()), zap.Error(err))
		}
	}
	return nil
}
