package worker

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hivecinema/hive/internal/model"
)

// fakeOutbox is an in-memory outbox table honoring the claim protocol.
type fakeOutbox struct {
	rows map[uuid.UUID]*model.OutboxMessage
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{rows: make(map[uuid.UUID]*model.OutboxMessage)}
}

func (f *fakeOutbox) add(m model.OutboxMessage) *model.OutboxMessage {
	cp := m
	f.rows[m.ID] = &cp
	return &cp
}

func (f *fakeOutbox) ResetStuck(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for _, r := range f.rows {
		if r.ProcessingAt != nil && r.ProcessedAt == nil && r.ProcessingAt.Before(before) {
			r.ProcessingAt = nil
			n++
		}
	}
	return n, nil
}

func (f *fakeOutbox) Claim(_ context.Context, limit, maxRetries int) ([]model.OutboxMessage, error) {
	eligible := make([]*model.OutboxMessage, 0)
	for _, r := range f.rows {
		if r.ProcessedAt == nil && r.ProcessingAt == nil && r.RetryCount < maxRetries {
			eligible = append(eligible, r)
		}
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].CreatedAt.Before(eligible[j].CreatedAt) })
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}
	now := time.Now().UTC()
	out := make([]model.OutboxMessage, 0, len(eligible))
	for _, r := range eligible {
		at := now
		r.ProcessingAt = &at
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeOutbox) MarkProcessed(_ context.Context, id uuid.UUID) error {
	r := f.rows[id]
	now := time.Now().UTC()
	r.ProcessedAt = &now
	r.ErrorMessage = nil
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id uuid.UUID, errMsg string, poisoned bool) error {
	r := f.rows[id]
	r.RetryCount++
	r.ErrorMessage = &errMsg
	r.ProcessingAt = nil
	if poisoned {
		now := time.Now().UTC()
		r.ProcessedAt = &now
	}
	return nil
}

// fakeBroker records publishes and fails on demand.
type fakeBroker struct {
	failAll   bool
	published []model.OutboxMessage
	attempts  int
}

func (f *fakeBroker) Publish(_ context.Context, m model.OutboxMessage) error {
	f.attempts++
	if f.failAll {
		return errors.New("broker unreachable")
	}
	f.published = append(f.published, m)
	return nil
}

func testConfig() DispatcherConfig {
	return DispatcherConfig{BatchSize: 50, TickInterval: 10 * time.Second, StuckTimeout: 5 * time.Minute, MaxRetries: 5}
}

func emailRow(createdAt time.Time) model.OutboxMessage {
	return model.OutboxMessage{
		ID:        uuid.New(),
		EventType: model.EventTypeEmailNotification,
		Payload:   []byte(`{"recipientEmail":"buyer@example.com"}`),
		CreatedAt: createdAt,
	}
}

func TestDispatchHappyPath(t *testing.T) {
	outbox := newFakeOutbox()
	row := outbox.add(emailRow(time.Now().UTC()))
	broker := &fakeBroker{}
	d := NewDispatcher(outbox, broker, testConfig(), zap.NewNop())

	require.NoError(t, d.RunOnce(context.Background()))

	require.Len(t, broker.published, 1)
	assert.Equal(t, row.ID, broker.published[0].ID)
	assert.NotNil(t, row.ProcessedAt)
	assert.Nil(t, row.ErrorMessage)
	assert.Zero(t, row.RetryCount)
}

func TestDispatchOldestFirst(t *testing.T) {
	outbox := newFakeOutbox()
	now := time.Now().UTC()
	newer := outbox.add(emailRow(now))
	older := outbox.add(emailRow(now.Add(-time.Minute)))
	broker := &fakeBroker{}
	d := NewDispatcher(outbox, broker, testConfig(), zap.NewNop())

	require.NoError(t, d.RunOnce(context.Background()))
	require.Len(t, broker.published, 2)
	assert.Equal(t, older.ID, broker.published[0].ID)
	assert.Equal(t, newer.ID, broker.published[1].ID)
}

func TestDispatchRetriesThenPoisons(t *testing.T) {
	outbox := newFakeOutbox()
	row := outbox.add(emailRow(time.Now().UTC()))
	broker := &fakeBroker{failAll: true}
	d := NewDispatcher(outbox, broker, testConfig(), zap.NewNop())

	// Five failing passes exhaust the retry budget.
	for i := 0; i < 5; i++ {
		require.NoError(t, d.RunOnce(context.Background()))
	}
	assert.Equal(t, 5, broker.attempts)
	assert.Equal(t, 5, row.RetryCount)
	require.NotNil(t, row.ErrorMessage)
	assert.Equal(t, "broker unreachable", *row.ErrorMessage)
	assert.NotNil(t, row.ProcessedAt, "poisoned rows carry processed_at so they are never reclaimed")

	// Further passes never touch the poisoned row.
	require.NoError(t, d.RunOnce(context.Background()))
	assert.Equal(t, 5, broker.attempts)
}

func TestDispatchStuckRowsAreReclaimed(t *testing.T) {
	outbox := newFakeOutbox()
	row := outbox.add(emailRow(time.Now().UTC()))
	stale := time.Now().UTC().Add(-10 * time.Minute)
	row.ProcessingAt = &stale
	broker := &fakeBroker{}
	d := NewDispatcher(outbox, broker, testConfig(), zap.NewNop())

	// First pass resets the stale claim; the row is claimable again within
	// the same pass ordering guarantees, so it publishes now or next pass.
	require.NoError(t, d.RunOnce(context.Background()))
	require.NoError(t, d.RunOnce(context.Background()))
	assert.NotNil(t, row.ProcessedAt)
	require.Len(t, broker.published, 1)
}

func TestDispatchFreshClaimIsNotReclaimed(t *testing.T) {
	outbox := newFakeOutbox()
	row := outbox.add(emailRow(time.Now().UTC()))
	recent := time.Now().UTC().Add(-time.Minute)
	row.ProcessingAt = &recent
	broker := &fakeBroker{}
	d := NewDispatcher(outbox, broker, testConfig(), zap.NewNop())

	require.NoError(t, d.RunOnce(context.Background()))
	assert.Empty(t, broker.published, "a row claimed a minute ago still belongs to its claimer")
}

func TestDispatchBatchLimit(t *testing.T) {
	outbox := newFakeOutbox()
	now := time.Now().UTC()
	for i := 0; i < 60; i++ {
		outbox.add(emailRow(now.Add(time.Duration(i) * time.Second)))
	}
	broker := &fakeBroker{}
	d := NewDispatcher(outbox, broker, testConfig(), zap.NewNop())

	require.NoError(t, d.RunOnce(context.Background()))
	assert.Len(t, broker.published, 50)
}
