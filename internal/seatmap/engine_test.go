package seatmap

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, rows, cols int) (*Engine, []byte) {
	t.Helper()
	buf := make([]byte, rows*cols)
	e, err := New(buf, rows, cols)
	require.NoError(t, err)
	return e, buf
}

func TestNewRejectsMismatchedBuffer(t *testing.T) {
	_, err := New(make([]byte, 99), 10, 10)
	assert.ErrorIs(t, err, ErrBufferSize)

	_, err = New(make([]byte, 100), 0, 10)
	assert.ErrorIs(t, err, ErrBufferSize)

	_, err = New(nil, 1, 1)
	assert.ErrorIs(t, err, ErrBufferSize)
}

func TestStatusBoundsAndCorruption(t *testing.T) {
	e, buf := newEngine(t, 10, 10)

	_, err := e.Status(10, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = e.Status(0, -1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	s, err := e.Status(9, 9)
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, s)

	buf[e.index(3, 4)] = 0x7f
	_, err = e.Status(3, 4)
	assert.ErrorIs(t, err, ErrCorruptState)
}

func TestTryReserveSingle(t *testing.T) {
	e, buf := newEngine(t, 10, 10)

	ok, err := e.TryReserve(0, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, byte(StatusReserved), buf[0])

	// Second attempt on the same cell must leave it untouched.
	ok, err = e.TryReserve(0, 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, byte(StatusReserved), buf[0])
}

func TestTryReserveBatchHappy(t *testing.T) {
	e, buf := newEngine(t, 10, 10)

	ok, err := e.TryReserveBatch([]Seat{{0, 0}, {5, 5}})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, byte(StatusReserved), buf[e.index(0, 0)])
	assert.Equal(t, byte(StatusReserved), buf[e.index(5, 5)])
	assert.Len(t, buf, 100)
}

func TestTryReserveBatchIsAtomic(t *testing.T) {
	e, buf := newEngine(t, 10, 10)
	buf[e.index(5, 5)] = byte(StatusSold)
	snapshot := bytes.Clone(buf)

	// One unavailable seat fails the whole batch with no writes.
	ok, err := e.TryReserveBatch([]Seat{{0, 0}, {5, 5}})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, snapshot, buf)

	// An out-of-range seat fails before any write as well.
	_, err = e.TryReserveBatch([]Seat{{0, 0}, {99, 99}})
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Equal(t, snapshot, buf)
}

func TestTryReserveBatchDuplicatesAreIdempotent(t *testing.T) {
	e1, buf1 := newEngine(t, 10, 10)
	e2, buf2 := newEngine(t, 10, 10)

	ok, err := e1.TryReserveBatch([]Seat{{2, 3}, {2, 3}, {4, 4}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e2.TryReserveBatch([]Seat{{2, 3}, {4, 4}})
	require.NoError(t, err)
	assert.True(t, ok)

	// Duplicated input produces the same final state as deduplicated input.
	assert.Equal(t, buf2, buf1)
}

func TestTryReserveBatchEmpty(t *testing.T) {
	e, buf := newEngine(t, 2, 2)
	snapshot := bytes.Clone(buf)

	ok, err := e.TryReserveBatch(nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.TryReserveBatch([]Seat{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, snapshot, buf)
}

func TestMarkSold(t *testing.T) {
	e, buf := newEngine(t, 10, 10)

	// Selling an available seat is an invalid transition.
	err := e.MarkSold(1, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = e.TryReserve(1, 1)
	require.NoError(t, err)
	require.NoError(t, e.MarkSold(1, 1))
	assert.Equal(t, byte(StatusSold), buf[e.index(1, 1)])

	// Sold is terminal within the engine.
	assert.ErrorIs(t, e.MarkSold(1, 1), ErrInvalidTransition)
	assert.ErrorIs(t, e.Release(1, 1), ErrInvalidTransition)
}

func TestRelease(t *testing.T) {
	e, buf := newEngine(t, 10, 10)

	_, err := e.TryReserve(3, 3)
	require.NoError(t, err)
	require.NoError(t, e.Release(3, 3))
	assert.Equal(t, byte(StatusAvailable), buf[e.index(3, 3)])

	// Releasing a free seat fails; the expiry sweep tolerates this itself.
	assert.ErrorIs(t, e.Release(3, 3), ErrInvalidTransition)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "available", StatusAvailable.String())
	assert.Equal(t, "reserved", StatusReserved.String())
	assert.Equal(t, "sold", StatusSold.String())
	assert.Equal(t, "corrupt", SeatStatus(9).String())
}
