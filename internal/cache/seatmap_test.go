package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	id := uuid.New()

	_, hit := c.Get(ctx, id)
	assert.False(t, hit)

	c.Set(ctx, id, []byte(`{"cells":[]}`), time.Minute)
	got, hit := c.Get(ctx, id)
	assert.True(t, hit)
	assert.Equal(t, []byte(`{"cells":[]}`), got)

	c.Invalidate(ctx, id)
	_, hit = c.Get(ctx, id)
	assert.False(t, hit)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	id := uuid.New()

	c.Set(ctx, id, []byte("x"), 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)
	_, hit := c.Get(ctx, id)
	assert.False(t, hit)
}

func TestMemoryCacheKeysAreIndependent(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	c.Set(ctx, a, []byte("a"), time.Minute)
	c.Set(ctx, b, []byte("b"), time.Minute)
	c.Invalidate(ctx, a)

	_, hit := c.Get(ctx, a)
	assert.False(t, hit)
	got, hit := c.Get(ctx, b)
	assert.True(t, hit)
	assert.Equal(t, []byte("b"), got)
}
