package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestReplayStore(t *testing.T) (*InMemoryReplayStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	store := NewInMemoryReplayStore()
	store.now = clock.Now
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestInMemoryReplayStore_MarkProcessed(t *testing.T) {
	ctx := context.Background()

	t.Run("first mark is new", func(t *testing.T) {
		store, _ := newTestReplayStore(t)

		isNew, err := store.MarkProcessed(ctx, "order:1001", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("second mark within ttl is not new", func(t *testing.T) {
		store, clock := newTestReplayStore(t)

		_, err := store.MarkProcessed(ctx, "order:1002", time.Hour)
		require.NoError(t, err)
		clock.Advance(59 * time.Minute)

		isNew, err := store.MarkProcessed(ctx, "order:1002", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)
	})

	t.Run("mark after expiry is new again", func(t *testing.T) {
		store, clock := newTestReplayStore(t)

		_, err := store.MarkProcessed(ctx, "order:1003", time.Minute)
		require.NoError(t, err)
		clock.Advance(time.Minute)

		isNew, err := store.MarkProcessed(ctx, "order:1003", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestInMemoryReplayStore_IsProcessedAndForget(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestReplayStore(t)

	processed, err := store.IsProcessed(ctx, "order:2001")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "order:2001", time.Hour)
	require.NoError(t, err)

	processed, err = store.IsProcessed(ctx, "order:2001")
	require.NoError(t, err)
	assert.True(t, processed)

	require.NoError(t, store.Forget(ctx, "order:2001"))
	processed, err = store.IsProcessed(ctx, "order:2001")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "order:2002", time.Second)
	require.NoError(t, err)
	clock.Advance(2 * time.Second)
	processed, err = store.IsProcessed(ctx, "order:2002")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestInMemoryReplayStore_Cleanup(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestReplayStore(t)

	_, _ = store.MarkProcessed(ctx, "short", time.Second)
	_, _ = store.MarkProcessed(ctx, "long", time.Hour)
	require.Equal(t, 2, store.Size())

	clock.Advance(time.Minute)
	store.cleanup()

	assert.Equal(t, 1, store.Size())
	processed, _ := store.IsProcessed(ctx, "long")
	assert.True(t, processed)
}

func TestInMemoryReplayStore_ConcurrentMark(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestReplayStore(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	newCount := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			isNew, err := store.MarkProcessed(ctx, "order:race", time.Hour)
			assert.NoError(t, err)
			if isNew {
				mu.Lock()
				newCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, newCount)
}

func TestInMemoryReplayStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryReplayStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
