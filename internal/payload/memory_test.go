package payload

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

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
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T, maxEntries int) (*MemoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: created}
	s := NewMemoryStore(maxEntries, time.Hour, WithClock(clock.Now))
	t.Cleanup(s.Stop)
	return s, clock
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ctx := context.Background()

	put, err := s.Put(ctx, samplePayload())
	require.NoError(t, err)
	assert.Equal(t, created.Add(DefaultTTL), put.ExpiresAt)

	got, err := s.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, samplePayload(), got.Payload)
	assert.Equal(t, put.ETag, got.ETag)
	assert.Equal(t, put.Size, got.Size)

	require.NoError(t, s.Delete(ctx, "p-1"))
	_, err = s.Get(ctx, "p-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreFillsMeta(t *testing.T) {
	s, _ := newTestStore(t, 0)

	p := &Payload{}
	stored, err := s.Put(context.Background(), p)
	require.NoError(t, err)
	assert.NotEmpty(t, p.Meta.ID)
	assert.Equal(t, created.UnixMilli(), p.Meta.CreatedAt)
	assert.Equal(t, p, stored.Payload)
}

func TestMemoryStoreErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		s, _ := newTestStore(t, 0)
		_, err := s.Get(ctx, "absent")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("expired", func(t *testing.T) {
		s, clock := newTestStore(t, 0)
		_, err := s.Put(ctx, samplePayload())
		require.NoError(t, err)

		clock.Advance(DefaultTTL)
		_, err = s.Get(ctx, "p-1")
		require.NoError(t, err)

		clock.Advance(time.Second)
		_, err = s.Get(ctx, "p-1")
		assert.ErrorIs(t, err, ErrExpired)
	})

	t.Run("custom ttl", func(t *testing.T) {
		clock := &fakeClock{now: created}
		s := NewMemoryStore(0, time.Hour, WithClock(clock.Now), WithTTL(time.Minute))
		defer s.Stop()

		_, err := s.Put(ctx, samplePayload())
		require.NoError(t, err)
		clock.Advance(2 * time.Minute)
		_, err = s.Get(ctx, "p-1")
		assert.ErrorIs(t, err, ErrExpired)
	})

	t.Run("corrupt", func(t *testing.T) {
		s, _ := newTestStore(t, 0)
		s.putRaw("bad", []byte(`{"rows": [`), created)
		_, err := s.Get(ctx, "bad")
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("invalid meta rejected on put", func(t *testing.T) {
		s, _ := newTestStore(t, 0)
		p := samplePayload()
		p.Meta.CreatedAt = -1
		_, err := s.Put(ctx, p)
		assert.Error(t, err)
		assert.Zero(t, s.Len())
	})
}

func TestMemoryStoreEviction(t *testing.T) {
	s, clock := newTestStore(t, 2)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := s.Put(ctx, &Payload{Meta: Meta{ID: id}})
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	assert.Equal(t, 2, s.Len())
	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound, "oldest entry is evicted")
	_, err = s.Get(ctx, "c")
	assert.NoError(t, err)

	stats := s.Stats()
	assert.Equal(t, 2, stats["entries"])
	assert.Equal(t, int64(1), stats["hit_count"])
	assert.Equal(t, int64(1), stats["miss_count"])
}

func TestMemoryStorePurge(t *testing.T) {
	s, clock := newTestStore(t, 0)
	ctx := context.Background()

	_, err := s.Put(ctx, &Payload{Meta: Meta{ID: "old"}})
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = s.Put(ctx, &Payload{Meta: Meta{ID: "new"}})
	require.NoError(t, err)

	assert.Equal(t, 1, s.Purge(created.Add(time.Minute)))
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreCleanupGoroutine(t *testing.T) {
	clock := &fakeClock{now: created}
	s := NewMemoryStore(0, 10*time.Millisecond, WithClock(clock.Now))
	defer s.Stop()

	_, err := s.Put(context.Background(), samplePayload())
	require.NoError(t, err)
	clock.Advance(3 * DefaultTTL)

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryStoreStopIsIdempotent(t *testing.T) {
	s := NewMemoryStore(0, time.Hour)
	s.Stop()
	s.Stop()
}
