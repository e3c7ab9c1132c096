package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
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

func TestMemoryStoreExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(10, WithClock(clock.Now))
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v1"), time.Minute))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	clock.Advance(time.Minute)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreUpsertResetsExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(10, WithClock(clock.Now))
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("old"), time.Minute))
	clock.Advance(50 * time.Second)
	require.NoError(t, store.Set(ctx, "k", []byte("new"), time.Minute))
	clock.Advance(50 * time.Second)

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreEvictsWhenFull(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(2, WithClock(clock.Now))
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Hour))
	clock.Advance(time.Second)
	require.NoError(t, store.Set(ctx, "b", []byte("2"), time.Hour))
	_, err := store.Get(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "c", []byte("3"), time.Hour))
	assert.Equal(t, 2, store.Len())

	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStoreStats(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(10, WithClock(clock.Now))
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Hour))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), time.Minute))
	_, err := store.Get(ctx, "a")
	require.NoError(t, err)
	_, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrMiss)
	clock.Advance(time.Minute)
	_, err = store.Get(ctx, "b")
	require.ErrorIs(t, err, ErrMiss)

	stats := store.GetStats()
	assert.Equal(t, 1, stats["size"])
	assert.Equal(t, 10, stats["max_size"])
	assert.Equal(t, int64(1), stats["hits"])
	assert.Equal(t, int64(2), stats["misses"])
	assert.Equal(t, int64(1), stats["evictions"])
	assert.InDelta(t, 1.0/3.0, stats["hit_ratio"], 1e-9)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore(10)
	defer store.Close()
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", value, time.Hour))
	value[0] = 'z'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client)
	defer store.Close()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Set(ctx, "k", []byte(`{"a":1}`), time.Minute))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))
	assert.True(t, mr.Exists("cart:k"))

	mr.FastForward(time.Minute + time.Second)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Ping(ctx))
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (failingStore) Ping(context.Context) error { return errors.New("connection refused") }
func (failingStore) Close() error               { return nil }

type payload struct {
	Items []string `json:"items"`
	Score int      `json:"score"`
}

func TestPipelineCacheRoundTrip(t *testing.T) {
	store := NewMemoryStore(10)
	defer store.Close()
	pc := NewPipelineCache(store, "test")
	ctx := context.Background()

	var got payload
	assert.False(t, pc.Get(ctx, "k", &got))

	pc.Set(ctx, "k", payload{Items: []string{"a"}, Score: 3}, time.Minute)
	require.True(t, pc.Get(ctx, "k", &got))
	assert.Equal(t, payload{Items: []string{"a"}, Score: 3}, got)
}

func TestPipelineCacheDegradesOnStoreErrors(t *testing.T) {
	pc := NewPipelineCache(failingStore{}, "test")
	ctx := context.Background()

	assert.NotPanics(t, func() { pc.Set(ctx, "k", payload{Score: 1}, time.Minute) })

	var got payload
	assert.False(t, pc.Get(ctx, "k", &got))
}

func TestPipelineCacheIgnoresCorruptEntries(t *testing.T) {
	store := NewMemoryStore(10)
	defer store.Close()
	require.NoError(t, store.Set(context.Background(), "k", []byte("not json"), time.Minute))

	var got payload
	assert.False(t, NewPipelineCache(store, "test").Get(context.Background(), "k", &got))
}

func TestNilPipelineCache(t *testing.T) {
	var pc *PipelineCache
	var got payload
	assert.False(t, pc.Get(context.Background(), "k", &got))
	assert.NotPanics(t, func() { pc.Set(context.Background(), "k", got, time.Minute) })
}
