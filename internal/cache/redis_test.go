package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"food-rescue-backend/internal/config"
)

type memoryStore struct {
	values  map[string]any
	counts  map[string]int64
	ttls    map[string]time.Duration
	failAll error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		values: make(map[string]any),
		counts: make(map[string]int64),
		ttls:   make(map[string]time.Duration),
	}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	if m.failAll != nil {
		return redis.NewStatusResult("", m.failAll)
	}
	m.values[key] = value
	m.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryStore) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	if m.failAll != nil {
		return redis.NewIntResult(0, m.failAll)
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.values[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (m *memoryStore) Incr(_ context.Context, key string) *redis.IntCmd {
	if m.failAll != nil {
		return redis.NewIntResult(0, m.failAll)
	}
	m.counts[key]++
	return redis.NewIntResult(m.counts[key], nil)
}

func (m *memoryStore) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	m.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (m *memoryStore) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.values[k]; ok {
			delete(m.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestIncrWithTTLSetsExpiryOnce(t *testing.T) {
	store := newMemoryStore()
	c := &Client{store: store}
	ctx := context.Background()
	key := RateLimitKey("email", "abc")

	n, err := c.IncrWithTTL(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, time.Minute, store.ttls[key])

	store.ttls[key] = 0
	n, err = c.IncrWithTTL(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Zero(t, store.ttls[key])
}

func TestSessionMarkers(t *testing.T) {
	c := &Client{store: newMemoryStore()}
	ctx := context.Background()
	key := SessionKey("jti-1")

	ok, err := c.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, key, "user-1", time.Hour))
	ok, err = c.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Del(ctx, key))
	ok, _ = c.Exists(ctx, key)
	assert.False(t, ok)
}

func TestErrorsPropagate(t *testing.T) {
	store := newMemoryStore()
	store.failAll = errors.New("connection refused")
	c := &Client{store: store}
	ctx := context.Background()

	_, err := c.IncrWithTTL(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, store.failAll)
	_, err = c.Exists(ctx, "k")
	assert.ErrorIs(t, err, store.failAll)
	assert.ErrorIs(t, c.Set(ctx, "k", 1, 0), store.failAll)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "fr:rl:ip:10.0.0.1", RateLimitKey("ip", "10.0.0.1"))
	assert.Equal(t, "fr:session:abc", SessionKey("abc"))
}

func TestNewRequiresAddress(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{})
	assert.Error(t, err)
	assert.NoError(t, (&Client{}).Close())
}
