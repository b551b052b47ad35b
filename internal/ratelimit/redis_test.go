package ratelimit

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRedis connects to LEDGER_TEST_REDIS_ADDR and skips when it is unset.
func newTestRedis(t *testing.T, rate float64, burst int) *Redis {
	t.Helper()
	addr := os.Getenv("LEDGER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LEDGER_TEST_REDIS_ADDR not set")
	}
	r := NewRedis(&redis.Options{Addr: addr}, rate, burst)
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.Ping(context.Background()))
	return r
}

func TestRedisFixedWindow(t *testing.T) {
	r := newTestRedis(t, 2, 1)
	ctx := context.Background()
	clock := &fakeClock{t: time.Now()}
	r.now = clock.now
	key := "test-" + ulid.Make().String()

	for i := 0; i < 3; i++ {
		ok, err := r.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, err := r.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.Allow(ctx, key+"-other")
	require.NoError(t, err)
	assert.True(t, ok)

	clock.t = clock.t.Add(time.Second)
	ok, err = r.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	bucket := clock.t.Unix()
	ttl, err := r.Client.TTL(ctx, redisKeyPrefix+key+":"+strconv.FormatInt(bucket, 10)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 2*time.Second)
}

func TestRedisUnreachableReturnsError(t *testing.T) {
	t.Parallel()
	r := NewRedis(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}, 10, 5)
	t.Cleanup(func() { _ = r.Close() })

	ok, err := r.Allow(context.Background(), "10.0.0.1")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewRedisDefaults(t *testing.T) {
	t.Parallel()
	r := NewRedis(&redis.Options{Addr: "127.0.0.1:1"}, 0, -3)
	t.Cleanup(func() { _ = r.Close() })
	assert.Equal(t, int64(DefaultRate), r.limit)
}
