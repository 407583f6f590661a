package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordResetLimiterWithoutRedis(t *testing.T) {
	limiter := NewPasswordResetLimiter(nil)
	assert.False(t, limiter.Enabled())

	for i := 0; i < 50; i++ {
		res, err := limiter.Allow(context.Background(), "10.0.0.1", "a@b.test")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
}

func TestTokenBucketRejectsBadArguments(t *testing.T) {
	var bucket *TokenBucket
	_, err := bucket.Allow(context.Background(), "k", 1, 1)
	assert.Error(t, err)

	bucket = NewTokenBucket(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}))
	_, err = bucket.Allow(context.Background(), "", 1, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(context.Background(), "k", 0, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(context.Background(), "k", 1, 0)
	assert.Error(t, err)
}

func TestRetryAfter(t *testing.T) {
	assert.Zero(t, retryAfter(true, 0, 1))
	assert.Equal(t, 500*time.Millisecond, retryAfter(false, 0.5, 1))
	assert.Equal(t, 2*time.Second, retryAfter(false, 0, 0.5))
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, time.Second, defaultBucketTTL(0, 1))
	assert.Equal(t, 20*time.Second, defaultBucketTTL(1, 10))
}

func TestCasts(t *testing.T) {
	assert.Equal(t, int64(1), castToInt(int64(1)))
	assert.Equal(t, int64(1), castToInt("1"))
	assert.Equal(t, 2.5, castToFloat("2.5"))
	assert.Equal(t, float64(3), castToFloat(int64(3)))
	assert.Zero(t, castToFloat(nil))
}

func TestPasswordResetLimiterAgainstRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewPasswordResetLimiter(client)
	email := uuid.NewString() + "@studio.test"
	ip := uuid.NewString()

	for i := 0; i < 3; i++ {
		res, err := limiter.Allow(context.Background(), ip, email)
		require.NoError(t, err)
		require.True(t, res.Allowed, "attempt %d", i+1)
	}

	res, err := limiter.Allow(context.Background(), ip, email)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)
}
