package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	keyPasswordResetIP    = "auth:forgot:ip:%s"
	keyPasswordResetEmail = "auth:forgot:email:%s"
)

// PasswordResetLimiter throttles reset emails per client address and per
// recipient. Without Redis every request is allowed.
type PasswordResetLimiter struct {
	bucket *TokenBucket

	ipRate     float64
	ipBurst    int
	emailRate  float64
	emailBurst int
}

func NewPasswordResetLimiter(client *redis.Client) *PasswordResetLimiter {
	return &PasswordResetLimiter{
		bucket:     NewTokenBucket(client),
		ipRate:     perWindow(10, 10*time.Minute),
		ipBurst:    10,
		emailRate:  perWindow(3, time.Hour),
		emailBurst: 3,
	}
}

func (l *PasswordResetLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow consumes one token from the address bucket, then one from the recipient bucket.
func (l *PasswordResetLimiter) Allow(ctx context.Context, clientIP, email string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}

	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyPasswordResetIP, strings.TrimSpace(clientIP)), l.ipRate, l.ipBurst)
	if err != nil || !res.Allowed {
		return res, err
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyPasswordResetEmail, strings.ToLower(strings.TrimSpace(email))), l.emailRate, l.emailBurst)
}

func perWindow(count int, window time.Duration) float64 {
	return float64(count) / window.Seconds()
}
