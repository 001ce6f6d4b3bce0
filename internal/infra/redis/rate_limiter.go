package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed-window counter used to slow down code guessing on
// the redemption endpoint. Fails open: if Redis is unavailable the attempt
// is allowed, since the row lock still guarantees correctness.
type RateLimiter struct {
	client RedisClient
	limit  int64
	window time.Duration
}

func NewRateLimiter(client RedisClient, perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &RateLimiter{client: client, limit: int64(perMinute), window: time.Minute}
}

// Allow counts one redemption attempt for the identity and reports whether
// it is within the window's budget.
func (rl *RateLimiter) Allow(ctx context.Context, userID string) bool {
	key := fmt.Sprintf("redeem:rl:%s:%d", userID, time.Now().Unix()/int64(rl.window.Seconds()))
	n, err := rl.client.Incr(ctx, key)
	if err != nil {
		return true
	}
	if n == 1 {
		_ = rl.client.Expire(ctx, key, rl.window)
	}
	return n <= rl.limit
}
