// Package ratelimit counts requests per key in fixed one-minute windows
// stored in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const window = time.Minute

// Counter is the subset of the Redis client the limiter needs
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Limiter allows up to limit hits per key per minute
type Limiter struct {
	redis  Counter
	prefix string
	limit  int
	now    func() time.Time
}

// NewLimiter creates a limiter. A non-positive limit defaults to 60 per minute.
func NewLimiter(rdb Counter, prefix string, limit int) *Limiter {
	if limit <= 0 {
		limit = 60
	}
	return &Limiter{
		redis:  rdb,
		prefix: prefix,
		limit:  limit,
		now:    time.Now,
	}
}

func (l *Limiter) key(id string) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", l.prefix, id, l.now().Unix()/int64(window.Seconds()))
}

// Allow records a hit for id and reports whether it is within the limit
func (l *Limiter) Allow(ctx context.Context, id string) (bool, error) {
	key := l.key(id)

	cnt, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to count request: %w", err)
	}
	if cnt == 1 {
		// First hit in this window
		if err := l.redis.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set window expiry: %w", err)
		}
	}

	return cnt <= int64(l.limit), nil
}
