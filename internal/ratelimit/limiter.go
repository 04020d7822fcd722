// Package ratelimit implements a fixed-window counter on redis, shared by
// every process behind the load balancer. Used to slow down credential
// guessing on login and abuse of the password-reset endpoint.
package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type Limiter struct {
	rdb    *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

func New(rdb *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, prefix: prefix, limit: int64(limit), window: window}
}

// Allow increments the counter for key and reports whether the caller is
// still inside the limit for the current window. Redis being unreachable
// fails open: blocking every login because redis restarted is worse than
// briefly losing the limiter.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	full := fmt.Sprintf("%s:%s", l.prefix, key)

	count, err := l.rdb.Incr(ctx, full).Result()
	if err != nil {
		log.Printf("ratelimit: incr %s: %v", full, err)
		return true
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, full, l.window).Err(); err != nil {
			log.Printf("ratelimit: expire %s: %v", full, err)
		}
	}
	return count <= l.limit
}
