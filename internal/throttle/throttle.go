// Package throttle limits how often a keyed action (an OTP email, a reset
// request) may happen. Two implementations share the [Limiter] interface: a
// Redis fixed window for deployments that share state across processes, and
// an in-process token bucket.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

var (
	// ErrLimited is returned when key used up its allowance.
	ErrLimited = errors.New("throttle: rate limited")
	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("throttle: limiter unavailable")
)

// Limiter admits or rejects one occurrence of the action identified by key.
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

// Unlimited admits everything.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) error { return nil }

// RedisWindow counts occurrences per key in a fixed window stored in Redis.
type RedisWindow struct {
	redis  redis.UniversalClient
	prefix string
	window time.Duration
	max    int
}

// NewRedisWindow allows max occurrences per key within window.
func NewRedisWindow(client redis.UniversalClient, prefix string, window time.Duration, max int) *RedisWindow {
	return &RedisWindow{redis: client, prefix: prefix, window: window, max: max}
}

func (l *RedisWindow) Allow(ctx context.Context, key string) error {
	k := l.prefix + ":" + key
	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, k, l.window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	if count > int64(l.max) {
		return ErrLimited
	}
	return nil
}

// Local keeps one token bucket per key in memory.
type Local struct {
	every time.Duration
	burst int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewLocal refills one token per every, holding at most burst.
func NewLocal(every time.Duration, burst int) *Local {
	if burst <= 0 {
		burst = 1
	}
	return &Local{every: every, burst: burst, buckets: make(map[string]*rate.Limiter)}
}

func (l *Local) Allow(_ context.Context, key string) error {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(rate.Every(l.every), l.burst)
		l.buckets[key] = b
	}
	l.mu.Unlock()

	if !b.Allow() {
		return ErrLimited
	}
	return nil
}
