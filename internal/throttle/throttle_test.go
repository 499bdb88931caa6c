package throttle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisWindowLimitsAndExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	l := NewRedisWindow(rdb, "otp", time.Minute, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Allow(ctx, "ada@example.com"); err != nil {
			t.Fatalf("attempt %d: unexpected error: %v", i+1, err)
		}
	}
	if err := l.Allow(ctx, "ada@example.com"); !errors.Is(err, ErrLimited) {
		t.Fatalf("expected ErrLimited, got %v", err)
	}
	if err := l.Allow(ctx, "bob@example.com"); err != nil {
		t.Fatalf("expected independent key to pass, got %v", err)
	}
	if ttl := mr.TTL("otp:ada@example.com"); ttl != time.Minute {
		t.Fatalf("expected window ttl, got %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := l.Allow(ctx, "ada@example.com"); err != nil {
		t.Fatalf("expected window reset, got %v", err)
	}
}

func TestRedisWindowUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	err := NewRedisWindow(rdb, "otp", time.Minute, 1).Allow(context.Background(), "k")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestLocalBurstThenLimited(t *testing.T) {
	l := NewLocal(time.Hour, 2)
	ctx := context.Background()
	if err := l.Allow(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := l.Allow(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := l.Allow(ctx, "a"); !errors.Is(err, ErrLimited) {
		t.Fatalf("expected ErrLimited, got %v", err)
	}
	if err := l.Allow(ctx, "b"); err != nil {
		t.Fatalf("expected separate bucket, got %v", err)
	}
	if err := (Unlimited{}).Allow(ctx, "a"); err != nil {
		t.Fatal(err)
	}
}
