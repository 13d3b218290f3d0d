package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestLimiter(t *testing.T) *Limiter {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	clean := func() {
		iter := client.Scan(ctx, 0, "rl:test:*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
	}
	clean()
	t.Cleanup(func() {
		clean()
		client.Close()
	})
	return NewLimiter(client, zap.NewNop())
}

func TestLimiter_Allow(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:test:", Limit: 2, Window: time.Minute}

	for i, want := range []bool{true, true, false, false} {
		got, err := l.Allow(ctx, "user1", rule)
		if err != nil {
			t.Fatalf("Allow() #%d error: %v", i, err)
		}
		if got != want {
			t.Errorf("Allow() #%d = %v, want %v", i, got, want)
		}
	}

	if ok, _ := l.Allow(ctx, "user2", rule); !ok {
		t.Error("separate identifier should have its own window")
	}
}

func TestLocalLimiter_Window(t *testing.T) {
	l := NewLocalLimiter()
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()
	rule := BannedNotice(10 * time.Minute)

	if ok, _ := l.Allow(ctx, "-100:7", rule); !ok {
		t.Fatal("first event should be allowed")
	}
	for i := 0; i < 5; i++ {
		if ok, _ := l.Allow(ctx, "-100:7", rule); ok {
			t.Fatalf("event %d inside the window should be limited", i+2)
		}
	}
	if ok, _ := l.Allow(ctx, "-100:8", rule); !ok {
		t.Error("another member should not share the window")
	}

	now = now.Add(10 * time.Minute)
	if ok, _ := l.Allow(ctx, "-100:7", rule); !ok {
		t.Error("event after the window should be allowed")
	}
}

func TestLocalLimiter_SweepsExpired(t *testing.T) {
	l := NewLocalLimiter()
	now := time.Unix(0, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()
	rule := Rule{Key: "k:", Limit: 1, Window: time.Second}

	for i := 0; i < 2000; i++ {
		l.Allow(ctx, time.Duration(i).String(), rule)
	}
	now = now.Add(time.Hour)
	l.Allow(ctx, "fresh", rule)

	if n := len(l.windows); n != 1 {
		t.Errorf("expected expired windows to be swept, %d remain", n)
	}
}
