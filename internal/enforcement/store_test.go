package enforcement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
)

const testPrefix = "guard_test:"

// newTestRedisStore connects to a local Redis and removes every test key
// before and after the test. Tests are skipped when Redis is unreachable.
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	clean := func() {
		iter := client.Scan(ctx, 0, testPrefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
	}
	clean()
	t.Cleanup(func() {
		clean()
		client.Close()
	})
	return NewRedisStore(client, testPrefix)
}

// forEachStore runs fn against every Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
	t.Run("redis", func(t *testing.T) {
		fn(t, newTestRedisStore(t))
	})
}

func TestMessageKey_RoundTrip(t *testing.T) {
	k := MessageKey{ChatID: -1001234567890, MessageID: 42}
	got, err := ParseMessageKey(k.String())
	if err != nil {
		t.Fatalf("ParseMessageKey(%q) error: %v", k.String(), err)
	}
	if got != k {
		t.Errorf("ParseMessageKey(%q) = %+v, want %+v", k.String(), got, k)
	}
}

func TestParseMessageKey_Invalid(t *testing.T) {
	for _, in := range []string{"", "123", "abc:1", "1:abc", "1:0", "1:-5"} {
		if _, err := ParseMessageKey(in); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ParseMessageKey(%q) error = %v, want ErrInvalidKey", in, err)
		}
	}
}

func TestWarnings(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		n, err := s.Warnings(ctx, -100, 7)
		if err != nil || n != 0 {
			t.Fatalf("Warnings() on empty store = (%d, %v), want (0, nil)", n, err)
		}

		for want := 1; want <= 3; want++ {
			got, err := s.IncrWarning(ctx, -100, 7)
			if err != nil {
				t.Fatalf("IncrWarning() error: %v", err)
			}
			if got != want {
				t.Errorf("IncrWarning() = %d, want %d", got, want)
			}
		}

		// Same user in another group is tracked separately.
		if got, _ := s.IncrWarning(ctx, -200, 7); got != 1 {
			t.Errorf("IncrWarning() in second group = %d, want 1", got)
		}
		if got, _ := s.Warnings(ctx, -100, 7); got != 3 {
			t.Errorf("Warnings() = %d, want 3", got)
		}
	})
}

func TestBanAndBlacklist(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		added, err := s.Ban(ctx, -100, 7)
		if err != nil || !added {
			t.Fatalf("first Ban() = (%v, %v), want (true, nil)", added, err)
		}
		added, err = s.Ban(ctx, -100, 7)
		if err != nil || added {
			t.Fatalf("second Ban() = (%v, %v), want (false, nil)", added, err)
		}

		if ok, _ := s.IsBanned(ctx, -100, 7); !ok {
			t.Error("IsBanned() = false after Ban")
		}
		if ok, _ := s.IsBanned(ctx, -200, 7); ok {
			t.Error("ban leaked into another group")
		}
		if ok, _ := s.IsBlacklisted(ctx, -100, 7); ok {
			t.Error("ban should not imply blacklist")
		}

		if added, _ := s.Blacklist(ctx, -100, 8); !added {
			t.Error("first Blacklist() should add")
		}
		if added, _ := s.Blacklist(ctx, -100, 8); added {
			t.Error("second Blacklist() should not add")
		}
		if ok, _ := s.IsBlacklisted(ctx, -100, 8); !ok {
			t.Error("IsBlacklisted() = false after Blacklist")
		}
		if ok, _ := s.IsBanned(ctx, -100, 8); ok {
			t.Error("blacklist should not imply ban")
		}
	})
}

func TestAddReport_DistinctReporters(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		key := MessageKey{ChatID: -100, MessageID: 55}

		count, added, err := s.AddReport(ctx, key, 1)
		if err != nil || count != 1 || !added {
			t.Fatalf("first report = (%d, %v, %v), want (1, true, nil)", count, added, err)
		}

		count, added, err = s.AddReport(ctx, key, 1)
		if err != nil || count != 1 || added {
			t.Fatalf("duplicate report = (%d, %v, %v), want (1, false, nil)", count, added, err)
		}

		count, added, _ = s.AddReport(ctx, key, 2)
		if count != 2 || !added {
			t.Fatalf("second reporter = (%d, %v), want (2, true)", count, added)
		}

		if n, _ := s.ReportCount(ctx, key); n != 2 {
			t.Errorf("ReportCount() = %d, want 2", n)
		}
		if n, _ := s.ReportCount(ctx, MessageKey{ChatID: -100, MessageID: 56}); n != 0 {
			t.Errorf("ReportCount() for unreported message = %d, want 0", n)
		}
	})
}

func TestStats(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		s.IncrWarning(ctx, -1, 1)
		s.IncrWarning(ctx, -1, 1)
		s.IncrWarning(ctx, -1, 2)
		s.Ban(ctx, -1, 1)
		s.Ban(ctx, -1, 1)
		s.Blacklist(ctx, -1, 3)
		s.AddReport(ctx, MessageKey{ChatID: -1, MessageID: 9}, 10)
		s.AddReport(ctx, MessageKey{ChatID: -1, MessageID: 9}, 11)
		s.AddReport(ctx, MessageKey{ChatID: -1, MessageID: 10}, 10)
		s.IncrDeletedVideos(ctx)

		got, err := s.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats() error: %v", err)
		}
		want := Stats{Warnings: 3, Banned: 1, Blacklisted: 1, ReportedVideos: 2, DeletedVideos: 1}
		if got != want {
			t.Errorf("Stats() = %+v, want %+v", got, want)
		}
	})
}

// TestConcurrentIncrements checks that parallel increments on the same key
// are never lost.
func TestConcurrentIncrements(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		const workers = 50

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.IncrWarning(ctx, -100, 7); err != nil {
					t.Errorf("IncrWarning() error: %v", err)
				}
			}()
		}
		wg.Wait()

		if got, _ := s.Warnings(ctx, -100, 7); got != workers {
			t.Errorf("Warnings() after %d concurrent increments = %d", workers, got)
		}
	})
}

// TestConcurrentReports checks that concurrent reports from the same
// reporter count once and exactly one caller sees added.
func TestConcurrentReports(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		key := MessageKey{ChatID: -100, MessageID: 1}

		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			added int
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, ok, err := s.AddReport(ctx, key, 99)
				if err != nil {
					t.Errorf("AddReport() error: %v", err)
					return
				}
				if ok {
					mu.Lock()
					added++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if added != 1 {
			t.Errorf("%d callers saw added=true, want 1", added)
		}
		if n, _ := s.ReportCount(ctx, key); n != 1 {
			t.Errorf("ReportCount() = %d, want 1", n)
		}
	})
}
