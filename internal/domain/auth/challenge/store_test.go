package challenge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"gorm.io/gorm"

	"blog-server-go/internal/domain/auth/model"
	platformerrors "blog-server-go/internal/platform/errors"
	"blog-server-go/internal/platform/storage"
	platformtesting "blog-server-go/internal/platform/testing"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// harness builds a store and a function that moves its notion of time forward.
type harness func(t *testing.T, cfg Config) (Store, func(time.Duration))

func redisHarness(t *testing.T, cfg Config) (Store, func(time.Duration)) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cfg.Redis = &RedisConfig{Addr: mr.Addr(), Prefix: "test:"}
	store, err := NewRedis(cfg)
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store, mr.FastForward
}

func memoryHarness(t *testing.T, cfg Config) (Store, func(time.Duration)) {
	t.Helper()
	clock := &testClock{t: time.Now()}
	store := newMemory(cfg, clock.Now)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store, clock.Advance
}

func sqliteHarness(t *testing.T, cfg Config) (Store, func(time.Duration)) {
	t.Helper()
	store, err := NewSQLite(platformtesting.OpenTestDB(t), cfg)
	if err != nil {
		t.Fatalf("NewSQLite error: %v", err)
	}
	clock := &testClock{t: time.Now()}
	store.(*sqliteStore).now = clock.Now
	return store, clock.Advance
}

var harnesses = map[string]harness{
	DriverRedis:  redisHarness,
	DriverMemory: memoryHarness,
	DriverSQLite: sqliteHarness,
}

func TestStoreSingleUse(t *testing.T) {
	for name, h := range harnesses {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store, _ := h(t, Config{TTL: time.Minute})

			if err := store.Issue(ctx, "key-1", "aB3d", 0); err != nil {
				t.Fatalf("Issue error: %v", err)
			}
			if err := store.Verify(ctx, "key-1", "AB3D"); err != nil {
				t.Fatalf("case-insensitive verify should succeed: %v", err)
			}
			if err := store.Verify(ctx, "key-1", "aB3d"); !errors.Is(err, model.ErrChallengeExpired) {
				t.Fatalf("second verify = %v, want ErrChallengeExpired", err)
			}
			if err := store.Verify(ctx, "never-issued", "x"); !errors.Is(err, model.ErrChallengeExpired) {
				t.Fatalf("unknown key = %v, want ErrChallengeExpired", err)
			}
		})
	}
}

func TestStoreMismatchKeepsEntry(t *testing.T) {
	for name, h := range harnesses {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store, _ := h(t, Config{TTL: time.Minute})

			if err := store.Issue(ctx, "key-2", "wxyz", time.Minute); err != nil {
				t.Fatalf("Issue error: %v", err)
			}
			if err := store.Verify(ctx, "key-2", "nope"); !errors.Is(err, model.ErrChallengeMismatch) {
				t.Fatalf("wrong value = %v, want ErrChallengeMismatch", err)
			}
			if err := store.Verify(ctx, "key-2", "wxyz"); err != nil {
				t.Fatalf("correct value after mismatch should succeed: %v", err)
			}
		})
	}
}

func TestStoreConsumeOnMismatch(t *testing.T) {
	for name, h := range harnesses {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store, _ := h(t, Config{TTL: time.Minute, ConsumeOnMismatch: true})

			if err := store.Issue(ctx, "key-3", "wxyz", 0); err != nil {
				t.Fatalf("Issue error: %v", err)
			}
			if err := store.Verify(ctx, "key-3", "nope"); !errors.Is(err, model.ErrChallengeMismatch) {
				t.Fatalf("wrong value = %v, want ErrChallengeMismatch", err)
			}
			if err := store.Verify(ctx, "key-3", "wxyz"); !errors.Is(err, model.ErrChallengeExpired) {
				t.Fatalf("entry should be gone, got %v", err)
			}
		})
	}
}

func TestStoreExpiry(t *testing.T) {
	for name, h := range harnesses {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store, advance := h(t, Config{TTL: time.Minute})

			if err := store.Issue(ctx, "key-4", "abcd", 0); err != nil {
				t.Fatalf("Issue error: %v", err)
			}
			advance(61 * time.Second)
			if err := store.Verify(ctx, "key-4", "abcd"); !errors.Is(err, model.ErrChallengeExpired) {
				t.Fatalf("expired entry = %v, want ErrChallengeExpired", err)
			}
		})
	}
}

func TestStoreIssueOverwrites(t *testing.T) {
	for name, h := range harnesses {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store, _ := h(t, Config{TTL: time.Minute})

			if err := store.Issue(ctx, "key-5", "old1", 0); err != nil {
				t.Fatalf("Issue error: %v", err)
			}
			if err := store.Issue(ctx, "key-5", "new1", 0); err != nil {
				t.Fatalf("Issue error: %v", err)
			}
			if err := store.Verify(ctx, "key-5", "old1"); !errors.Is(err, model.ErrChallengeMismatch) {
				t.Fatalf("old value = %v, want ErrChallengeMismatch", err)
			}
			if err := store.Verify(ctx, "key-5", "new1"); err != nil {
				t.Fatalf("new value should verify: %v", err)
			}
		})
	}
}

func TestStoreConcurrentVerifySucceedsOnce(t *testing.T) {
	for name, h := range harnesses {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store, _ := h(t, Config{TTL: time.Minute})

			if err := store.Issue(ctx, "key-6", "race", 0); err != nil {
				t.Fatalf("Issue error: %v", err)
			}

			var wins, losses atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := store.Verify(ctx, "key-6", "race")
					switch {
					case err == nil:
						wins.Add(1)
					case errors.Is(err, model.ErrChallengeExpired):
						losses.Add(1)
					}
				}()
			}
			wg.Wait()
			if wins.Load() != 1 || losses.Load() != 15 {
				t.Fatalf("wins=%d losses=%d, want exactly one winner", wins.Load(), losses.Load())
			}
		})
	}
}

func TestMemoryStoreGarbageCollects(t *testing.T) {
	clock := &testClock{t: time.Now()}
	store := newMemory(Config{TTL: time.Second}, clock.Now)
	defer store.Close(context.Background())

	_ = store.Issue(context.Background(), "a", "1", 0)
	_ = store.Issue(context.Background(), "b", "2", time.Hour)
	clock.Advance(2 * time.Second)
	store.cleanupExpired()

	if got := store.size(); got != 1 {
		t.Fatalf("expected 1 live entry after gc, got %d", got)
	}
}

func TestRedisStoreInfrastructureFailure(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	store, err := NewRedis(Config{Redis: &RedisConfig{Addr: mr.Addr()}})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	defer store.Close(context.Background())
	mr.Close()

	err = store.Verify(context.Background(), "k", "v")
	if err == nil {
		t.Fatal("expected error when redis is down")
	}
	if errors.Is(err, model.ErrChallengeExpired) || errors.Is(err, model.ErrChallengeMismatch) {
		t.Fatalf("infrastructure failure must not look like a business error: %v", err)
	}
}

func TestSQLiteIssueSweepsExpiredRows(t *testing.T) {
	ctx := context.Background()
	db := platformtesting.OpenTestDB(t)
	clock := &testClock{t: time.Now()}
	store := &sqliteStore{db: db, cfg: Config{TTL: time.Minute}, now: clock.Now}

	if err := store.Issue(ctx, "stale", "abcd", time.Second); err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	clock.Advance(2 * time.Second)
	if err := store.Issue(ctx, "fresh", "efgh", 0); err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	var keys []string
	if err := db.Model(&storage.ChallengeEntry{}).Pluck("challenge_key", &keys).Error; err != nil {
		t.Fatalf("list keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "fresh" {
		t.Fatalf("expected only the fresh entry, got %v", keys)
	}
}

func TestSQLiteIssueReportsSweepFailure(t *testing.T) {
	ctx := context.Background()
	db := platformtesting.OpenTestDB(t)
	err := db.Callback().Delete().Before("gorm:delete").Register("test:fail_delete", func(tx *gorm.DB) {
		_ = tx.AddError(errors.New("disk I/O error"))
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	store := &sqliteStore{db: db, cfg: Config{TTL: time.Minute}, now: time.Now}

	err = store.Issue(ctx, "key-sweep", "abcd", 0)
	if !platformerrors.IsKind(err, platformerrors.KindStorage) {
		t.Fatalf("Issue = %v, want a storage error", err)
	}
	if !strings.Contains(err.Error(), "disk I/O error") {
		t.Fatalf("sweep cause lost: %v", err)
	}

	var count int64
	if err := db.Model(&storage.ChallengeEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed Issue should roll back, found %d rows", count)
	}
}
