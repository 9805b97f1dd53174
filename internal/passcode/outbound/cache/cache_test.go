package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// fakeClock is a manually advanced clock for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, time.January, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func TestMemorySetGet(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := NewMemory(newFakeClock())

	// Act
	if err := store.Set(ctx, "user@example.com", "1234", 5*time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	code, err := store.Get(ctx, "user@example.com")

	// Assert
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if code != "1234" {
		t.Fatalf("code = %q, want %q", code, "1234")
	}
}

func TestMemoryGetAbsent(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := NewMemory(newFakeClock())

	// Act
	_, err := store.Get(ctx, "nobody@example.com")

	// Assert
	if !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("err = %v, want goerror.ErrNotFound", err)
	}
}

func TestMemorySetReplacesAndResetsTTL(t *testing.T) {
	// Arrange
	ctx := context.Background()
	clk := newFakeClock()
	store := NewMemory(clk)
	if err := store.Set(ctx, "user@example.com", "1111", 5*time.Minute); err != nil {
		t.Fatalf("first set: %v", err)
	}
	clk.Advance(4 * time.Minute)

	// Act
	if err := store.Set(ctx, "user@example.com", "2222", 5*time.Minute); err != nil {
		t.Fatalf("second set: %v", err)
	}
	clk.Advance(4 * time.Minute)
	code, err := store.Get(ctx, "user@example.com")

	// Assert
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if code != "2222" {
		t.Fatalf("code = %q, want %q", code, "2222")
	}
}

func TestMemoryExpiry(t *testing.T) {
	// Arrange
	ctx := context.Background()
	clk := newFakeClock()
	store := NewMemory(clk)
	if err := store.Set(ctx, "user@example.com", "1234", 5*time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	// Act
	clk.Advance(5 * time.Minute)
	_, err := store.Get(ctx, "user@example.com")

	// Assert
	if !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("err = %v, want goerror.ErrNotFound", err)
	}
}

func TestMemoryDeleteIdempotent(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := NewMemory(newFakeClock())
	if err := store.Set(ctx, "user@example.com", "1234", 5*time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	// Act
	firstErr := store.Delete(ctx, "user@example.com")
	secondErr := store.Delete(ctx, "user@example.com")

	// Assert
	if firstErr != nil {
		t.Fatalf("first delete: %v", firstErr)
	}
	if secondErr != nil {
		t.Fatalf("second delete: %v", secondErr)
	}
	if _, err := store.Get(ctx, "user@example.com"); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("get after delete: err = %v, want goerror.ErrNotFound", err)
	}
}

func TestMemoryCompareAndDelete(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := NewMemory(newFakeClock())
	if err := store.Set(ctx, "user@example.com", "1234", 5*time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	// Act
	ok, err := store.CompareAndDelete(ctx, "user@example.com", "1234")

	// Assert
	if err != nil {
		t.Fatalf("compare and delete: %v", err)
	}
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if _, err := store.Get(ctx, "user@example.com"); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("get after consume: err = %v, want goerror.ErrNotFound", err)
	}
}

func TestMemoryCompareAndDeleteMismatchKeepsEntry(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := NewMemory(newFakeClock())
	if err := store.Set(ctx, "user@example.com", "1234", 5*time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	// Act
	ok, err := store.CompareAndDelete(ctx, "user@example.com", "9999")

	// Assert
	if err != nil {
		t.Fatalf("compare and delete: %v", err)
	}
	if ok {
		t.Fatal("ok = true, want false")
	}
	code, err := store.Get(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("get after mismatch: %v", err)
	}
	if code != "1234" {
		t.Fatalf("code = %q, want %q", code, "1234")
	}
}

func TestMemoryCompareAndDeleteExpired(t *testing.T) {
	// Arrange
	ctx := context.Background()
	clk := newFakeClock()
	store := NewMemory(clk)
	if err := store.Set(ctx, "user@example.com", "1234", 5*time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	clk.Advance(6 * time.Minute)

	// Act
	ok, err := store.CompareAndDelete(ctx, "user@example.com", "1234")

	// Assert
	if err != nil {
		t.Fatalf("compare and delete: %v", err)
	}
	if ok {
		t.Fatal("ok = true, want false")
	}
}

func TestMemoryCompareAndDeleteConcurrentConsumesOnce(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := NewMemory(newFakeClock())
	if err := store.Set(ctx, "user@example.com", "1234", 5*time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	// Act
	const verifiers = 16
	results := make(chan bool, verifiers)
	var wg sync.WaitGroup
	for range verifiers {
		wg.Go(func() {
			ok, err := store.CompareAndDelete(ctx, "user@example.com", "1234")
			if err != nil {
				t.Errorf("compare and delete: %v", err)
			}
			results <- ok
		})
	}
	wg.Wait()
	close(results)

	// Assert
	consumed := 0
	for ok := range results {
		if ok {
			consumed++
		}
	}
	if consumed != 1 {
		t.Fatalf("consumed = %d, want exactly 1", consumed)
	}
}

func TestRedisCompareAndDelete(t *testing.T) {
	if os.Getenv("OTPGATE_CONTAINER_TESTS") == "" {
		t.Skip("set OTPGATE_CONTAINER_TESTS=1 to run container-backed tests")
	}

	// Arrange
	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	opt, err := redis.ParseURL(uri)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedis(client, instrument.NewNoop())
	if err := store.Set(ctx, "user@example.com", "1234", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	// Act
	miss, missErr := store.CompareAndDelete(ctx, "user@example.com", "9999")
	hit, hitErr := store.CompareAndDelete(ctx, "user@example.com", "1234")
	again, againErr := store.CompareAndDelete(ctx, "user@example.com", "1234")

	// Assert
	if missErr != nil || hitErr != nil || againErr != nil {
		t.Fatalf("errors: miss=%v hit=%v again=%v", missErr, hitErr, againErr)
	}
	if miss {
		t.Fatal("mismatched code consumed the entry")
	}
	if !hit {
		t.Fatal("matching code did not consume the entry")
	}
	if again {
		t.Fatal("entry consumed twice")
	}
	if _, err := store.Get(ctx, "user@example.com"); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("get after consume: err = %v, want goerror.ErrNotFound", err)
	}
}
