package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryRateLimiterAllow(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	limiter, err := newMemoryRateLimiter(2, time.Minute, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newMemoryRateLimiter() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(context.Background(), "10.0.0.1")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be admitted", i+1)
		}
	}

	allowed, err := limiter.Allow(context.Background(), "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Fatal("third request in window should be rejected")
	}

	// Still inside the window: rejections continue.
	now = now.Add(30 * time.Second)
	allowed, err = limiter.Allow(context.Background(), "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Fatal("request before window reset should be rejected")
	}

	// Window elapsed from its start: counter resets.
	now = now.Add(31 * time.Second)
	allowed, err = limiter.Allow(context.Background(), "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("request in new window should be admitted")
	}
}

func TestMemoryRateLimiterBoundaryBurst(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_100, 0)
	limiter, err := newMemoryRateLimiter(3, time.Minute, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newMemoryRateLimiter() error = %v", err)
	}

	admitted := 0
	for i := 0; i < 3; i++ {
		if ok, _ := limiter.Allow(context.Background(), "burst"); ok {
			admitted++
		}
	}

	now = now.Add(time.Minute)
	for i := 0; i < 3; i++ {
		if ok, _ := limiter.Allow(context.Background(), "burst"); ok {
			admitted++
		}
	}

	// Fixed-window counting admits up to 2*max across a boundary.
	if admitted != 6 {
		t.Fatalf("admitted = %d, want 6 across window boundary", admitted)
	}
}

func TestMemoryRateLimiterClientsAreIndependent(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_200, 0)
	limiter, err := newMemoryRateLimiter(1, time.Minute, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newMemoryRateLimiter() error = %v", err)
	}

	if ok, _ := limiter.Allow(context.Background(), "10.0.0.1"); !ok {
		t.Fatal("first client should be admitted")
	}
	if ok, _ := limiter.Allow(context.Background(), "10.0.0.1"); ok {
		t.Fatal("first client should be exhausted")
	}
	if ok, _ := limiter.Allow(context.Background(), "10.0.0.2"); !ok {
		t.Fatal("second client must not be affected by the first")
	}
}

func TestMemoryRateLimiterConcurrentIncrements(t *testing.T) {
	t.Parallel()

	const (
		limit      = 50
		requests   = 200
		goroutines = 8
	)

	limiter, err := NewMemoryRateLimiter(limit, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryRateLimiter() error = %v", err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < requests/goroutines; i++ {
				ok, err := limiter.Allow(context.Background(), "concurrent-client")
				if err != nil {
					t.Errorf("Allow() error = %v", err)
					return
				}
				if ok {
					mu.Lock()
					admitted++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if admitted != limit {
		t.Fatalf("admitted = %d, want exactly %d under concurrency", admitted, limit)
	}
}

func TestMemoryRateLimiterRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	limiter, err := NewMemoryRateLimiter(1, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryRateLimiter() error = %v", err)
	}

	if _, err := limiter.Allow(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty client key")
	}
}

func TestMemoryRateLimiterPruneStale(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_300, 0)
	limiter, err := newMemoryRateLimiter(10, time.Minute, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newMemoryRateLimiter() error = %v", err)
	}

	if _, err := limiter.Allow(context.Background(), "old-client"); err != nil {
		t.Fatalf("Allow() error = %v", err)
	}

	now = now.Add(90 * time.Second)
	if _, err := limiter.Allow(context.Background(), "fresh-client"); err != nil {
		t.Fatalf("Allow() error = %v", err)
	}

	now = now.Add(31 * time.Second)
	if removed := limiter.PruneStale(); removed != 1 {
		t.Fatalf("PruneStale() = %d, want 1", removed)
	}

	// The pruned client starts a fresh window on next contact.
	if ok, _ := limiter.Allow(context.Background(), "old-client"); !ok {
		t.Fatal("pruned client should be admitted again")
	}
}

func TestAllowCountsAgainstLiveWindowUnderPrune(t *testing.T) {
	t.Parallel()

	var clock atomic.Int64
	clock.Store(time.Unix(1_700_000_400, 0).UnixNano())
	nowFn := func() time.Time { return time.Unix(0, clock.Load()) }

	limiter, err := newMemoryRateLimiter(1, time.Minute, nowFn)
	if err != nil {
		t.Fatalf("newMemoryRateLimiter() error = %v", err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				limiter.PruneStale()
			}
		}
	}()

	// Each round the client comes back after the window went stale, so the
	// first call races the pruner. Whichever window ends up live, the pair
	// of calls must never both be admitted with a limit of one.
	for i := 0; i < 2000; i++ {
		clock.Add(int64(2*time.Minute + time.Second))

		first, err := limiter.Allow(context.Background(), "returning-client")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		second, err := limiter.Allow(context.Background(), "returning-client")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}

		if !first {
			t.Fatal("first call of a fresh window must be admitted")
		}
		if second {
			t.Fatal("second call must be rejected; the first was counted against a dropped window")
		}
	}

	close(done)
	wg.Wait()
}

func TestNewMemoryRateLimiterValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewMemoryRateLimiter(10, 0); err == nil {
		t.Fatal("expected error for non-positive window")
	}

	limiter, err := NewMemoryRateLimiter(0, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryRateLimiter() error = %v", err)
	}
	if limiter.maxRequests != defaultMaxRequests {
		t.Fatalf("maxRequests = %d, want default %d", limiter.maxRequests, defaultMaxRequests)
	}
}
