package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultMaxRequests = 100

// clientWindow holds one client's fixed-window counter. Every client carries
// its own lock so a burst from one source never blocks another.
type clientWindow struct {
	mu    sync.Mutex
	start time.Time
	count int
}

// MemoryRateLimiter is an in-process fixed-window rate limiter keyed by
// client address. State lives for the process lifetime only. A burst of up
// to twice the limit can cross a window boundary; that is the accepted
// tradeoff of fixed-window counting.
type MemoryRateLimiter struct {
	windows     sync.Map // clientKey -> *clientWindow
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

var _ RateLimiter = (*MemoryRateLimiter)(nil)

func NewMemoryRateLimiter(maxRequests int, window time.Duration) (*MemoryRateLimiter, error) {
	return newMemoryRateLimiter(maxRequests, window, time.Now)
}

func newMemoryRateLimiter(maxRequests int, window time.Duration, nowFn func() time.Time) (*MemoryRateLimiter, error) {
	if maxRequests <= 0 {
		maxRequests = defaultMaxRequests
	}
	if window <= 0 {
		return nil, fmt.Errorf("window length must be positive")
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &MemoryRateLimiter{
		maxRequests: maxRequests,
		window:      window,
		now:         nowFn,
	}, nil
}

// Allow counts the request against the client's current window and reports
// whether it is admitted. The counter resets once the window has fully
// elapsed. Rejected requests still advance the counter but must trigger no
// further side effects in the caller.
func (l *MemoryRateLimiter) Allow(_ context.Context, clientKey string) (bool, error) {
	if l == nil {
		return false, fmt.Errorf("rate limiter is not initialized")
	}

	key := strings.TrimSpace(clientKey)
	if key == "" {
		return false, fmt.Errorf("client key is required")
	}

	for {
		value, _ := l.windows.LoadOrStore(key, &clientWindow{start: l.now()})
		w := value.(*clientWindow)

		w.mu.Lock()
		// PruneStale may have dropped this window between the map lookup and
		// the lock; counting against a dropped window would let the client's
		// next call start a fresh one. Re-check membership and retry.
		if current, loaded := l.windows.Load(key); !loaded || current != value {
			w.mu.Unlock()
			continue
		}

		now := l.now()
		if now.Sub(w.start) >= l.window {
			w.start = now
			w.count = 0
		}
		w.count++
		admitted := w.count <= l.maxRequests
		w.mu.Unlock()

		return admitted, nil
	}
}

// PruneStale drops windows idle for at least two full window lengths so the
// per-client map does not grow without bound. It returns the number of
// windows removed.
func (l *MemoryRateLimiter) PruneStale() int {
	if l == nil {
		return 0
	}

	cutoff := l.now().Add(-2 * l.window)
	removed := 0
	l.windows.Range(func(key, value any) bool {
		w := value.(*clientWindow)
		// Delete while holding the window lock so Allow's membership
		// re-check cannot observe a half-removed window.
		w.mu.Lock()
		if w.start.Before(cutoff) {
			l.windows.Delete(key)
			removed++
		}
		w.mu.Unlock()
		return true
	})

	return removed
}
