package directory

import (
	"sync"
	"time"
)

// writeBudget enforces a hard ceiling on persistent writes per rolling day
// window. The backing store bills per write operation; exceeding the ceiling
// is an outage, so the budget is checked before every Put or Delete.
type writeBudget struct {
	mu          sync.Mutex
	limit       int
	used        int
	windowStart time.Time
}

func newWriteBudget(limit int, now time.Time) *writeBudget {
	return &writeBudget{
		limit:       limit,
		windowStart: now,
	}
}

// take consumes one write from the budget or returns
// ErrWriteBudgetExhausted. The window resets 24h after it opened.
func (b *writeBudget) take(now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.windowStart) >= 24*time.Hour {
		b.windowStart = now
		b.used = 0
	}
	if b.limit > 0 && b.used >= b.limit {
		return ErrWriteBudgetExhausted
	}
	b.used++
	return nil
}

// remaining reports the writes left in the current window
func (b *writeBudget) remaining(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.windowStart) >= 24*time.Hour {
		return b.limit
	}
	if b.limit <= 0 {
		return -1
	}
	left := b.limit - b.used
	if left < 0 {
		return 0
	}
	return left
}
