package throttle

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter is an in-memory DeliveryCounter. Suitable for development
// and testing; production deployments count delivery log rows or use the
// Redis counter.
type MemoryCounter struct {
	mu      sync.RWMutex
	entries map[counterKey][]time.Time
	loc     *time.Location
}

type counterKey struct {
	userID   string
	dealerID int64
}

// MemoryCounterOption configures a MemoryCounter.
type MemoryCounterOption func(*MemoryCounter)

// WithMemoryCounterLocation sets the location used for calendar-day
// boundaries. Defaults to UTC.
func WithMemoryCounterLocation(loc *time.Location) MemoryCounterOption {
	return func(c *MemoryCounter) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// NewMemoryCounter creates an in-memory delivery counter.
func NewMemoryCounter(opts ...MemoryCounterOption) *MemoryCounter {
	c := &MemoryCounter{
		entries: make(map[counterKey][]time.Time),
		loc:     time.UTC,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Record registers a delivery for the user at time t.
func (c *MemoryCounter) Record(userID string, dealerID int64, t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := counterKey{userID: userID, dealerID: dealerID}
	c.entries[key] = append(c.entries[key], t)
}

func (c *MemoryCounter) CountDeliveries(ctx context.Context, userID string, dealerID int64, window Window, now time.Time) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var from time.Time
	switch window {
	case WindowDay:
		local := now.In(c.loc)
		from = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
	default:
		from = now.Add(-time.Hour)
	}

	count := 0
	for _, t := range c.entries[counterKey{userID: userID, dealerID: dealerID}] {
		if !t.Before(from) && !t.After(now) {
			count++
		}
	}
	return count, nil
}

// Prune drops entries older than the retention horizon to bound memory.
func (c *MemoryCounter) Prune(olderThan time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, times := range c.entries {
		kept := times[:0]
		for _, t := range times {
			if !t.Before(olderThan) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(c.entries, key)
			continue
		}
		c.entries[key] = kept
	}
}
