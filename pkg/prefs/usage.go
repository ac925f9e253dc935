package prefs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Usage reports how many notifications a user received inside the rolling
// windows.
type Usage struct {
	Hourly int
	Daily  int
}

// Limits carries the effective frequency caps. Zero means unlimited.
type Limits struct {
	PerHour int
	PerDay  int
}

// UsageStore meters notification volume per user. Reserve is the only write
// path and must be atomic: it checks both windows and increments them in one
// step, or rejects without incrementing. This closes the race where two
// concurrent notifications both observe "one slot left" and both proceed.
type UsageStore interface {
	// Reserve consumes one slot when both limits allow it. The returned Usage
	// reflects the state after the reservation (or the state that caused the
	// rejection).
	Reserve(ctx context.Context, userID uuid.UUID, limits Limits) (Usage, bool, error)
	// Current reports the windows without consuming anything.
	Current(ctx context.Context, userID uuid.UUID) (Usage, error)
}

// MemoryUsageStore keeps per-user event timestamps in memory, pruned to the
// daily window. True rolling windows: an event ages out exactly one hour or
// one day after it happened.
type MemoryUsageStore struct {
	mu     sync.Mutex
	events map[uuid.UUID][]time.Time
	now    func() time.Time
}

// UsageOption configures MemoryUsageStore construction.
type UsageOption func(*MemoryUsageStore)

// WithUsageClock overrides time.Now for tests.
func WithUsageClock(now func() time.Time) UsageOption {
	return func(s *MemoryUsageStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryUsageStore creates an empty in-memory usage meter.
func NewMemoryUsageStore(opts ...UsageOption) *MemoryUsageStore {
	s := &MemoryUsageStore{
		events: make(map[uuid.UUID][]time.Time),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryUsageStore) Reserve(_ context.Context, userID uuid.UUID, limits Limits) (Usage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	usage := s.pruneAndCount(userID, now)

	if limits.PerHour > 0 && usage.Hourly >= limits.PerHour {
		return usage, false, nil
	}
	if limits.PerDay > 0 && usage.Daily >= limits.PerDay {
		return usage, false, nil
	}

	s.events[userID] = append(s.events[userID], now)
	usage.Hourly++
	usage.Daily++
	return usage, true, nil
}

func (s *MemoryUsageStore) Current(_ context.Context, userID uuid.UUID) (Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneAndCount(userID, s.now()), nil
}

// pruneAndCount drops events older than the daily window and counts both
// windows. Callers must hold the lock.
func (s *MemoryUsageStore) pruneAndCount(userID uuid.UUID, now time.Time) Usage {
	dayAgo := now.Add(-24 * time.Hour)
	hourAgo := now.Add(-time.Hour)

	events := s.events[userID]
	kept := events[:0]
	var usage Usage
	for _, ts := range events {
		if ts.After(dayAgo) {
			kept = append(kept, ts)
			usage.Daily++
			if ts.After(hourAgo) {
				usage.Hourly++
			}
		}
	}
	if len(kept) == 0 {
		delete(s.events, userID)
	} else {
		s.events[userID] = kept
	}
	return usage
}
