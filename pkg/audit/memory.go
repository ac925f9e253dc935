package audit

import (
	"context"
	"sync"
)

const defaultMemoryCapacity = 10000

// MemoryStorage keeps the most recent audit events in a bounded in-memory
// buffer. Once the capacity is reached the oldest events are dropped. Meant
// for development, tests, and as the sink behind ops dashboards that only
// need recent history.
type MemoryStorage struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
}

// MemoryStorageOption configures MemoryStorage.
type MemoryStorageOption func(*MemoryStorage)

// WithCapacity bounds how many events are retained.
func WithCapacity(n int) MemoryStorageOption {
	return func(s *MemoryStorage) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// NewMemoryStorage creates an empty in-memory audit store.
func NewMemoryStorage(opts ...MemoryStorageOption) *MemoryStorage {
	s := &MemoryStorage{capacity: defaultMemoryCapacity}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStorage) Store(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.append(event)
	return nil
}

func (s *MemoryStorage) StoreBatch(ctx context.Context, events []Event) error {
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		s.append(e)
	}
	return nil
}

func (s *MemoryStorage) Query(ctx context.Context, criteria Criteria) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	skipped := 0
	// Stored oldest to newest; walk backwards so results come newest first.
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if !criteria.matches(e) {
			continue
		}
		if skipped < criteria.Offset {
			skipped++
			continue
		}
		out = append(out, e)
		if criteria.Limit > 0 && len(out) >= criteria.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStorage) Count(ctx context.Context, criteria Criteria) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.events {
		if criteria.matches(e) {
			n++
		}
	}
	return n, nil
}

// append adds an event, evicting the oldest past capacity. Callers must
// hold the write lock.
func (s *MemoryStorage) append(e Event) {
	s.events = append(s.events, e)
	if len(s.events) > s.capacity {
		overflow := len(s.events) - s.capacity
		s.events = append(s.events[:0], s.events[overflow:]...)
	}
}
