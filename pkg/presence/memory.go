package presence

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryTracker keeps presence in process memory. Suitable for
// single-process deployments and tests.
type MemoryTracker struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]Status
	staleAfter time.Duration
	now        func() time.Time
}

// TrackerOption configures MemoryTracker construction.
type TrackerOption func(*MemoryTracker)

// WithStaleAfter treats entries older than d as offline. Zero disables
// staleness checks, which means a crashed client stays online until
// SetOffline is called.
func WithStaleAfter(d time.Duration) TrackerOption {
	return func(t *MemoryTracker) {
		if d > 0 {
			t.staleAfter = d
		}
	}
}

// WithClock overrides time.Now, used by tests to control staleness.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *MemoryTracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewMemoryTracker creates an empty in-memory tracker.
func NewMemoryTracker(opts ...TrackerOption) *MemoryTracker {
	t := &MemoryTracker{
		users: make(map[uuid.UUID]Status),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *MemoryTracker) SetOnline(_ context.Context, userID uuid.UUID, kind Kind) error {
	switch kind {
	case KindSocket, KindPush:
	default:
		return ErrInvalidKind
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.users[userID] = Status{
		UserID:   userID,
		Online:   true,
		Kind:     kind,
		LastSeen: t.now(),
	}
	return nil
}

func (t *MemoryTracker) SetOffline(_ context.Context, userID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.users[userID] = Status{
		UserID:   userID,
		Online:   false,
		Kind:     KindNone,
		LastSeen: t.now(),
	}
	return nil
}

func (t *MemoryTracker) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	status, err := t.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return status.Online, nil
}

func (t *MemoryTracker) Get(_ context.Context, userID uuid.UUID) (Status, error) {
	t.mu.RLock()
	status, ok := t.users[userID]
	t.mu.RUnlock()

	if !ok {
		return Status{UserID: userID, Online: false, Kind: KindNone}, nil
	}
	if status.Online && t.staleAfter > 0 && t.now().Sub(status.LastSeen) > t.staleAfter {
		status.Online = false
		status.Kind = KindNone
	}
	return status, nil
}
