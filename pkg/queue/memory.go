package queue

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage is an in-memory implementation of Storage for development
// and testing. All operations are safe for concurrent use. Notifications
// are cloned on the way in and out so callers can never mutate stored
// state directly.
type MemoryStorage struct {
	mu       sync.RWMutex
	items    map[uuid.UUID]*Notification
	byStatus map[Status][]uuid.UUID
	byUser   map[uuid.UUID][]uuid.UUID
	now      func() time.Time
}

// MemoryOption configures MemoryStorage.
type MemoryOption func(*MemoryStorage)

// WithClock overrides the time source, used by tests to control schedules
// and expiry deterministically.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStorage) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStorage creates an empty in-memory notification store.
func NewMemoryStorage(opts ...MemoryOption) *MemoryStorage {
	s := &MemoryStorage{
		items:    make(map[uuid.UUID]*Notification),
		byStatus: make(map[Status][]uuid.UUID),
		byUser:   make(map[uuid.UUID][]uuid.UUID),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new Pending notification, filling defaults on the
// caller's copy so the assigned ID is visible after return.
func (s *MemoryStorage) Create(ctx context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := normalize(n, s.now()); err != nil {
		return err
	}
	if _, exists := s.items[n.ID]; exists {
		return ErrDuplicateID
	}

	stored := cloneNotification(n)
	s.items[stored.ID] = stored
	s.byStatus[stored.Status] = append(s.byStatus[stored.Status], stored.ID)
	s.byUser[stored.UserID] = append(s.byUser[stored.UserID], stored.ID)
	return nil
}

// Get returns a copy of the notification or ErrNotFound.
func (s *MemoryStorage) Get(ctx context.Context, id uuid.UUID) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneNotification(n), nil
}

// Claim atomically moves a due Pending notification to Processing. A
// notification whose TTL already lapsed is expired instead of claimed.
func (s *MemoryStorage) Claim(ctx context.Context, id uuid.UUID) (*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := s.now()
	if n.ExpiredBy(now) {
		if !n.Status.Terminal() {
			s.setStatus(n, StatusExpired)
		}
		return nil, ErrNotClaimable
	}
	if n.Status != StatusPending || !n.Due(now) {
		return nil, ErrNotClaimable
	}

	s.setStatus(n, StatusProcessing)
	return cloneNotification(n), nil
}

// Deliver marks a Processing notification Delivered. Repeated calls on an
// already delivered notification report false without error.
func (s *MemoryStorage) Deliver(ctx context.Context, id uuid.UUID, provider string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok {
		return false, ErrNotFound
	}
	switch {
	case n.Status == StatusDelivered:
		return false, nil
	case n.Status.Terminal():
		return false, ErrTerminal
	case n.Status != StatusProcessing:
		return false, ErrInvalidTransition
	}

	now := s.now()
	n.DeliveredAt = &now
	n.DeliveryProvider = &provider
	n.NextRetryAt = nil
	s.setStatus(n, StatusDelivered)
	return true, nil
}

// Fail records a failed attempt, scheduling a retry or finalizing the
// notification once attempts are exhausted.
func (s *MemoryStorage) Fail(ctx context.Context, id uuid.UUID, cause string, backoff Backoff) (*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if n.Status.Terminal() {
		return nil, ErrTerminal
	}
	if n.Status != StatusProcessing {
		return nil, ErrInvalidTransition
	}

	n.AttemptCount++
	n.LastError = &cause
	if n.AttemptCount >= n.MaxAttempts {
		n.NextRetryAt = nil
		s.setStatus(n, StatusFailed)
	} else {
		next := s.now().Add(backoff.Delay(n.AttemptCount))
		n.NextRetryAt = &next
		s.setStatus(n, StatusPending)
	}
	return cloneNotification(n), nil
}

// Defer reschedules a non-terminal notification without consuming an
// attempt. Any pending retry backoff is replaced by the new schedule.
func (s *MemoryStorage) Defer(ctx context.Context, id uuid.UUID, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	if n.Status.Terminal() {
		return ErrTerminal
	}

	sched := until
	n.ScheduledFor = &sched
	n.NextRetryAt = nil
	if n.Status != StatusPending {
		s.setStatus(n, StatusPending)
	}
	return nil
}

// Cancel withdraws a Pending notification. Already cancelled ones are
// left untouched; in-flight deliveries cannot be cancelled.
func (s *MemoryStorage) Cancel(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	switch n.Status {
	case StatusCancelled:
		return nil
	case StatusPending:
		s.setStatus(n, StatusCancelled)
		return nil
	case StatusProcessing:
		return ErrInvalidTransition
	default:
		return ErrTerminal
	}
}

// DueForDelivery returns Pending notifications with no retry backoff whose
// schedule is due, ordered by priority then age.
func (s *MemoryStorage) DueForDelivery(ctx context.Context, limit int) ([]*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	return s.selectPending(limit, func(n *Notification) bool {
		return n.NextRetryAt == nil && n.Due(now) && !n.ExpiredBy(now)
	}), nil
}

// DueForRetry returns Pending notifications whose retry backoff elapsed,
// ordered by priority then age.
func (s *MemoryStorage) DueForRetry(ctx context.Context, limit int) ([]*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	return s.selectPending(limit, func(n *Notification) bool {
		return n.NextRetryAt != nil && !n.NextRetryAt.After(now) && !n.ExpiredBy(now)
	}), nil
}

// PendingForUser returns the user's due Pending notifications ordered by
// priority then age.
func (s *MemoryStorage) PendingForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var out []*Notification
	for _, id := range s.byUser[userID] {
		n := s.items[id]
		if n.Status == StatusPending && n.Due(now) && !n.ExpiredBy(now) {
			out = append(out, n)
		}
	}
	sortForDelivery(out)
	return cloneAll(out, limit), nil
}

// ExpireOverdue transitions every non-terminal notification past its TTL
// to Expired.
func (s *MemoryStorage) ExpireOverdue(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	expired := 0
	for _, status := range []Status{StatusPending, StatusProcessing} {
		// setStatus mutates the index being walked, so snapshot it first.
		for _, id := range slices.Clone(s.byStatus[status]) {
			n := s.items[id]
			if n.ExpiredBy(now) {
				s.setStatus(n, StatusExpired)
				expired++
			}
		}
	}
	return expired, nil
}

// PurgeTerminal deletes terminal notifications created before the cutoff.
func (s *MemoryStorage) PurgeTerminal(ctx context.Context, olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-olderThan)
	purged := 0
	for id, n := range s.items {
		if n.Status.Terminal() && n.CreatedAt.Before(cutoff) {
			s.byStatus[n.Status] = removeID(s.byStatus[n.Status], id)
			s.byUser[n.UserID] = removeID(s.byUser[n.UserID], id)
			if len(s.byUser[n.UserID]) == 0 {
				delete(s.byUser, n.UserID)
			}
			delete(s.items, id)
			purged++
		}
	}
	return purged, nil
}

// Stats returns queue counters grouped by status.
func (s *MemoryStorage) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Total:    len(s.items),
		ByStatus: make(map[Status]int),
	}
	for status, ids := range s.byStatus {
		if len(ids) > 0 {
			st.ByStatus[status] = len(ids)
		}
	}
	delivered := st.ByStatus[StatusDelivered]
	failed := st.ByStatus[StatusFailed]
	if settled := delivered + failed; settled > 0 {
		st.DeliveryRate = float64(delivered) / float64(settled)
		st.FailureRate = float64(failed) / float64(settled)
	}
	return st, nil
}

// selectPending filters Pending notifications, sorts them for delivery and
// returns clones. Callers must hold at least a read lock.
func (s *MemoryStorage) selectPending(limit int, keep func(*Notification) bool) []*Notification {
	var out []*Notification
	for _, id := range s.byStatus[StatusPending] {
		n := s.items[id]
		if keep(n) {
			out = append(out, n)
		}
	}
	sortForDelivery(out)
	return cloneAll(out, limit)
}

// setStatus moves the notification between status indexes. Callers must
// hold the write lock.
func (s *MemoryStorage) setStatus(n *Notification, to Status) {
	s.byStatus[n.Status] = removeID(s.byStatus[n.Status], n.ID)
	n.Status = to
	s.byStatus[to] = append(s.byStatus[to], n.ID)
}

// sortForDelivery orders notifications by descending priority, then by
// ascending creation time so same-priority items deliver oldest first.
func sortForDelivery(items []*Notification) {
	slices.SortStableFunc(items, func(a, b *Notification) int {
		if d := b.Priority.rank() - a.Priority.rank(); d != 0 {
			return d
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}

func cloneAll(items []*Notification, limit int) []*Notification {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]*Notification, len(items))
	for i, n := range items {
		out[i] = cloneNotification(n)
	}
	return out
}

func cloneNotification(n *Notification) *Notification {
	c := *n
	c.Data = maps.Clone(n.Data)
	c.ExcludedProviders = slices.Clone(n.ExcludedProviders)
	c.ScheduledFor = cloneTimePtr(n.ScheduledFor)
	c.ExpiresAt = cloneTimePtr(n.ExpiresAt)
	c.NextRetryAt = cloneTimePtr(n.NextRetryAt)
	c.DeliveredAt = cloneTimePtr(n.DeliveredAt)
	c.LastError = cloneStringPtr(n.LastError)
	c.DeliveryProvider = cloneStringPtr(n.DeliveryProvider)
	return &c
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
