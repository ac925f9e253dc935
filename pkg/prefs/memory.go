package prefs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory preference store for tests and single-node
// setups. Unknown users resolve to the default preferences rather than an
// error.
type MemoryStore struct {
	mu       sync.RWMutex
	prefs    map[uuid.UUID]Preferences
	defaults func(uuid.UUID) Preferences
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	settings := newStoreSettings(opts)
	return &MemoryStore{
		prefs:    make(map[uuid.UUID]Preferences),
		defaults: settings.defaults,
	}
}

// Get returns the stored preferences, or defaults when none were saved.
func (s *MemoryStore) Get(_ context.Context, userID uuid.UUID) (Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prefs[userID]
	if !ok {
		return s.defaults(userID), nil
	}
	return clonePreferences(p), nil
}

// Save validates and stores a full preference document.
func (s *MemoryStore) Save(_ context.Context, p Preferences) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[p.UserID] = clonePreferences(p)
	return nil
}

// Patch applies a partial update on top of the current (or default)
// preferences and stores the result.
func (s *MemoryStore) Patch(_ context.Context, userID uuid.UUID, patch Patch) (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.prefs[userID]
	if !ok {
		p = s.defaults(userID)
	} else {
		p = clonePreferences(p)
	}

	p = patch.apply(p)
	if err := p.Validate(); err != nil {
		return Preferences{}, err
	}
	p.UpdatedAt = time.Now()

	s.prefs[userID] = clonePreferences(p)
	return p, nil
}

func clonePreferences(p Preferences) Preferences {
	out := p
	if p.TypeEnabled != nil {
		out.TypeEnabled = make(map[string]bool, len(p.TypeEnabled))
		for k, v := range p.TypeEnabled {
			out.TypeEnabled[k] = v
		}
	}
	if p.TypeMethod != nil {
		out.TypeMethod = make(map[string]DeliveryMethod, len(p.TypeMethod))
		for k, v := range p.TypeMethod {
			out.TypeMethod[k] = v
		}
	}
	return out
}
