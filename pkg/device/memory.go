package device

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory token registry for single-process deployments
// and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	byKey  map[string]*Token
	byUser map[uuid.UUID]map[string]struct{}
}

// NewMemoryStore creates an empty in-memory registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byKey:  make(map[string]*Token),
		byUser: make(map[uuid.UUID]map[string]struct{}),
	}
}

func tokenKey(platform Platform, token string) string {
	return string(platform) + "\x00" + token
}

func (s *MemoryStore) Register(_ context.Context, userID uuid.UUID, platform Platform, token string) (Token, error) {
	if !validPlatform(platform) {
		return Token{}, ErrInvalidPlatform
	}
	if strings.TrimSpace(token) == "" {
		return Token{}, ErrEmptyToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	key := tokenKey(platform, token)

	if existing, ok := s.byKey[key]; ok {
		if existing.UserID != userID {
			delete(s.byUser[existing.UserID], key)
			existing.UserID = userID
		}
		existing.Active = true
		existing.UpdatedAt = now
		s.indexUser(userID, key)
		return *existing, nil
	}

	t := &Token{
		ID:        uuid.New(),
		UserID:    userID,
		Platform:  platform,
		Token:     token,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.byKey[key] = t
	s.indexUser(userID, key)
	return *t, nil
}

func (s *MemoryStore) Deactivate(_ context.Context, platform Platform, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byKey[tokenKey(platform, token)]
	if !ok {
		return ErrTokenNotFound
	}
	t.Active = false
	t.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, platform Platform, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tokenKey(platform, token)
	t, ok := s.byKey[key]
	if !ok {
		return ErrTokenNotFound
	}
	delete(s.byKey, key)
	delete(s.byUser[t.UserID], key)
	if len(s.byUser[t.UserID]) == 0 {
		delete(s.byUser, t.UserID)
	}
	return nil
}

func (s *MemoryStore) ActiveForUser(_ context.Context, userID uuid.UUID, platform Platform) ([]Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys, ok := s.byUser[userID]
	if !ok {
		return nil, nil
	}

	out := make([]Token, 0, len(keys))
	for key := range keys {
		t := s.byKey[key]
		if t != nil && t.Active && t.Platform == platform {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) indexUser(userID uuid.UUID, key string) {
	set, ok := s.byUser[userID]
	if !ok {
		set = make(map[string]struct{})
		s.byUser[userID] = set
	}
	set[key] = struct{}{}
}
