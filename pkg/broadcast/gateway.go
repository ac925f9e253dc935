package broadcast

import (
	"context"
	"sync"
)

// Gateway routes messages to per-user broadcasters. It backs live channels
// such as in-app socket delivery where a user may hold several concurrent
// connections (tabs, devices) and each must receive every message.
//
// Publish to a user with no subscribers fails fast with ErrNoSubscribers so
// callers can fall back to queued delivery instead of silently dropping.
type Gateway[T any] struct {
	users      map[string]*MemoryBroadcaster[T]
	bufferSize int
	closed     bool
	mu         sync.RWMutex
}

// NewGateway creates a user-keyed gateway. The bufferSize applies to every
// per-user subscriber channel; a minimum of 1 is enforced.
func NewGateway[T any](bufferSize int) *Gateway[T] {
	return &Gateway[T]{
		users:      make(map[string]*MemoryBroadcaster[T]),
		bufferSize: max(bufferSize, 1),
	}
}

// Subscribe attaches a new subscriber for the user. The subscription is
// cleaned up when ctx is cancelled or the subscriber is closed. Subscribing
// on a closed gateway returns an already-closed subscriber.
func (g *Gateway[T]) Subscribe(ctx context.Context, userID string) Subscriber[T] {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		sub := newSubscriber[T](g.bufferSize)
		_ = sub.Close()
		return sub
	}

	b, ok := g.users[userID]
	if !ok {
		b = NewMemoryBroadcaster[T](g.bufferSize)
		g.users[userID] = b
	}
	g.mu.Unlock()

	return b.Subscribe(ctx)
}

// Publish delivers the message to every active subscriber of the user.
// Returns ErrNoSubscribers when the user has no live connection and ErrClosed
// after the gateway has been shut down.
func (g *Gateway[T]) Publish(ctx context.Context, userID string, msg Message[T]) error {
	g.mu.RLock()
	if g.closed {
		g.mu.RUnlock()
		return ErrClosed
	}
	b, ok := g.users[userID]
	g.mu.RUnlock()

	if !ok || b.Len() == 0 {
		g.prune(userID)
		return ErrNoSubscribers
	}
	return b.Broadcast(ctx, msg)
}

// HasSubscribers reports whether the user currently holds at least one live
// subscription.
func (g *Gateway[T]) HasSubscribers(userID string) bool {
	g.mu.RLock()
	b, ok := g.users[userID]
	g.mu.RUnlock()
	return ok && b.Len() > 0
}

// Connected reports how many users currently hold at least one subscription.
func (g *Gateway[T]) Connected() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := 0
	for _, b := range g.users {
		if b.Len() > 0 {
			n++
		}
	}
	return n
}

// Closed reports whether the gateway has been shut down.
func (g *Gateway[T]) Closed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.closed
}

// Close shuts down all per-user broadcasters. Safe to call multiple times.
func (g *Gateway[T]) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true

	for _, b := range g.users {
		_ = b.Close()
	}
	clear(g.users)
	return nil
}

// prune drops the user's broadcaster once its last subscriber is gone so the
// map does not accumulate entries for users who disconnected long ago.
func (g *Gateway[T]) prune(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if b, ok := g.users[userID]; ok && b.Len() == 0 {
		_ = b.Close()
		delete(g.users, userID)
	}
}
