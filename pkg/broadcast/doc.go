// Package broadcast provides type-safe message broadcasting with subscriber management.
// It enables one-to-many communication patterns with automatic cleanup and buffering.
//
// The package uses Go generics to provide type safety at compile time, ensuring
// messages are strongly typed throughout the broadcasting system.
//
// Two building blocks are exposed:
//
//   - MemoryBroadcaster fans a message out to all of its subscribers.
//   - Gateway keys broadcasters by user id, which is the shape live
//     notification delivery needs: a user may hold several concurrent
//     connections and each must receive every message, while publishing to a
//     user with no connections fails fast with ErrNoSubscribers.
//
// Basic usage:
//
//	gw := broadcast.NewGateway[string](10)
//	defer gw.Close()
//
//	ctx := context.Background()
//	sub := gw.Subscribe(ctx, "user-1")
//	defer sub.Close()
//
//	if err := gw.Publish(ctx, "user-1", broadcast.Message[string]{Data: "hello"}); err != nil {
//		// ErrNoSubscribers means the user is not connected
//	}
//
//	for msg := range sub.Receive(ctx) {
//		fmt.Println(msg.Data)
//	}
//
// The memory implementation automatically handles subscriber cleanup when:
// - The subscriber's context is cancelled
// - The subscriber's buffer is full (drops slow subscribers)
// - The broadcaster is closed
package broadcast
