// Package async provides small generic helpers for fanning work out to
// goroutines and waiting for the results.
//
// Async starts the supplied function in its own goroutine and returns a
// *Future for its eventual result. The caller waits with Await, bounds the
// wait with AwaitWithTimeout, or gathers a whole batch with WaitAll, which
// joins errors instead of short-circuiting so every task's outcome is
// observed.
//
// Within this module the helper drives the provider registry's health
// sweep: each registered gateway is probed in its own goroutine and the
// sweep completes when the slowest probe does, rather than after the sum
// of all probe timeouts.
//
// # Usage
//
//	futures := make([]*async.Future[string], 0, len(hosts))
//	for _, h := range hosts {
//	    futures = append(futures, async.Async(ctx, h, lookup))
//	}
//	results, err := async.WaitAll(futures...)
//
// If the context is cancelled before a goroutine starts its work, the
// Future completes with the context error and the function is never
// invoked.
package async
