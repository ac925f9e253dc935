package async

import (
	"context"
	"errors"
	"time"
)

// Future is a handle to a computation running in its own goroutine.
// The zero value is not usable; obtain one from Async.
type Future[U any] struct {
	result U
	err    error
	done   chan struct{}
}

// Async runs fn in a new goroutine and returns a Future for its result.
// If ctx is already cancelled when the goroutine starts, fn is never
// invoked and the Future completes with the context error.
func Async[T, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}
		f.result, f.err = fn(ctx, param)
	}()

	return f
}

// Await blocks until the computation finishes and returns its result.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.result, f.err
}

// AwaitWithTimeout blocks until the computation finishes or the timeout
// elapses. On timeout the goroutine keeps running; only the wait is
// abandoned, and ErrTimeout is returned with a zero result.
func (f *Future[U]) AwaitWithTimeout(timeout time.Duration) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-time.After(timeout):
		var zero U
		return zero, ErrTimeout
	}
}

// WaitAll awaits every future and collects the results in argument order.
// Errors are joined rather than short-circuited, so one failed task does
// not hide the outcome of the rest.
func WaitAll[U any](futures ...*Future[U]) ([]U, error) {
	results := make([]U, len(futures))

	var errs []error
	for i, f := range futures {
		r, err := f.Await()
		results[i] = r
		if err != nil {
			errs = append(errs, err)
		}
	}

	return results, errors.Join(errs...)
}
