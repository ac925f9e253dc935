package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultBufferSize     = 1000
	defaultBatchSize      = 100
	defaultBatchTimeout   = 100 * time.Millisecond
	defaultStorageTimeout = 5 * time.Second
)

// AsyncWriter batches audit events and writes them to storage in the
// background so recording never blocks the delivery path. Events are
// flushed when the batch fills or the batch timeout elapses, whichever
// comes first.
type AsyncWriter struct {
	storage Storage
	logger  *slog.Logger

	bufferSize     int
	batchSize      int
	batchTimeout   time.Duration
	storageTimeout time.Duration

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
	closed atomic.Bool
}

// AsyncOption configures an AsyncWriter.
type AsyncOption func(*AsyncWriter)

// WithBufferSize sets how many events the writer buffers before Record
// falls back to a synchronous write.
func WithBufferSize(n int) AsyncOption {
	return func(w *AsyncWriter) {
		if n > 0 {
			w.bufferSize = n
		}
	}
}

// WithBatchSize sets how many events are written per storage call.
func WithBatchSize(n int) AsyncOption {
	return func(w *AsyncWriter) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithBatchTimeout sets how long a partial batch may wait before it is
// flushed.
func WithBatchTimeout(d time.Duration) AsyncOption {
	return func(w *AsyncWriter) {
		if d > 0 {
			w.batchTimeout = d
		}
	}
}

// WithStorageTimeout bounds each background storage write.
func WithStorageTimeout(d time.Duration) AsyncOption {
	return func(w *AsyncWriter) {
		if d > 0 {
			w.storageTimeout = d
		}
	}
}

// WithLogger sets the logger for background write failures.
func WithLogger(logger *slog.Logger) AsyncOption {
	return func(w *AsyncWriter) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewAsyncWriter creates a writer on top of the given storage and starts
// its background flush loop.
func NewAsyncWriter(storage Storage, opts ...AsyncOption) (*AsyncWriter, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}

	w := &AsyncWriter{
		storage:        storage,
		logger:         slog.Default(),
		bufferSize:     defaultBufferSize,
		batchSize:      defaultBatchSize,
		batchTimeout:   defaultBatchTimeout,
		storageTimeout: defaultStorageTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}

	w.events = make(chan Event, w.bufferSize)
	w.done = make(chan struct{})
	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Record enqueues an event for background writing. When the buffer is
// full the event is written synchronously instead of being dropped.
func (w *AsyncWriter) Record(ctx context.Context, event Event) error {
	if w.closed.Load() {
		return ErrWriterClosed
	}
	if err := event.Validate(); err != nil {
		return err
	}

	select {
	case w.events <- event:
		return nil
	default:
		return w.storage.Store(ctx, event)
	}
}

// Close drains buffered events and stops the writer. The context bounds
// how long the drain may take.
func (w *AsyncWriter) Close(ctx context.Context) error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(w.done)

	finished := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *AsyncWriter) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.batchTimeout)
	defer ticker.Stop()

	batch := make([]Event, 0, w.batchSize)
	for {
		select {
		case event := <-w.events:
			batch = append(batch, event)
			if len(batch) >= w.batchSize {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-w.done:
			for {
				select {
				case event := <-w.events:
					batch = append(batch, event)
					if len(batch) >= w.batchSize {
						w.flush(batch)
						batch = batch[:0]
					}
				default:
					w.flush(batch)
					return
				}
			}
		}
	}
}

func (w *AsyncWriter) flush(batch []Event) {
	if len(batch) == 0 {
		return
	}

	// Writes run on a detached context so caller shutdown cannot drop a
	// batch mid-write.
	ctx, cancel := context.WithTimeout(context.Background(), w.storageTimeout)
	defer cancel()

	if err := w.storage.StoreBatch(ctx, batch); err != nil {
		w.logger.ErrorContext(ctx, "audit batch write failed",
			slog.Int("events", len(batch)),
			slog.Any("error", err))
	}
}
