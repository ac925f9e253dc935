package audit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/audit"
)

// captureStorage records what the writer hands it and can block batch
// writes to force specific buffer states.
type captureStorage struct {
	mu      sync.Mutex
	singles []audit.Event
	batches [][]audit.Event

	entered chan struct{} // signalled when StoreBatch starts
	release chan struct{} // StoreBatch blocks on this when set
}

func (s *captureStorage) Store(ctx context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.singles = append(s.singles, event)
	return nil
}

func (s *captureStorage) StoreBatch(ctx context.Context, events []audit.Event) error {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	batch := make([]audit.Event, len(events))
	copy(batch, events)
	s.batches = append(s.batches, batch)
	return nil
}

func (s *captureStorage) Query(ctx context.Context, criteria audit.Criteria) ([]audit.Event, error) {
	return nil, nil
}

func (s *captureStorage) Count(ctx context.Context, criteria audit.Criteria) (int64, error) {
	return 0, nil
}

func (s *captureStorage) batched() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.Event
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func (s *captureStorage) syncStored() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Event, len(s.singles))
	copy(out, s.singles)
	return out
}

func testEvent() audit.Event {
	return audit.Delivered(uuid.New(), uuid.New(), "comment", "socket", time.Millisecond)
}

func TestNewAsyncWriter(t *testing.T) {
	t.Parallel()

	t.Run("requires storage", func(t *testing.T) {
		t.Parallel()

		writer, err := audit.NewAsyncWriter(nil)
		assert.ErrorIs(t, err, audit.ErrStorageNil)
		assert.Nil(t, writer)
	})
}

func TestAsyncWriterRecord(t *testing.T) {
	t.Parallel()

	t.Run("flushes when the batch fills", func(t *testing.T) {
		t.Parallel()

		storage := &captureStorage{}
		writer, err := audit.NewAsyncWriter(storage,
			audit.WithBatchSize(2),
			audit.WithBatchTimeout(time.Hour))
		require.NoError(t, err)
		defer writer.Close(context.Background())

		first := testEvent()
		second := testEvent()
		require.NoError(t, writer.Record(context.Background(), first))
		require.NoError(t, writer.Record(context.Background(), second))

		assert.Eventually(t, func() bool {
			return len(storage.batched()) == 2
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, first.ID, storage.batched()[0].ID)
		assert.Equal(t, second.ID, storage.batched()[1].ID)
	})

	t.Run("flushes a partial batch on timeout", func(t *testing.T) {
		t.Parallel()

		storage := &captureStorage{}
		writer, err := audit.NewAsyncWriter(storage,
			audit.WithBatchSize(100),
			audit.WithBatchTimeout(20*time.Millisecond))
		require.NoError(t, err)
		defer writer.Close(context.Background())

		require.NoError(t, writer.Record(context.Background(), testEvent()))

		assert.Eventually(t, func() bool {
			return len(storage.batched()) == 1
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("rejects invalid events", func(t *testing.T) {
		t.Parallel()

		storage := &captureStorage{}
		writer, err := audit.NewAsyncWriter(storage)
		require.NoError(t, err)
		defer writer.Close(context.Background())

		err = writer.Record(context.Background(), audit.Event{Result: audit.ResultDelivered})
		assert.ErrorIs(t, err, audit.ErrInvalidEvent)
	})

	t.Run("falls back to a synchronous write when the buffer is full", func(t *testing.T) {
		t.Parallel()

		storage := &captureStorage{
			entered: make(chan struct{}, 3),
			release: make(chan struct{}),
		}
		writer, err := audit.NewAsyncWriter(storage,
			audit.WithBufferSize(1),
			audit.WithBatchSize(1),
			audit.WithBatchTimeout(time.Hour))
		require.NoError(t, err)

		// First event is picked up immediately and its flush blocks,
		// second fills the buffer, third has nowhere to go.
		first := testEvent()
		require.NoError(t, writer.Record(context.Background(), first))
		<-storage.entered

		second := testEvent()
		require.NoError(t, writer.Record(context.Background(), second))

		third := testEvent()
		require.NoError(t, writer.Record(context.Background(), third))

		stored := storage.syncStored()
		require.Len(t, stored, 1)
		assert.Equal(t, third.ID, stored[0].ID)

		close(storage.release)
		require.NoError(t, writer.Close(context.Background()))

		batched := storage.batched()
		require.Len(t, batched, 2)
		assert.Equal(t, first.ID, batched[0].ID)
		assert.Equal(t, second.ID, batched[1].ID)
	})
}

func TestAsyncWriterClose(t *testing.T) {
	t.Parallel()

	t.Run("drains buffered events", func(t *testing.T) {
		t.Parallel()

		storage := &captureStorage{}
		writer, err := audit.NewAsyncWriter(storage,
			audit.WithBatchSize(100),
			audit.WithBatchTimeout(time.Hour))
		require.NoError(t, err)

		events := []audit.Event{testEvent(), testEvent(), testEvent()}
		for _, e := range events {
			require.NoError(t, writer.Record(context.Background(), e))
		}

		require.NoError(t, writer.Close(context.Background()))

		batched := storage.batched()
		require.Len(t, batched, len(events))
		for i, e := range events {
			assert.Equal(t, e.ID, batched[i].ID)
		}
	})

	t.Run("is idempotent and stops Record", func(t *testing.T) {
		t.Parallel()

		storage := &captureStorage{}
		writer, err := audit.NewAsyncWriter(storage)
		require.NoError(t, err)

		require.NoError(t, writer.Close(context.Background()))
		require.NoError(t, writer.Close(context.Background()))

		err = writer.Record(context.Background(), testEvent())
		assert.ErrorIs(t, err, audit.ErrWriterClosed)
	})
}
