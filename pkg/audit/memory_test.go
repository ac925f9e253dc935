package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/audit"
)

func seedTrail(t *testing.T) (*audit.MemoryStorage, []audit.Event) {
	t.Helper()

	store := audit.NewMemoryStorage()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	alice := uuid.New()
	bob := uuid.New()

	events := []audit.Event{
		audit.Delivered(uuid.New(), alice, "comment", "socket", 5*time.Millisecond),
		audit.Failed(uuid.New(), alice, "comment", "fcm", 80*time.Millisecond, context.DeadlineExceeded),
		audit.Blocked(bob, "marketing", "type_disabled"),
		audit.Delivered(uuid.New(), bob, "mention", "expo", 30*time.Millisecond),
	}
	for i := range events {
		events[i].CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Store(context.Background(), events[i]))
	}
	return store, events
}

func TestMemoryStorageStore(t *testing.T) {
	t.Parallel()

	t.Run("rejects invalid event", func(t *testing.T) {
		t.Parallel()

		store := audit.NewMemoryStorage()
		event := audit.Blocked(uuid.Nil, "comment", "quiet_hours")

		err := store.Store(context.Background(), event)
		assert.ErrorIs(t, err, audit.ErrInvalidEvent)

		n, err := store.Count(context.Background(), audit.Criteria{})
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("batch is all or none", func(t *testing.T) {
		t.Parallel()

		store := audit.NewMemoryStorage()
		events := []audit.Event{
			audit.Delivered(uuid.New(), uuid.New(), "comment", "socket", time.Millisecond),
			{Result: audit.ResultDelivered}, // missing user and type
		}

		err := store.StoreBatch(context.Background(), events)
		assert.ErrorIs(t, err, audit.ErrInvalidEvent)

		n, err := store.Count(context.Background(), audit.Criteria{})
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("evicts oldest past capacity", func(t *testing.T) {
		t.Parallel()

		store := audit.NewMemoryStorage(audit.WithCapacity(2))
		first := audit.Delivered(uuid.New(), uuid.New(), "comment", "socket", time.Millisecond)
		second := audit.Delivered(uuid.New(), uuid.New(), "comment", "socket", time.Millisecond)
		third := audit.Delivered(uuid.New(), uuid.New(), "comment", "socket", time.Millisecond)

		for _, e := range []audit.Event{first, second, third} {
			require.NoError(t, store.Store(context.Background(), e))
		}

		n, err := store.Count(context.Background(), audit.Criteria{})
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		gone, err := store.Query(context.Background(), audit.Criteria{NotificationID: first.NotificationID})
		require.NoError(t, err)
		assert.Empty(t, gone)

		kept, err := store.Query(context.Background(), audit.Criteria{NotificationID: third.NotificationID})
		require.NoError(t, err)
		assert.Len(t, kept, 1)
	})
}

func TestMemoryStorageQuery(t *testing.T) {
	t.Parallel()

	t.Run("returns newest first", func(t *testing.T) {
		t.Parallel()

		store, events := seedTrail(t)

		got, err := store.Query(context.Background(), audit.Criteria{})
		require.NoError(t, err)
		require.Len(t, got, len(events))
		for i, e := range got {
			assert.Equal(t, events[len(events)-1-i].ID, e.ID)
		}
	})

	t.Run("filters by user", func(t *testing.T) {
		t.Parallel()

		store, events := seedTrail(t)

		got, err := store.Query(context.Background(), audit.Criteria{UserID: events[0].UserID})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, events[1].ID, got[0].ID)
		assert.Equal(t, events[0].ID, got[1].ID)
	})

	t.Run("filters by result", func(t *testing.T) {
		t.Parallel()

		store, events := seedTrail(t)

		got, err := store.Query(context.Background(), audit.Criteria{Result: audit.ResultBlocked})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, events[2].ID, got[0].ID)
		assert.Equal(t, "type_disabled", got[0].Reason)
	})

	t.Run("filters by provider and type", func(t *testing.T) {
		t.Parallel()

		store, events := seedTrail(t)

		got, err := store.Query(context.Background(), audit.Criteria{Provider: "fcm", NotificationType: "comment"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, events[1].ID, got[0].ID)
	})

	t.Run("time range is inclusive", func(t *testing.T) {
		t.Parallel()

		store, events := seedTrail(t)

		got, err := store.Query(context.Background(), audit.Criteria{
			From: events[1].CreatedAt,
			To:   events[2].CreatedAt,
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, events[2].ID, got[0].ID)
		assert.Equal(t, events[1].ID, got[1].ID)
	})

	t.Run("paginates from the newest end", func(t *testing.T) {
		t.Parallel()

		store, events := seedTrail(t)

		got, err := store.Query(context.Background(), audit.Criteria{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, events[2].ID, got[0].ID)
		assert.Equal(t, events[1].ID, got[1].ID)
	})

	t.Run("counts by filter", func(t *testing.T) {
		t.Parallel()

		store, _ := seedTrail(t)

		n, err := store.Count(context.Background(), audit.Criteria{Result: audit.ResultDelivered})
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
	})
}
