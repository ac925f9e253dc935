package queue_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/queue"
)

func TestStatus(t *testing.T) {
	t.Parallel()

	t.Run("terminal states", func(t *testing.T) {
		t.Parallel()

		for _, s := range []queue.Status{queue.StatusDelivered, queue.StatusFailed, queue.StatusExpired, queue.StatusCancelled} {
			assert.True(t, s.Terminal(), "%s should be terminal", s)
		}
		for _, s := range []queue.Status{queue.StatusPending, queue.StatusProcessing} {
			assert.False(t, s.Terminal(), "%s should not be terminal", s)
		}
	})

	t.Run("validity", func(t *testing.T) {
		t.Parallel()

		assert.True(t, queue.StatusPending.Valid())
		assert.False(t, queue.Status("archived").Valid())
		assert.False(t, queue.Status("").Valid())
	})
}

func TestBackoffDelay(t *testing.T) {
	t.Parallel()

	t.Run("doubles per attempt", func(t *testing.T) {
		t.Parallel()

		b := queue.Backoff{Base: 30 * time.Second, Cap: time.Hour}
		assert.Equal(t, time.Minute, b.Delay(1))
		assert.Equal(t, 2*time.Minute, b.Delay(2))
		assert.Equal(t, 4*time.Minute, b.Delay(3))
		assert.Equal(t, 8*time.Minute, b.Delay(4))
	})

	t.Run("caps growth", func(t *testing.T) {
		t.Parallel()

		b := queue.Backoff{Base: 30 * time.Second, Cap: time.Hour}
		assert.Equal(t, time.Hour, b.Delay(7))
		assert.Equal(t, time.Hour, b.Delay(20))
		assert.Equal(t, time.Hour, b.Delay(1000))
	})

	t.Run("clamps attempt below one", func(t *testing.T) {
		t.Parallel()

		b := queue.Backoff{Base: 30 * time.Second, Cap: time.Hour}
		assert.Equal(t, b.Delay(1), b.Delay(0))
		assert.Equal(t, b.Delay(1), b.Delay(-3))
	})

	t.Run("zero value falls back to defaults", func(t *testing.T) {
		t.Parallel()

		var b queue.Backoff
		assert.Equal(t, queue.DefaultBackoff.Delay(1), b.Delay(1))
		assert.Equal(t, queue.DefaultBackoff.Cap, b.Delay(100))
	})
}

func TestNotificationDue(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no schedule is due", func(t *testing.T) {
		t.Parallel()

		n := &queue.Notification{}
		require.True(t, n.Due(now))
	})

	t.Run("future schedule is not due", func(t *testing.T) {
		t.Parallel()

		later := now.Add(time.Hour)
		n := &queue.Notification{ScheduledFor: &later}
		assert.False(t, n.Due(now))
		assert.True(t, n.Due(later))
	})

	t.Run("pending retry backoff is not due", func(t *testing.T) {
		t.Parallel()

		retry := now.Add(time.Minute)
		n := &queue.Notification{NextRetryAt: &retry}
		assert.False(t, n.Due(now))
		assert.True(t, n.Due(retry.Add(time.Second)))
	})

	t.Run("expiry", func(t *testing.T) {
		t.Parallel()

		past := now.Add(-time.Second)
		n := &queue.Notification{ExpiresAt: &past}
		assert.True(t, n.ExpiredBy(now))
		assert.False(t, (&queue.Notification{}).ExpiredBy(now))
	})
}
