package notifykit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit"
	"github.com/dmitrymomot/notifykit/pkg/audit"
	"github.com/dmitrymomot/notifykit/pkg/content"
	"github.com/dmitrymomot/notifykit/pkg/prefs"
	"github.com/dmitrymomot/notifykit/pkg/provider"
	"github.com/dmitrymomot/notifykit/pkg/queue"
)

func TestNotifyValidation(t *testing.T) {
	t.Parallel()

	env := newEngineEnv(t)
	ctx := context.Background()

	t.Run("zero user id", func(t *testing.T) {
		t.Parallel()

		_, err := env.engine.Notify(ctx, uuid.Nil, content.EventLike, nil)
		assert.ErrorIs(t, err, notifykit.ErrInvalidUserID)
	})

	t.Run("empty event", func(t *testing.T) {
		t.Parallel()

		_, err := env.engine.Notify(ctx, uuid.New(), "", nil)
		assert.ErrorIs(t, err, notifykit.ErrInvalidEvent)
	})

	t.Run("unknown priority", func(t *testing.T) {
		t.Parallel()

		_, err := env.engine.Notify(ctx, uuid.New(), content.EventLike, nil,
			notifykit.WithPriority("urgent"))
		assert.ErrorIs(t, err, notifykit.ErrInvalidPriority)
	})
}

func TestNotifyDelivery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("delivers immediately to an online user", func(t *testing.T) {
		t.Parallel()

		env := newEngineEnv(t)
		user := uuid.New()
		env.online(t, user)

		receipt, err := env.engine.Notify(ctx, user, content.EventComment, map[string]string{"actor": "alice"})
		require.NoError(t, err)
		assert.True(t, receipt.Queued)
		assert.False(t, receipt.Blocked)
		assert.Nil(t, receipt.ScheduledFor)

		assert.Equal(t, queue.StatusDelivered, env.get(t, receipt.NotificationID).Status)

		calls := env.socket.calls()
		require.Len(t, calls, 1)
		assert.Equal(t, receipt.NotificationID, calls[0].NotificationID)
		assert.Equal(t, "New Comment", calls[0].Title)
		assert.Equal(t, "alice commented on your post", calls[0].Body)
		assert.Equal(t, map[string]string{"actor": "alice", "event": "comment"}, calls[0].Data)
		assert.Equal(t, "normal", calls[0].Priority)
	})

	t.Run("falls through to the next provider on failure", func(t *testing.T) {
		t.Parallel()

		env := newEngineEnv(t)
		env.socket.setErr(errors.New("socket gateway down"))
		user := uuid.New()
		env.online(t, user)

		receipt, err := env.engine.Notify(ctx, user, content.EventMention, map[string]string{"actor": "bob"})
		require.NoError(t, err)

		n := env.get(t, receipt.NotificationID)
		assert.Equal(t, queue.StatusDelivered, n.Status)
		require.NotNil(t, n.DeliveryProvider)
		assert.Equal(t, "push", *n.DeliveryProvider)

		// Both attempts land in the trail, newest first.
		events := env.trail(t, audit.Criteria{NotificationID: receipt.NotificationID})
		require.Len(t, events, 2)
		assert.Equal(t, audit.ResultDelivered, events[0].Result)
		assert.Equal(t, "push", events[0].Provider)
		assert.Equal(t, audit.ResultFailed, events[1].Result)
		assert.Equal(t, "socket", events[1].Provider)
		assert.Contains(t, events[1].Error, "socket gateway down")
	})

	t.Run("never calls a provider with an open breaker", func(t *testing.T) {
		t.Parallel()

		env := newEngineEnv(t, notifykit.WithBreakerConfig(provider.BreakerConfig{
			FailureThreshold: 1,
			Cooldown:         time.Hour,
		}))
		env.socket.setErr(errors.New("socket gateway down"))
		user := uuid.New()
		env.online(t, user)

		_, err := env.engine.Notify(ctx, user, content.EventLike, nil)
		require.NoError(t, err)
		assert.Len(t, env.socket.calls(), 1)
		assert.Len(t, env.push.calls(), 1)

		// The breaker opened on the first failure; the next delivery walks
		// straight past the socket provider.
		_, err = env.engine.Notify(ctx, user, content.EventLike, nil)
		require.NoError(t, err)
		assert.Len(t, env.socket.calls(), 1)
		assert.Len(t, env.push.calls(), 2)
	})
}

func TestNotifyPreferenceGate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("blocked when the type is disabled", func(t *testing.T) {
		t.Parallel()

		env := newEngineEnv(t)
		user := uuid.New()
		env.online(t, user)

		_, err := env.engine.UpdatePreferences(ctx, user, prefs.Patch{
			TypeEnabled: map[string]bool{"comment": false},
		})
		require.NoError(t, err)

		receipt, err := env.engine.Notify(ctx, user, content.EventComment, map[string]string{"actor": "alice"})
		require.NoError(t, err)
		assert.True(t, receipt.Blocked)
		assert.False(t, receipt.Queued)
		assert.Equal(t, prefs.ReasonTypeDisabled, receipt.Reason)
		assert.Equal(t, uuid.Nil, receipt.NotificationID)

		stats, err := env.engine.QueueStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Total)

		events := env.trail(t, audit.Criteria{UserID: user})
		require.Len(t, events, 1)
		assert.Equal(t, audit.ResultBlocked, events[0].Result)
		assert.Equal(t, string(prefs.ReasonTypeDisabled), events[0].Reason)
		assert.Equal(t, uuid.Nil, events[0].NotificationID)
	})

	t.Run("blocked when the channel is off", func(t *testing.T) {
		t.Parallel()

		env := newEngineEnv(t)
		user := uuid.New()

		off := prefs.MethodOff
		_, err := env.engine.UpdatePreferences(ctx, user, prefs.Patch{GeneralMethod: &off})
		require.NoError(t, err)

		receipt, err := env.engine.Notify(ctx, user, content.EventLike, nil)
		require.NoError(t, err)
		assert.True(t, receipt.Blocked)
		assert.Equal(t, prefs.ReasonMethodDisabled, receipt.Reason)
	})

	t.Run("quiet hours defer instead of dropping", func(t *testing.T) {
		t.Parallel()

		env := newEngineEnv(t)
		user := uuid.New()
		env.online(t, user)

		enabled := true
		start, end, tz := "10:00", "14:00", "UTC"
		_, err := env.engine.UpdatePreferences(ctx, user, prefs.Patch{
			QuietHoursEnabled: &enabled,
			QuietHoursStart:   &start,
			QuietHoursEnd:     &end,
			Timezone:          &tz,
		})
		require.NoError(t, err)

		receipt, err := env.engine.Notify(ctx, user, content.EventLike, nil)
		require.NoError(t, err)
		assert.True(t, receipt.Queued)
		require.NotNil(t, receipt.ScheduledFor)
		assert.Equal(t, time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC), *receipt.ScheduledFor)

		assert.Equal(t, queue.StatusPending, env.get(t, receipt.NotificationID).Status)
		assert.Empty(t, env.socket.calls())
	})

	t.Run("critical priority bypasses quiet hours", func(t *testing.T) {
		t.Parallel()

		env := newEngineEnv(t)
		user := uuid.New()
		env.online(t, user)

		enabled := true
		start, end, tz := "10:00", "14:00", "UTC"
		_, err := env.engine.UpdatePreferences(ctx, user, prefs.Patch{
			QuietHoursEnabled: &enabled,
			QuietHoursStart:   &start,
			QuietHoursEnd:     &end,
			Timezone:          &tz,
		})
		require.NoError(t, err)

		receipt, err := env.engine.Notify(ctx, user, content.EventSystem,
			map[string]string{"message": "password changed"},
			notifykit.WithPriority(queue.PriorityCritical))
		require.NoError(t, err)
		assert.Nil(t, receipt.ScheduledFor)
		assert.Equal(t, queue.StatusDelivered, env.get(t, receipt.NotificationID).Status)
	})

	t.Run("hourly cap blocks until the window rolls", func(t *testing.T) {
		t.Parallel()

		env := newEngineEnv(t)
		user := uuid.New()

		capsOn := true
		perHour := 2
		_, err := env.engine.UpdatePreferences(ctx, user, prefs.Patch{
			CapsEnabled: &capsOn,
			MaxPerHour:  &perHour,
		})
		require.NoError(t, err)

		for range 2 {
			receipt, err := env.engine.Notify(ctx, user, content.EventLike, nil)
			require.NoError(t, err)
			assert.True(t, receipt.Queued)
		}

		blocked, err := env.engine.Notify(ctx, user, content.EventLike, nil)
		require.NoError(t, err)
		assert.True(t, blocked.Blocked)
		assert.Equal(t, prefs.ReasonHourlyCap, blocked.Reason)

		env.clock.Advance(61 * time.Minute)

		receipt, err := env.engine.Notify(ctx, user, content.EventLike, nil)
		require.NoError(t, err)
		assert.True(t, receipt.Queued)
	})

	t.Run("daily cap blocks independently", func(t *testing.T) {
		t.Parallel()

		env := newEngineEnv(t)
		user := uuid.New()

		capsOn := true
		perDay := 1
		_, err := env.engine.UpdatePreferences(ctx, user, prefs.Patch{
			CapsEnabled: &capsOn,
			MaxPerDay:   &perDay,
		})
		require.NoError(t, err)

		first, err := env.engine.Notify(ctx, user, content.EventLike, nil)
		require.NoError(t, err)
		assert.True(t, first.Queued)

		second, err := env.engine.Notify(ctx, user, content.EventLike, nil)
		require.NoError(t, err)
		assert.True(t, second.Blocked)
		assert.Equal(t, prefs.ReasonDailyCap, second.Reason)
	})
}

func TestNotifyOptions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("schedule pushes delivery into the future", func(t *testing.T) {
		t.Parallel()

		env := newEngineEnv(t)
		user := uuid.New()
		env.online(t, user)

		at := testStart.Add(2 * time.Hour)
		receipt, err := env.engine.Notify(ctx, user, content.EventLike, nil,
			notifykit.WithSchedule(at))
		require.NoError(t, err)
		require.NotNil(t, receipt.ScheduledFor)
		assert.Equal(t, at, *receipt.ScheduledFor)
		assert.Equal(t, queue.StatusPending, env.get(t, receipt.NotificationID).Status)
		assert.Empty(t, env.socket.calls())

		// Once the schedule passes, a reconnect flush delivers it.
		env.clock.Advance(2*time.Hour + time.Minute)
		env.online(t, user)
		assert.Equal(t, queue.StatusDelivered, env.get(t, receipt.NotificationID).Status)
	})

	t.Run("ttl bounds deliverability", func(t *testing.T) {
		t.Parallel()

		env := newEngineEnv(t)
		user := uuid.New()

		receipt, err := env.engine.Notify(ctx, user, content.EventLike, nil,
			notifykit.WithTTL(time.Hour))
		require.NoError(t, err)

		n := env.get(t, receipt.NotificationID)
		require.NotNil(t, n.ExpiresAt)
		assert.Equal(t, testStart.Add(time.Hour), *n.ExpiresAt)

		// Without the option the configured default applies.
		receipt, err = env.engine.Notify(ctx, user, content.EventLike, nil)
		require.NoError(t, err)

		n = env.get(t, receipt.NotificationID)
		require.NotNil(t, n.ExpiresAt)
		assert.Equal(t, testStart.Add(30*24*time.Hour), *n.ExpiresAt)
	})

	t.Run("max attempts override and default", func(t *testing.T) {
		t.Parallel()

		env := newEngineEnv(t)
		user := uuid.New()

		receipt, err := env.engine.Notify(ctx, user, content.EventLike, nil,
			notifykit.WithMaxAttempts(7))
		require.NoError(t, err)
		assert.Equal(t, 7, env.get(t, receipt.NotificationID).MaxAttempts)

		receipt, err = env.engine.Notify(ctx, user, content.EventLike, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, env.get(t, receipt.NotificationID).MaxAttempts)
	})

	t.Run("extra data merges over the rendered payload", func(t *testing.T) {
		t.Parallel()

		env := newEngineEnv(t)
		user := uuid.New()
		env.online(t, user)

		_, err := env.engine.Notify(ctx, user, content.EventComment,
			map[string]string{"actor": "alice", "post_id": "42"},
			notifykit.WithData(map[string]string{
				"deep_link": "app://post/42",
				"actor":     "bob",
			}))
		require.NoError(t, err)

		calls := env.socket.calls()
		require.Len(t, calls, 1)
		// Rendering used the original params; the payload carries the merge.
		assert.Equal(t, "alice commented on your post", calls[0].Body)
		assert.Equal(t, map[string]string{
			"actor":     "bob",
			"post_id":   "42",
			"deep_link": "app://post/42",
			"event":     "comment",
		}, calls[0].Data)
	})

	t.Run("preferred provider goes first", func(t *testing.T) {
		t.Parallel()

		env := newEngineEnv(t)
		user := uuid.New()
		env.online(t, user)

		receipt, err := env.engine.Notify(ctx, user, content.EventLike, nil,
			notifykit.WithPreferredProvider("push"))
		require.NoError(t, err)

		n := env.get(t, receipt.NotificationID)
		require.NotNil(t, n.DeliveryProvider)
		assert.Equal(t, "push", *n.DeliveryProvider)
		assert.Empty(t, env.socket.calls())
	})

	t.Run("excluded providers are skipped", func(t *testing.T) {
		t.Parallel()

		env := newEngineEnv(t)
		user := uuid.New()
		env.online(t, user)

		receipt, err := env.engine.Notify(ctx, user, content.EventLike, nil,
			notifykit.WithExcludedProviders("socket"))
		require.NoError(t, err)

		n := env.get(t, receipt.NotificationID)
		require.NotNil(t, n.DeliveryProvider)
		assert.Equal(t, "push", *n.DeliveryProvider)
		assert.Empty(t, env.socket.calls())
	})

	t.Run("delivery failure is silent to the caller", func(t *testing.T) {
		t.Parallel()

		env := newEngineEnv(t)
		user := uuid.New()
		env.online(t, user)

		// Confirmation plus the only confirming provider excluded leaves no
		// eligible candidate; the attempt fails and the retry machinery owns
		// the notification.
		receipt, err := env.engine.Notify(ctx, user, content.EventLike, nil,
			notifykit.WithConfirmation(),
			notifykit.WithExcludedProviders("socket"))
		require.NoError(t, err)
		assert.True(t, receipt.Queued)

		n := env.get(t, receipt.NotificationID)
		assert.Equal(t, queue.StatusPending, n.Status)
		assert.Equal(t, 1, n.AttemptCount)
		require.NotNil(t, n.NextRetryAt)
		require.NotNil(t, n.LastError)
		assert.Contains(t, *n.LastError, "no eligible providers")
		assert.Empty(t, env.push.calls())
	})
}
