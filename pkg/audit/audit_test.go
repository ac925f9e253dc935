package audit_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/audit"
)

func TestConstructors(t *testing.T) {
	t.Parallel()

	t.Run("delivered", func(t *testing.T) {
		t.Parallel()

		notificationID := uuid.New()
		userID := uuid.New()

		event := audit.Delivered(notificationID, userID, "comment", "fcm", 42*time.Millisecond)

		require.NoError(t, event.Validate())
		assert.NotEqual(t, uuid.Nil, event.ID)
		assert.Equal(t, notificationID, event.NotificationID)
		assert.Equal(t, userID, event.UserID)
		assert.Equal(t, "comment", event.NotificationType)
		assert.Equal(t, "fcm", event.Provider)
		assert.Equal(t, audit.ResultDelivered, event.Result)
		assert.Equal(t, int64(42), event.LatencyMS)
		assert.Empty(t, event.Reason)
		assert.Empty(t, event.Error)
		assert.False(t, event.CreatedAt.IsZero())
	})

	t.Run("failed carries the cause", func(t *testing.T) {
		t.Parallel()

		event := audit.Failed(uuid.New(), uuid.New(), "comment", "expo", 150*time.Millisecond, errors.New("gateway timeout"))

		require.NoError(t, event.Validate())
		assert.Equal(t, audit.ResultFailed, event.Result)
		assert.Equal(t, "gateway timeout", event.Error)
		assert.Equal(t, int64(150), event.LatencyMS)
	})

	t.Run("failed tolerates nil cause", func(t *testing.T) {
		t.Parallel()

		event := audit.Failed(uuid.New(), uuid.New(), "comment", "expo", time.Millisecond, nil)

		require.NoError(t, event.Validate())
		assert.Empty(t, event.Error)
	})

	t.Run("blocked has no notification or provider", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()

		event := audit.Blocked(userID, "marketing", "type_disabled")

		require.NoError(t, event.Validate())
		assert.Equal(t, uuid.Nil, event.NotificationID)
		assert.Equal(t, userID, event.UserID)
		assert.Equal(t, audit.ResultBlocked, event.Result)
		assert.Equal(t, "type_disabled", event.Reason)
		assert.Empty(t, event.Provider)
		assert.Zero(t, event.LatencyMS)
	})
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	valid := audit.Delivered(uuid.New(), uuid.New(), "comment", "socket", time.Millisecond)

	t.Run("missing user", func(t *testing.T) {
		t.Parallel()

		event := valid
		event.UserID = uuid.Nil
		assert.ErrorIs(t, event.Validate(), audit.ErrInvalidEvent)
	})

	t.Run("missing type", func(t *testing.T) {
		t.Parallel()

		event := valid
		event.NotificationType = ""
		assert.ErrorIs(t, event.Validate(), audit.ErrInvalidEvent)
	})

	t.Run("unknown result", func(t *testing.T) {
		t.Parallel()

		event := valid
		event.Result = "queued"
		assert.ErrorIs(t, event.Validate(), audit.ErrInvalidEvent)
	})
}

func TestResultValid(t *testing.T) {
	t.Parallel()

	assert.True(t, audit.ResultDelivered.Valid())
	assert.True(t, audit.ResultFailed.Valid())
	assert.True(t, audit.ResultBlocked.Valid())
	assert.False(t, audit.Result("").Valid())
	assert.False(t, audit.Result("pending").Valid())
}
