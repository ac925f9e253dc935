package device_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/device"
)

func TestMemoryStore_Register(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("registers new token", func(t *testing.T) {
		t.Parallel()

		store := device.NewMemoryStore()
		userID := uuid.New()

		tok, err := store.Register(ctx, userID, device.PlatformExpo, "ExponentPushToken[abc]")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, tok.ID)
		assert.Equal(t, userID, tok.UserID)
		assert.True(t, tok.Active)
	})

	t.Run("re-register moves token to new user", func(t *testing.T) {
		t.Parallel()

		store := device.NewMemoryStore()
		oldUser := uuid.New()
		newUser := uuid.New()

		first, err := store.Register(ctx, oldUser, device.PlatformFCM, "fcm-token-1")
		require.NoError(t, err)

		second, err := store.Register(ctx, newUser, device.PlatformFCM, "fcm-token-1")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, newUser, second.UserID)

		oldTokens, err := store.ActiveForUser(ctx, oldUser, device.PlatformFCM)
		require.NoError(t, err)
		assert.Empty(t, oldTokens)

		newTokens, err := store.ActiveForUser(ctx, newUser, device.PlatformFCM)
		require.NoError(t, err)
		require.Len(t, newTokens, 1)
	})

	t.Run("re-register reactivates dead token", func(t *testing.T) {
		t.Parallel()

		store := device.NewMemoryStore()
		userID := uuid.New()

		_, err := store.Register(ctx, userID, device.PlatformExpo, "tok")
		require.NoError(t, err)
		require.NoError(t, store.Deactivate(ctx, device.PlatformExpo, "tok"))

		tokens, err := store.ActiveForUser(ctx, userID, device.PlatformExpo)
		require.NoError(t, err)
		assert.Empty(t, tokens)

		_, err = store.Register(ctx, userID, device.PlatformExpo, "tok")
		require.NoError(t, err)

		tokens, err = store.ActiveForUser(ctx, userID, device.PlatformExpo)
		require.NoError(t, err)
		assert.Len(t, tokens, 1)
	})

	t.Run("rejects empty token", func(t *testing.T) {
		t.Parallel()

		store := device.NewMemoryStore()
		_, err := store.Register(ctx, uuid.New(), device.PlatformExpo, "   ")
		assert.ErrorIs(t, err, device.ErrEmptyToken)
	})

	t.Run("rejects unknown platform", func(t *testing.T) {
		t.Parallel()

		store := device.NewMemoryStore()
		_, err := store.Register(ctx, uuid.New(), device.Platform("pager"), "tok")
		assert.ErrorIs(t, err, device.ErrInvalidPlatform)
	})
}

func TestMemoryStore_ActiveForUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("filters by platform and active flag", func(t *testing.T) {
		t.Parallel()

		store := device.NewMemoryStore()
		userID := uuid.New()

		_, err := store.Register(ctx, userID, device.PlatformExpo, "expo-1")
		require.NoError(t, err)
		_, err = store.Register(ctx, userID, device.PlatformExpo, "expo-2")
		require.NoError(t, err)
		_, err = store.Register(ctx, userID, device.PlatformFCM, "fcm-1")
		require.NoError(t, err)
		require.NoError(t, store.Deactivate(ctx, device.PlatformExpo, "expo-2"))

		expo, err := store.ActiveForUser(ctx, userID, device.PlatformExpo)
		require.NoError(t, err)
		require.Len(t, expo, 1)
		assert.Equal(t, "expo-1", expo[0].Token)

		fcm, err := store.ActiveForUser(ctx, userID, device.PlatformFCM)
		require.NoError(t, err)
		require.Len(t, fcm, 1)
	})

	t.Run("unknown user returns empty", func(t *testing.T) {
		t.Parallel()

		store := device.NewMemoryStore()
		tokens, err := store.ActiveForUser(ctx, uuid.New(), device.PlatformExpo)
		require.NoError(t, err)
		assert.Empty(t, tokens)
	})
}

func TestMemoryStore_DeactivateRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("deactivate unknown token", func(t *testing.T) {
		t.Parallel()

		store := device.NewMemoryStore()
		err := store.Deactivate(ctx, device.PlatformExpo, "missing")
		assert.ErrorIs(t, err, device.ErrTokenNotFound)
	})

	t.Run("remove deletes token", func(t *testing.T) {
		t.Parallel()

		store := device.NewMemoryStore()
		userID := uuid.New()

		_, err := store.Register(ctx, userID, device.PlatformExpo, "tok")
		require.NoError(t, err)
		require.NoError(t, store.Remove(ctx, device.PlatformExpo, "tok"))

		err = store.Remove(ctx, device.PlatformExpo, "tok")
		assert.ErrorIs(t, err, device.ErrTokenNotFound)

		tokens, err := store.ActiveForUser(ctx, userID, device.PlatformExpo)
		require.NoError(t, err)
		assert.Empty(t, tokens)
	})
}
