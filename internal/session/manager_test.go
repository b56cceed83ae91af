package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasknest/auth-service/internal/cache"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(cache.NewMemoryService(logger), logger, 7*24*time.Hour)
}

func TestManager_GenerateToken(t *testing.T) {
	manager := newTestManager(t)

	first, err := manager.GenerateToken()
	require.NoError(t, err)
	assert.Len(t, first, 64)

	second, err := manager.GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestManager_StoreAndVerify(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	userID := uuid.New()

	token, err := manager.GenerateToken()
	require.NoError(t, err)
	require.NoError(t, manager.Store(ctx, token, userID, "alice"))

	sess, err := manager.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, sess.UserID)
	assert.Equal(t, "alice", sess.Username)
	assert.Equal(t, token, sess.Token)

	t.Run("unknown token", func(t *testing.T) {
		_, err := manager.Verify(ctx, "deadbeef")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestManager_Delete(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	userID := uuid.New()

	token, err := manager.GenerateToken()
	require.NoError(t, err)
	require.NoError(t, manager.Store(ctx, token, userID, "alice"))

	require.NoError(t, manager.Delete(ctx, token))

	_, err = manager.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	t.Run("deleting again is a no-op", func(t *testing.T) {
		assert.NoError(t, manager.Delete(ctx, token))
	})
}

func TestManager_Rotate(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	userID := uuid.New()

	oldToken, err := manager.GenerateToken()
	require.NoError(t, err)
	require.NoError(t, manager.Store(ctx, oldToken, userID, "alice"))

	newToken, err := manager.Rotate(ctx, oldToken, userID, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, oldToken, newToken)

	t.Run("old token is unusable", func(t *testing.T) {
		_, err := manager.Verify(ctx, oldToken)
		assert.ErrorIs(t, err, ErrSessionNotFound)

		_, err = manager.Rotate(ctx, oldToken, userID, "alice")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("new token verifies", func(t *testing.T) {
		sess, err := manager.Verify(ctx, newToken)
		require.NoError(t, err)
		assert.Equal(t, userID, sess.UserID)
	})
}

func TestManager_RevokeAll(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	// Three "devices" for alice, one for bob.
	var aliceTokens []string
	for range 3 {
		token, err := manager.GenerateToken()
		require.NoError(t, err)
		require.NoError(t, manager.Store(ctx, token, alice, "alice"))
		aliceTokens = append(aliceTokens, token)
	}

	bobToken, err := manager.GenerateToken()
	require.NoError(t, err)
	require.NoError(t, manager.Store(ctx, bobToken, bob, "bob"))

	require.NoError(t, manager.RevokeAll(ctx, alice))

	for _, token := range aliceTokens {
		_, err := manager.Verify(ctx, token)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	}

	t.Run("other identity unaffected", func(t *testing.T) {
		sess, err := manager.Verify(ctx, bobToken)
		require.NoError(t, err)
		assert.Equal(t, bob, sess.UserID)
	})

	t.Run("revoking with no sessions is a no-op", func(t *testing.T) {
		assert.NoError(t, manager.RevokeAll(ctx, alice))
	})
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "***", maskToken("short"))
	assert.Equal(t, "12345678***", maskToken("1234567890abcdef"))
}
