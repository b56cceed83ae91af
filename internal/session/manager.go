package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/auth-service/internal/cache"
	"github.com/tasknest/auth-service/internal/util"
)

const (
	// tokenBytes gives 64 hex characters per refresh token; collisions are
	// treated as unreachable at this entropy.
	tokenBytes = 32

	sessionKeyPrefix = "refresh_token:"
	indexKeyPrefix   = "user_sessions:"
)

// Manager owns refresh-token generation, persistence, rotation and
// revocation. A secondary index (user id -> set of active tokens) is
// maintained alongside every write so bulk revocation never scans the
// keyspace.
type Manager struct {
	cache  *cache.Service
	logger *slog.Logger
	ttl    time.Duration
}

func NewManager(cacheService *cache.Service, logger *slog.Logger, ttl time.Duration) *Manager {
	return &Manager{
		cache:  cacheService,
		logger: logger,
		ttl:    ttl,
	}
}

// GenerateToken produces a new opaque refresh token.
func (m *Manager) GenerateToken() (string, error) {
	token, err := util.GenerateRandomString(tokenBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return token, nil
}

// Store persists a refresh session under its token with the configured TTL
// and records the token in the owner's index set. The store's expiry is
// authoritative; there is no sweeper.
func (m *Manager) Store(ctx context.Context, token string, userID uuid.UUID, username string) error {
	sess := Session{
		UserID:   userID,
		Username: username,
	}

	if err := m.cache.Set(ctx, sessionKey(token), sess, m.ttl); err != nil {
		return fmt.Errorf("failed to store refresh session: %w", err)
	}

	if err := m.cache.AddToSet(ctx, indexKey(userID), token, m.ttl); err != nil {
		return fmt.Errorf("failed to index refresh session: %w", err)
	}

	m.logger.Debug("Refresh session stored", "token", maskToken(token), "user_id", userID)
	return nil
}

// Verify looks up a refresh token without mutating state. A store failure is
// surfaced as an error, never as an absent session.
func (m *Manager) Verify(ctx context.Context, token string) (Session, error) {
	var sess Session
	if err := m.cache.Get(ctx, sessionKey(token), &sess); err != nil {
		if err == cache.ErrCacheMiss {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("failed to look up refresh session: %w", err)
	}

	sess.Token = token
	return sess, nil
}

// Delete removes a refresh session and its index entry. Deleting an absent
// token is not an error.
func (m *Manager) Delete(ctx context.Context, token string) error {
	var sess Session
	err := m.cache.GetDel(ctx, sessionKey(token), &sess)
	if err != nil {
		if err == cache.ErrCacheMiss {
			return nil
		}
		return fmt.Errorf("failed to delete refresh session: %w", err)
	}

	if err := m.cache.RemoveFromSet(ctx, indexKey(sess.UserID), token); err != nil {
		return fmt.Errorf("failed to unindex refresh session: %w", err)
	}

	m.logger.Debug("Refresh session deleted", "token", maskToken(token), "user_id", sess.UserID)
	return nil
}

// Rotate atomically consumes oldToken and issues a replacement bound to the
// same identity with a fresh TTL window. The atomic read-and-delete makes
// rotation single-use: of two concurrent rotations presenting the same
// token, exactly one succeeds and the other gets ErrSessionNotFound.
func (m *Manager) Rotate(ctx context.Context, oldToken string, userID uuid.UUID, username string) (string, error) {
	var old Session
	err := m.cache.GetDel(ctx, sessionKey(oldToken), &old)
	if err != nil {
		if err == cache.ErrCacheMiss {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("failed to consume refresh session: %w", err)
	}

	if err := m.cache.RemoveFromSet(ctx, indexKey(old.UserID), oldToken); err != nil {
		return "", fmt.Errorf("failed to unindex rotated session: %w", err)
	}

	newToken, err := m.GenerateToken()
	if err != nil {
		return "", err
	}

	if err := m.Store(ctx, newToken, userID, username); err != nil {
		return "", err
	}

	m.logger.Debug("Refresh session rotated",
		"old_token", maskToken(oldToken),
		"new_token", maskToken(newToken),
		"user_id", userID)
	return newToken, nil
}

// RevokeAll removes every refresh session belonging to the identity using
// the secondary index, so the cost is proportional to the identity's own
// session count.
func (m *Manager) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	tokens, err := m.cache.SetMembers(ctx, indexKey(userID))
	if err != nil {
		return fmt.Errorf("failed to list refresh sessions: %w", err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, sessionKey(token))
	}
	keys = append(keys, indexKey(userID))

	if err := m.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to revoke refresh sessions: %w", err)
	}

	m.logger.Info("All refresh sessions revoked", "user_id", userID, "count", len(tokens))
	return nil
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

func indexKey(userID uuid.UUID) string {
	return indexKeyPrefix + userID.String()
}
