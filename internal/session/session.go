// Package session owns the refresh-session lifecycle. Sessions live in the
// key-value store under their token value; nothing else writes those keys.
package session

import (
	"errors"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when a presented refresh token is unknown,
// already rotated, or expired. The cases are deliberately indistinguishable.
var ErrSessionNotFound = errors.New("refresh session not found or expired")

// Session is the stored refresh-session payload. The token itself is the
// storage key and is never persisted inside the value.
type Session struct {
	Token    string    `json:"-"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

// maskToken masks a token for logging (shows only first 8 characters)
func maskToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "***"
}
