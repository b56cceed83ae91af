package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("identity not found")
	ErrDuplicateUsername = errors.New("username already exists")
)

// Store is the credential store contract. Usernames are unique; lookups are
// case-sensitive exact matches.
type Store interface {
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByID(ctx context.Context, id uuid.UUID) (User, error)
	Create(ctx context.Context, user User) error
}
