package identity

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and local development.
// It mirrors the Postgres store's uniqueness and not-found behavior.
type MemoryStore struct {
	mutex sync.RWMutex
	users map[uuid.UUID]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[uuid.UUID]User),
	}
}

func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *MemoryStore) FindByID(ctx context.Context, id uuid.UUID) (User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) Create(ctx context.Context, user User) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username {
			return ErrDuplicateUsername
		}
	}
	s.users[user.ID] = user
	return nil
}

// Delete removes a user. Only the memory store offers this; tests use it to
// simulate an identity deleted after its sessions were created.
func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.users, id)
}
