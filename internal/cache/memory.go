package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// memoryClient is a TTL-aware in-process clientInterface implementation.
type memoryClient struct {
	mutex   sync.Mutex
	entries map[string]memoryEntry
	sets    map[string]memorySet
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

type memorySet struct {
	members   map[string]struct{}
	expiresAt time.Time
}

func newMemoryClient() *memoryClient {
	return &memoryClient{
		entries: make(map[string]memoryEntry),
		sets:    make(map[string]memorySet),
	}
}

func (m *memoryClient) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.entries[key] = memoryEntry{
		data:      append([]byte(nil), value...),
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (m *memoryClient) get(ctx context.Context, key string) ([]byte, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	entry, ok := m.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, ErrCacheMiss
	}
	return entry.data, nil
}

func (m *memoryClient) getDel(ctx context.Context, key string) ([]byte, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	entry, ok := m.entries[key]
	delete(m.entries, key)
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrCacheMiss
	}
	return entry.data, nil
}

func (m *memoryClient) del(ctx context.Context, keys ...string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, key := range keys {
		delete(m.entries, key)
		delete(m.sets, key)
	}
	return nil
}

func (m *memoryClient) sAdd(ctx context.Context, key, member string, ttl time.Duration) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	set, ok := m.sets[key]
	if !ok || time.Now().After(set.expiresAt) {
		set = memorySet{members: make(map[string]struct{})}
	}
	set.members[member] = struct{}{}
	set.expiresAt = time.Now().Add(ttl)
	m.sets[key] = set
	return nil
}

func (m *memoryClient) sRem(ctx context.Context, key, member string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if set, ok := m.sets[key]; ok {
		delete(set.members, member)
	}
	return nil
}

func (m *memoryClient) sMembers(ctx context.Context, key string) ([]string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	set, ok := m.sets[key]
	if !ok || time.Now().After(set.expiresAt) {
		delete(m.sets, key)
		return nil, nil
	}

	members := make([]string, 0, len(set.members))
	for member := range set.members {
		members = append(members, member)
	}
	return members, nil
}

// deletePattern supports the trailing-* glob shape the service uses.
func (m *memoryClient) deletePattern(ctx context.Context, pattern string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	for key := range m.sets {
		if strings.HasPrefix(key, prefix) {
			delete(m.sets, key)
		}
	}
	return nil
}

func (m *memoryClient) ping(ctx context.Context) error {
	return nil
}
