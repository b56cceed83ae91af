// Package cache is the single Redis touchpoint of the service. The session
// manager persists refresh sessions through it, and DeletePattern implements
// the coarse invalidate-on-write pattern used by downstream listing caches.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tasknest/auth-service/internal/config"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = fmt.Errorf("cache miss")

// Service provides key-value and set operations over Redis
type Service struct {
	client clientInterface
	logger *slog.Logger
	prefix string
}

// clientInterface abstracts the Redis operations we actually use
type clientInterface interface {
	set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	get(ctx context.Context, key string) ([]byte, error)
	getDel(ctx context.Context, key string) ([]byte, error)
	del(ctx context.Context, keys ...string) error
	sAdd(ctx context.Context, key, member string, ttl time.Duration) error
	sRem(ctx context.Context, key, member string) error
	sMembers(ctx context.Context, key string) ([]string, error)
	deletePattern(ctx context.Context, pattern string) error
	ping(ctx context.Context) error
}

// NewService connects to Redis and verifies the connection
func NewService(cfg config.Redis, logger *slog.Logger) (*Service, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", "error", err, "addr", cfg.Addr)
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	logger.Info("Connected to Redis", "addr", cfg.Addr, "db", cfg.DB)

	return &Service{
		client: &redisClientWrapper{client: redisClient},
		logger: logger,
		prefix: cfg.KeyPrefix,
	}, nil
}

// NewMemoryService returns a Service backed by an in-process client. It is
// the injected test double and a fallback for local development without
// Redis; entries honor their TTLs but do not survive a restart.
func NewMemoryService(logger *slog.Logger) *Service {
	return &Service{
		client: newMemoryClient(),
		logger: logger,
		prefix: "test:",
	}
}

// buildKey creates a prefixed key
func (s *Service) buildKey(key string) string {
	return s.prefix + key
}

// Set stores a JSON-encoded value with an expiration
func (s *Service) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	if err := s.client.set(ctx, s.buildKey(key), data, ttl); err != nil {
		s.logger.Warn("Cache set failed", "key", key, "error", err)
		return err
	}

	return nil
}

// Get retrieves a JSON-encoded value. Returns ErrCacheMiss when absent.
func (s *Service) Get(ctx context.Context, key string, dest any) error {
	val, err := s.client.get(ctx, s.buildKey(key))
	if err != nil {
		if err == ErrCacheMiss {
			return ErrCacheMiss
		}
		s.logger.Warn("Cache get failed", "key", key, "error", err)
		return err
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return nil
}

// GetDel atomically retrieves and deletes a value. At most one concurrent
// caller observes the value; every other caller gets ErrCacheMiss.
func (s *Service) GetDel(ctx context.Context, key string, dest any) error {
	val, err := s.client.getDel(ctx, s.buildKey(key))
	if err != nil {
		if err == ErrCacheMiss {
			return ErrCacheMiss
		}
		s.logger.Warn("Cache getdel failed", "key", key, "error", err)
		return err
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return nil
}

// Delete removes keys. Deleting absent keys is not an error.
func (s *Service) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = s.buildKey(key)
	}

	if err := s.client.del(ctx, prefixed...); err != nil {
		s.logger.Warn("Cache delete failed", "keys", len(keys), "error", err)
		return err
	}

	return nil
}

// AddToSet adds a member to a set and refreshes the set's expiry
func (s *Service) AddToSet(ctx context.Context, key, member string, ttl time.Duration) error {
	if err := s.client.sAdd(ctx, s.buildKey(key), member, ttl); err != nil {
		s.logger.Warn("Cache set add failed", "key", key, "error", err)
		return err
	}

	return nil
}

// RemoveFromSet removes a member from a set; absent members are a no-op
func (s *Service) RemoveFromSet(ctx context.Context, key, member string) error {
	if err := s.client.sRem(ctx, s.buildKey(key), member); err != nil {
		s.logger.Warn("Cache set remove failed", "key", key, "error", err)
		return err
	}

	return nil
}

// SetMembers returns all members of a set; an absent set yields an empty slice
func (s *Service) SetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.sMembers(ctx, s.buildKey(key))
	if err != nil {
		s.logger.Warn("Cache set members failed", "key", key, "error", err)
		return nil, err
	}

	return members, nil
}

// DeletePattern removes every key matching the pattern. This is the coarse
// invalidation primitive: any write under a prefix clears all cached pages
// and filters under it.
func (s *Service) DeletePattern(ctx context.Context, pattern string) error {
	if err := s.client.deletePattern(ctx, s.buildKey(pattern)); err != nil {
		s.logger.Warn("Cache delete pattern failed", "pattern", pattern, "error", err)
		return err
	}

	return nil
}

// Health checks connectivity to the backing store
func (s *Service) Health(ctx context.Context) error {
	return s.client.ping(ctx)
}

// Close closes the underlying client
func (s *Service) Close() error {
	if wrapper, ok := s.client.(*redisClientWrapper); ok {
		return wrapper.close()
	}
	return nil
}

// redisClientWrapper wraps redis.Client to implement our interface
type redisClientWrapper struct {
	client *redis.Client
}

func (r *redisClientWrapper) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisClientWrapper) get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return []byte(val), nil
}

func (r *redisClientWrapper) getDel(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.GetDel(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return []byte(val), nil
}

func (r *redisClientWrapper) del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *redisClientWrapper) sAdd(ctx context.Context, key, member string, ttl time.Duration) error {
	pipeline := r.client.Pipeline()
	pipeline.SAdd(ctx, key, member)
	pipeline.Expire(ctx, key, ttl)

	_, err := pipeline.Exec(ctx)
	return err
}

func (r *redisClientWrapper) sRem(ctx context.Context, key, member string) error {
	return r.client.SRem(ctx, key, member).Err()
}

func (r *redisClientWrapper) sMembers(ctx context.Context, key string) ([]string, error) {
	return r.client.SMembers(ctx, key).Result()
}

func (r *redisClientWrapper) deletePattern(ctx context.Context, pattern string) error {
	// SCAN instead of KEYS so a large keyspace never blocks the shared
	// connection.
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}

		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (r *redisClientWrapper) ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisClientWrapper) close() error {
	return r.client.Close()
}
