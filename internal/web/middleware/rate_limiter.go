package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter defines the interface for rate limiting implementations
type RateLimiter interface {
	// Allow checks if a request is allowed for the given key
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// GetRemaining returns the number of remaining requests for the key
	GetRemaining(ctx context.Context, key string, limit int, window time.Duration) (int, error)

	// Close releases limiter resources
	Close() error
}

// tokenBucket holds the per-key request budget
type tokenBucket struct {
	tokens   int
	capacity int
	refillAt time.Time
	window   time.Duration
	mutex    sync.Mutex
}

func newTokenBucket(capacity int, window time.Duration) *tokenBucket {
	return &tokenBucket{
		tokens:   capacity,
		capacity: capacity,
		refillAt: time.Now(),
		window:   window,
	}
}

// take attempts to take a token, refilling proportionally to elapsed time.
func (tb *tokenBucket) take() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

func (tb *tokenBucket) remaining() int {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	return tb.tokens
}

func (tb *tokenBucket) refill() {
	now := time.Now()

	if now.After(tb.refillAt.Add(tb.window)) {
		tb.tokens = tb.capacity
		tb.refillAt = now
		return
	}

	elapsed := now.Sub(tb.refillAt)
	tokensToAdd := int(elapsed.Nanoseconds() * int64(tb.capacity) / tb.window.Nanoseconds())
	if tokensToAdd > 0 {
		tb.tokens = min(tb.capacity, tb.tokens+tokensToAdd)
		tb.refillAt = now
	}
}

// InMemoryRateLimiter implements RateLimiter using in-memory token buckets
type InMemoryRateLimiter struct {
	buckets map[string]*tokenBucket
	mutex   sync.Mutex
	stop    chan struct{}
}

// NewInMemoryRateLimiter creates a rate limiter with a background cleanup
// goroutine; call Close to stop it.
func NewInMemoryRateLimiter() *InMemoryRateLimiter {
	rl := &InMemoryRateLimiter{
		buckets: make(map[string]*tokenBucket),
		stop:    make(chan struct{}),
	}

	go rl.janitor(5 * time.Minute)

	return rl
}

func (rl *InMemoryRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return rl.bucket(key, limit, window).take(), nil
}

func (rl *InMemoryRateLimiter) GetRemaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	rl.mutex.Lock()
	bucket, exists := rl.buckets[bucketKey(key, limit, window)]
	rl.mutex.Unlock()

	if !exists {
		return limit, nil
	}
	return bucket.remaining(), nil
}

func (rl *InMemoryRateLimiter) Close() error {
	close(rl.stop)
	return nil
}

func (rl *InMemoryRateLimiter) bucket(key string, limit int, window time.Duration) *tokenBucket {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	k := bucketKey(key, limit, window)
	bucket, exists := rl.buckets[k]
	if !exists {
		bucket = newTokenBucket(limit, window)
		rl.buckets[k] = bucket
	}
	return bucket
}

// janitor periodically drops buckets idle for more than two windows.
func (rl *InMemoryRateLimiter) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

func (rl *InMemoryRateLimiter) cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	for key, bucket := range rl.buckets {
		bucket.mutex.Lock()
		idle := now.Sub(bucket.refillAt) > bucket.window*2
		bucket.mutex.Unlock()

		if idle {
			delete(rl.buckets, key)
		}
	}
}

func bucketKey(key string, limit int, window time.Duration) string {
	return fmt.Sprintf("%s:%d:%s", key, limit, window)
}
