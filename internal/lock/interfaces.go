// Package lock provides distributed and local locking abstractions.
// For single-node deployments, memory-based locks are used.
// For distributed deployments, Redis-based locks can be used.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Locker defines the interface for distributed/local locking.
// This abstraction allows switching between in-memory locks (single-node)
// and Redis-based locks (distributed) without changing business logic.
type Locker interface {
	// Acquire attempts to acquire a lock.
	// Returns true if the lock was acquired, false if it's held by another process.
	// The lock will automatically expire after the specified TTL.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// AcquireWithRetry attempts to acquire a lock with retries.
	// Will retry up to maxRetries times with retryDelay between attempts.
	AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error)

	// Release releases a lock.
	// Returns true if the lock was released, false if it wasn't held.
	Release(ctx context.Context, key string) (bool, error)
}

// ErrNotAcquired is returned by WithLock when the lock stays held by someone else.
var ErrNotAcquired = errors.New("lock not acquired")

// RetryPolicy controls how WithLock waits for a busy lock.
type RetryPolicy struct {
	TTL        time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultRetryPolicy suits short check-then-write critical sections.
var DefaultRetryPolicy = RetryPolicy{
	TTL:        10 * time.Second,
	MaxRetries: 50,
	RetryDelay: 20 * time.Millisecond,
}

// WithLock runs fn while holding key. The lock is released when fn returns.
func WithLock(ctx context.Context, locker Locker, key string, policy RetryPolicy, fn func(ctx context.Context) error) error {
	acquired, err := locker.AcquireWithRetry(ctx, key, policy.TTL, policy.MaxRetries, policy.RetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !acquired {
		return fmt.Errorf("%w: %s", ErrNotAcquired, key)
	}

	defer func() {
		// Release with a fresh context so a cancelled request still frees the key.
		_, _ = locker.Release(context.WithoutCancel(ctx), key)
	}()

	return fn(ctx)
}

// =============================================================================
// Common Lock Keys
// =============================================================================

// Keys provides lock key generation for common scenarios.
var Keys = lockKeys{}

type lockKeys struct{}

// Username returns a lock key guarding the check-then-write of a user name.
func (lockKeys) Username(name string) string {
	return "lock:username:" + name
}

// Bootstrap returns a lock key guarding creation of the bootstrap administrator.
func (lockKeys) Bootstrap() string {
	return "lock:bootstrap:admin"
}
