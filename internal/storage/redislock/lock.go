// Package redislock provides a distributed storage.Locker backed by Redis
// and the RedLock algorithm, for deployments running more than one platform
// instance against the same aggregates.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anil-trigital/GST/internal/storage"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNilClient is returned when a nil redis client is provided.
	ErrNilClient = errors.New("redis client is nil")
	// ErrEmptyKey is returned when an empty lock key is provided.
	ErrEmptyKey = errors.New("lock key cannot be empty")
)

const (
	defaultExpiry     = 10 * time.Second
	defaultTries      = 32
	defaultRetryDelay = 50 * time.Millisecond
)

// Manager serializes critical sections across instances using redsync.
type Manager struct {
	rs         *redsync.Redsync
	expiry     time.Duration
	tries      int
	retryDelay time.Duration
}

// Compile-time assertion: *Manager implements storage.Locker.
var _ storage.Locker = (*Manager)(nil)

// NewManager creates a lock manager over an established redis client.
func NewManager(client redis.UniversalClient) (*Manager, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	return &Manager{
		rs:         redsync.New(goredis.NewPool(client)),
		expiry:     defaultExpiry,
		tries:      defaultTries,
		retryDelay: defaultRetryDelay,
	}, nil
}

// WithLock acquires the distributed mutex for key, runs fn, and releases it.
// The lock auto-expires to avoid deadlocks if the holder crashes.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if key == "" {
		return ErrEmptyKey
	}

	mutex := m.rs.NewMutex(key,
		redsync.WithExpiry(m.expiry),
		redsync.WithTries(m.tries),
		redsync.WithRetryDelay(m.retryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("failed to acquire lock %q: %w", key, err)
	}

	defer func() {
		// An expired lock at unlock time must not mask fn's result.
		_, _ = mutex.UnlockContext(ctx)
	}()

	return fn(ctx)
}
