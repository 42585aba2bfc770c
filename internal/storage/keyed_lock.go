package storage

import (
	"context"
	"sync"
)

// KeyedLocker is an in-process Locker backed by one mutex per key. Entries
// are reference-counted and removed once no goroutine holds or waits on them.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Compile-time assertion: *KeyedLocker implements Locker.
var _ Locker = (*KeyedLocker)(nil)

// NewKeyedLocker creates an empty keyed locker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*lockEntry)}
}

// WithLock runs fn while holding the mutex for key.
func (kl *KeyedLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	entry := kl.acquire(key)

	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		kl.release(key, entry)
	}()

	return fn(ctx)
}

func (kl *KeyedLocker) acquire(key string) *lockEntry {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	entry, ok := kl.locks[key]
	if !ok {
		entry = &lockEntry{}
		kl.locks[key] = entry
	}

	entry.refs++

	return entry
}

func (kl *KeyedLocker) release(key string, entry *lockEntry) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(kl.locks, key)
	}
}
