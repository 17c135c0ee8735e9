package keylock

import (
	"sync"
)

// KeyLock provides per-key mutual exclusion. It serializes reconciliation
// and state transitions racing on the same (user, category) pair and is
// safe for concurrent use.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an empty KeyLock.
func New() *KeyLock {
	return &KeyLock{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the mutex for key, creating it on first use.
func (k *KeyLock) Lock(key string) {
	k.mutexFor(key).Lock()
}

// Unlock releases the mutex for key. Unlocking a key that was never locked
// panics, matching sync.Mutex semantics.
func (k *KeyLock) Unlock(key string) {
	k.mutexFor(key).Unlock()
}

func (k *KeyLock) mutexFor(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}
