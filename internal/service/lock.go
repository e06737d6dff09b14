package service

import "sync"

// keyedLocks serializes check-then-write sequences on a single aggregate
// (one team, one project) without blocking unrelated aggregates. Keys are
// "team:<id>" or "project:<id>". Locks are never released back to the map;
// the population is bounded by the number of live aggregates.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedLocks) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	return l
}

// Lock acquires the mutex for key and returns its unlock func.
func (k *keyedLocks) Lock(key string) func() {
	l := k.get(key)
	l.Lock()
	return l.Unlock
}
