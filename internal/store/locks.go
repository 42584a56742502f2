package store

import "sync"

// userLocks hands out a mutex per key so operations on the same
// conversation are serialized without blocking unrelated ones.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

func (u *userLocks) lock(key string) (unlock func()) {
	u.mu.Lock()
	m, ok := u.locks[key]
	if !ok {
		m = &sync.Mutex{}
		u.locks[key] = m
	}
	u.mu.Unlock()

	m.Lock()
	return m.Unlock
}
