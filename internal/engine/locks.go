package engine

import (
	"sync"

	"github.com/gofrs/uuid/v5"
)

// roomLocks serializes mutations per room id. Reads never take these locks;
// they run with unlimited concurrency against the cache snapshot.
type roomLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// acquire locks the mutex for id and returns its release func.
func (l *roomLocks) acquire(id uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
