// Package limiter defines interfaces and implementations for login rate limiting.
package limiter

import (
	"context"
	"crypto/sha256"
	"sync"
	"time"
)

// Limiter controls login attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether login is currently allowed and optional retry-after.
	Allow(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful login.
	Success(ctx context.Context, username string, ipHash []byte) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error)
}

// HashIP returns a stable hash for an IP string to avoid storing raw addresses.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}

type memEntry struct {
	fails        int
	blockedUntil time.Time
	updatedAt    time.Time
}

// Memory is an in-process limiter used by tests and the server's
// in-memory mode. Same sliding-window/lockout semantics as PG.
type Memory struct {
	window   time.Duration
	maxFails int
	blockFor time.Duration

	mu    sync.Mutex
	state map[string]*memEntry
}

// NewMemory constructs an in-process limiter.
func NewMemory(window time.Duration, maxFails int, blockFor time.Duration) *Memory {
	return &Memory{window: window, maxFails: maxFails, blockFor: blockFor, state: make(map[string]*memEntry)}
}

func memKey(username string, ipHash []byte) string {
	return username + "\x00" + string(ipHash)
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (m *Memory) Allow(_ context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.state[memKey(username, ipHash)]
	if !ok {
		return true, 0, nil
	}
	now := time.Now()
	if e.blockedUntil.After(now) {
		return false, e.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Success resets counters for (username, ip).
func (m *Memory) Success(_ context.Context, username string, ipHash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, memKey(username, ipHash))
	return nil
}

// Failure records a failed attempt; may set a block until a future time.
func (m *Memory) Failure(_ context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	key := memKey(username, ipHash)
	e, ok := m.state[key]
	if !ok || now.Sub(e.updatedAt) > m.window {
		e = &memEntry{}
		m.state[key] = e
		e.fails = 0
	}
	e.fails++
	e.updatedAt = now
	if e.fails >= m.maxFails {
		e.blockedUntil = now.Add(m.blockFor)
		return true, m.blockFor, nil
	}
	return false, 0, nil
}
