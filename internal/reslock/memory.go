package reslock

import (
	"context"
	"sync"
	"time"
)

type memoryLock struct {
	holder    string
	expiresAt time.Time
}

// MemoryManager is an in-process Manager with the same
// acquire-if-absent-or-expired semantics as the stored procedure. Used in
// tests and as a single-instance fallback.
type MemoryManager struct {
	mu    sync.Mutex
	locks map[Key]memoryLock
	now   func() time.Time
}

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{
		locks: make(map[Key]memoryLock),
		now:   time.Now,
	}
}

// NewMemoryManagerWithClock injects a clock for TTL tests.
func NewMemoryManagerWithClock(now func() time.Time) *MemoryManager {
	m := NewMemoryManager()
	m.now = now
	return m
}

func (m *MemoryManager) Acquire(_ context.Context, key Key, holder string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.locks[key]; ok && existing.expiresAt.After(m.now()) {
		return false, nil
	}

	m.locks[key] = memoryLock{
		holder:    holder,
		expiresAt: m.now().Add(ttl),
	}
	return true, nil
}

func (m *MemoryManager) Release(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.locks, key)
	return nil
}

// Held reports whether a live lock exists for the key.
func (m *MemoryManager) Held(key Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.locks[key]
	return ok && existing.expiresAt.After(m.now())
}
