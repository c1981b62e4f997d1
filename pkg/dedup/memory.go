package dedup

import (
	"context"
	"sync"
)

// Memory is a process-lifetime set of delivered ids. It grows
// monotonically, no eviction; a restart resets it, which may re-deliver
// items that were pending at the restart boundary.
type Memory struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{seen: make(map[string]struct{})}
}

// Seen reports whether the id was marked before
func (m *Memory) Seen(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.seen[id]
	return ok, nil
}

// Mark records the id as delivered
func (m *Memory) Mark(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[id] = struct{}{}
	return nil
}

// Close is a no-op for the in-memory store
func (m *Memory) Close() error { return nil }

// Len returns the number of marked ids
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seen)
}
