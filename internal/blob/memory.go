package blob

import (
	"context"
	"sync"
)

// Memory keeps blobs in a map. Nothing survives the process.
type Memory struct {
	mu     sync.RWMutex
	blobs  map[string]string
	writes int
}

func NewMemory() *Memory {
	return &Memory{blobs: map[string]string{}}
}

func (m *Memory) ReadBlob(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.blobs[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) WriteBlob(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = value
	m.writes++
	return nil
}

// Writes reports how many WriteBlob calls succeeded.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *Memory) Close() error { return nil }
