package main

import (
	"context"
	"sync"
)

// KVStore is the persistent key-value collaborator holding the leaderboard.
type KVStore interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set overwrites the value for key.
	Set(ctx context.Context, key string, value []byte) error

	Close() error
}

// memoryKV keeps values for the lifetime of the process.
type memoryKV struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryKV returns a KVStore that does not survive a restart.
func NewMemoryKV() KVStore {
	return &memoryKV{values: make(map[string][]byte)}
}

func (m *memoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *memoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.values[key] = append([]byte(nil), value...)
	m.mu.Unlock()
	return nil
}

func (m *memoryKV) Close() error { return nil }
