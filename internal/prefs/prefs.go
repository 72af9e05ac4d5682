// Package prefs holds user preferences behind a small key-value interface so
// the session logic can run against the durable store or an in-memory map.
package prefs

import (
	"context"
	"sync"
)

// Store is a string key-value preference store.
type Store interface {
	// LoadPreference returns the stored value and whether it exists.
	LoadPreference(ctx context.Context, key string) (string, bool, error)
	SavePreference(ctx context.Context, key, value string) error
	DeletePreference(ctx context.Context, key string) error
}

// Memory is an in-process Store.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) LoadPreference(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) SavePreference(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}

func (m *Memory) DeletePreference(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
