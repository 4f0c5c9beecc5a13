// Package localstate holds the small amount of state a visitor's device keeps
// between runs: submit cooldown timestamps and the visitor fingerprint.
//
// Values are plain strings with no expiry and no versioning. Concurrent writers
// sharing one state file get last-writer-wins semantics.
package localstate

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by a store used after Close.
var ErrClosed = errors.New("local state closed")

// Store is durable client-local key/value storage.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}

// Memory is an in-process Store. Its contents do not survive the process.
type Memory struct {
	mu   sync.RWMutex
	vals map[string]string
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{vals: make(map[string]string)}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vals[key]
	return v, ok, nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = value
	return nil
}
