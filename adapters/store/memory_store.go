// Package store provides SessionStore implementations: in-memory for
// tests, file-backed for a single workstation, redis for shared deployments.
package store

import (
	"context"
	"sync"

	"github.com/liberianpost/healthgate/ports"
)

// MemoryStore is an in-memory SessionStore, primarily for tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Set stores a key.
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// Get retrieves a value by key.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	if !ok {
		return "", &ports.KeyNotFoundError{Key: key}
	}
	return value, nil
}

// Delete removes a key; absent keys are ignored.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Clear removes every session key. The push token stays: it belongs to
// the device, not the session.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range ports.SessionKeys() {
		delete(s.data, key)
	}
	return nil
}
