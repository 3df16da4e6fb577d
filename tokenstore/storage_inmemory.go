package tokenstore

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryStorage is an in-memory implementation of Storage. Entries are lost when
// the process exits.
type InMemoryStorage struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewInMemoryStorage creates an empty in-memory storage
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		entries: make(map[string]string),
	}
}

// Get retrieves the value stored under key
func (s *InMemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, fmt.Errorf("key is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[key]
	return value, ok, nil
}

// Set creates or replaces the value stored under key
func (s *InMemoryStorage) Set(_ context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = value
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *InMemoryStorage) Remove(_ context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Len returns the number of stored entries
func (s *InMemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
