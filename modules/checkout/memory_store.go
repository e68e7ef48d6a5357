package checkout

import (
	"context"
	"sync"
)

// MemoryRecoveryStore implements RecoveryStore in process memory for
// tests and local development. Entries never expire on their own; the
// validity windows are enforced by RecoveryState itself.
type MemoryRecoveryStore struct {
	mu        sync.RWMutex
	states    map[string]RecoveryState
	completed map[string]string // scope -> reported status
}

// NewMemoryRecoveryStore creates an empty in-memory recovery store.
func NewMemoryRecoveryStore() *MemoryRecoveryStore {
	return &MemoryRecoveryStore{
		states:    make(map[string]RecoveryState),
		completed: make(map[string]string),
	}
}

func (s *MemoryRecoveryStore) Save(_ context.Context, scope string, state RecoveryState) error {
	if scope == "" {
		return ErrInvalidScope
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state.SchemaVersion = RecoverySchemaVersion
	s.states[scope] = state
	return nil
}

func (s *MemoryRecoveryStore) Load(_ context.Context, scope string) (*RecoveryState, error) {
	if scope == "" {
		return nil, ErrInvalidScope
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[scope]
	if !ok || state.SchemaVersion != RecoverySchemaVersion {
		return nil, ErrStateNotFound
	}
	cp := state
	return &cp, nil
}

func (s *MemoryRecoveryStore) Clear(_ context.Context, scope string) error {
	if scope == "" {
		return ErrInvalidScope
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, scope)
	delete(s.completed, scope)
	return nil
}

func (s *MemoryRecoveryStore) ClearState(_ context.Context, scope string) error {
	if scope == "" {
		return ErrInvalidScope
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, scope)
	return nil
}

func (s *MemoryRecoveryStore) MarkCompleted(_ context.Context, scope, status string) (bool, error) {
	if scope == "" {
		return false, ErrInvalidScope
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.completed[scope]; done {
		return false, nil
	}
	s.completed[scope] = status
	return true, nil
}

func (s *MemoryRecoveryStore) Completed(_ context.Context, scope string) (string, bool, error) {
	if scope == "" {
		return "", false, ErrInvalidScope
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	status, done := s.completed[scope]
	return status, done, nil
}

// Seed stores a state without normalizing its schema version. Intended
// for tests that need to plant stale or mismatched blobs.
func (s *MemoryRecoveryStore) Seed(scope string, state RecoveryState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[scope] = state
}
