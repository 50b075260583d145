package store

import (
	"context"
	"fmt"
	"sync"
)

// InMemory keeps bindings in a map keyed by pseudonym cipher. For tests/dev.
type InMemory struct {
	mu   sync.RWMutex
	rows map[string]Binding
}

func NewInMemory() *InMemory {
	return &InMemory{rows: make(map[string]Binding)}
}

func (s *InMemory) Insert(_ context.Context, b Binding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[b.PseudonymCipher]; exists {
		return fmt.Errorf("pseudonym binding exists: %w", ErrConflict)
	}
	s.rows[b.PseudonymCipher] = b
	return nil
}

func (s *InMemory) FindByPseudonym(_ context.Context, pseudonymCipher string) (Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.rows[pseudonymCipher]; ok {
		return b, nil
	}
	return Binding{}, fmt.Errorf("pseudonym binding: %w", ErrNotFound)
}

func (s *InMemory) FindByAuthRowID(_ context.Context, authRowIDCipher string) (Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.rows {
		if b.AuthRowIDCipher == authRowIDCipher {
			return b, nil
		}
	}
	return Binding{}, fmt.Errorf("pseudonym binding by auth row: %w", ErrNotFound)
}

func (s *InMemory) Delete(_ context.Context, pseudonymCipher string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[pseudonymCipher]; !ok {
		return false, nil
	}
	delete(s.rows, pseudonymCipher)
	return true, nil
}

// Len reports the number of stored bindings. Test helper.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Dump returns every stored row. Test helper for asserting what actually
// landed on disk-equivalent storage.
func (s *InMemory) Dump() []Binding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Binding, 0, len(s.rows))
	for _, b := range s.rows {
		out = append(out, b)
	}
	return out
}
