package auth

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"veil/internal/user/models"
	"veil/pkg/domain"
)

// InMemory keeps auth rows in memory. For tests/dev.
type InMemory struct {
	mu     sync.RWMutex
	nextID domain.AuthRowID
	rows   map[domain.AuthRowID]models.AuthRecord
}

func NewInMemory() *InMemory {
	return &InMemory{nextID: 1, rows: make(map[domain.AuthRowID]models.AuthRecord)}
}

func (s *InMemory) Insert(_ context.Context, rec models.AuthRecord) (domain.AuthRowID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rows {
		if existing.Username == rec.Username {
			return 0, ErrUsernameTaken
		}
	}
	rec.ID = s.nextID
	s.nextID++
	s.rows[rec.ID] = rec
	return rec.ID, nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.AuthRowID) (models.AuthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.rows[id]; ok {
		return rec, nil
	}
	return models.AuthRecord{}, fmt.Errorf("auth row %d: %w", id, ErrNotFound)
}

func (s *InMemory) List(_ context.Context) ([]models.AuthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AuthRecord, 0, len(s.rows))
	for _, rec := range s.rows {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, id domain.AuthRowID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return false, nil
	}
	delete(s.rows, id)
	return true, nil
}

// Len reports stored row count. Test helper.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
