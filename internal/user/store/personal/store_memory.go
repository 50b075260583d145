package personal

import (
	"context"
	"fmt"
	"sync"

	"veil/internal/user/models"
	"veil/pkg/domain"
)

// InMemory mirrors the Postgres store's uniqueness behaviour over the two
// blind-index columns. For tests/dev.
type InMemory struct {
	mu     sync.RWMutex
	nextID domain.PersonalRowID
	rows   map[domain.PersonalRowID]models.PersonalDataRecord
}

func NewInMemory() *InMemory {
	return &InMemory{nextID: 1, rows: make(map[domain.PersonalRowID]models.PersonalDataRecord)}
}

func (s *InMemory) Insert(_ context.Context, rec models.PersonalDataRecord) (domain.PersonalRowID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUnique(rec, 0); err != nil {
		return 0, err
	}
	rec.ID = s.nextID
	s.nextID++
	s.rows[rec.ID] = rec
	return rec.ID, nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.PersonalRowID) (models.PersonalDataRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.rows[id]; ok {
		return rec, nil
	}
	return models.PersonalDataRecord{}, fmt.Errorf("personal data row %d: %w", id, ErrNotFound)
}

func (s *InMemory) Update(_ context.Context, rec models.PersonalDataRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[rec.ID]; !ok {
		return fmt.Errorf("personal data row %d: %w", rec.ID, ErrNotFound)
	}
	if err := s.checkUnique(rec, rec.ID); err != nil {
		return err
	}
	s.rows[rec.ID] = rec
	return nil
}

func (s *InMemory) Delete(_ context.Context, id domain.PersonalRowID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return false, nil
	}
	delete(s.rows, id)
	return true, nil
}

// checkUnique enforces what the blind-index unique constraints enforce in
// Postgres. self is excluded so updates can keep their own values.
func (s *InMemory) checkUnique(rec models.PersonalDataRecord, self domain.PersonalRowID) error {
	for id, existing := range s.rows {
		if id == self {
			continue
		}
		if existing.EmailIndex == rec.EmailIndex {
			return ErrDuplicateEmail
		}
		if existing.NationalIDIndex == rec.NationalIDIndex {
			return ErrDuplicateNationalID
		}
	}
	return nil
}

// Len reports stored row count. Test helper.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
