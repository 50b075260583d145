package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"veil/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func (s *InMemoryStoreSuite) TestInsertAndLookup() {
	ctx := context.Background()
	b := Binding{PseudonymCipher: "ps-1", PersonalRowIDCipher: "pr-1", AuthRowIDCipher: "ar-1"}
	s.Require().NoError(s.store.Insert(ctx, b))

	found, err := s.store.FindByPseudonym(ctx, "ps-1")
	s.Require().NoError(err)
	s.Equal(b, found)

	found, err = s.store.FindByAuthRowID(ctx, "ar-1")
	s.Require().NoError(err)
	s.Equal(b, found)
}

func (s *InMemoryStoreSuite) TestInsertDuplicateConflicts() {
	ctx := context.Background()
	b := Binding{PseudonymCipher: "ps-1", PersonalRowIDCipher: "pr-1", AuthRowIDCipher: "ar-1"}
	s.Require().NoError(s.store.Insert(ctx, b))

	err := s.store.Insert(ctx, Binding{PseudonymCipher: "ps-1", PersonalRowIDCipher: "pr-2", AuthRowIDCipher: "ar-2"})
	s.Require().ErrorIs(err, sentinel.ErrConflict)
	s.Equal(1, s.store.Len())
}

func (s *InMemoryStoreSuite) TestMissingRowsReturnNotFound() {
	ctx := context.Background()
	_, err := s.store.FindByPseudonym(ctx, "absent")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByAuthRowID(ctx, "absent")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestDeleteIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, Binding{PseudonymCipher: "ps-1"}))

	removed, err := s.store.Delete(ctx, "ps-1")
	s.Require().NoError(err)
	s.True(removed)

	removed, err = s.store.Delete(ctx, "ps-1")
	s.Require().NoError(err)
	s.False(removed, "second delete is a no-op")
}
