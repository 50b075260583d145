package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"veil/internal/user/models"
	"veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemory
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func (s *MemoryStoreSuite) insert(username string) domain.AuthRowID {
	id, err := s.store.Insert(context.Background(), models.AuthRecord{
		Username:       username,
		PasswordHash:   "$2a$10$fakehash",
		OrganizationID: "org-1",
		Role:           models.RoleViewer,
	})
	s.Require().NoError(err)
	return id
}

func (s *MemoryStoreSuite) TestInsertAndFindRoundTrip() {
	id := s.insert("ana")

	got, err := s.store.FindByID(context.Background(), id)
	s.Require().NoError(err)
	s.Equal("ana", got.Username)
	s.Equal(models.RoleViewer, got.Role)
}

func (s *MemoryStoreSuite) TestFindMissingIsNotFound() {
	_, err := s.store.FindByID(context.Background(), domain.AuthRowID(404))
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *MemoryStoreSuite) TestDuplicateUsernameRejected() {
	s.insert("ana")

	_, err := s.store.Insert(context.Background(), models.AuthRecord{
		Username:     "ana",
		PasswordHash: "$2a$10$otherhash",
	})
	s.True(errors.Is(err, ErrUsernameTaken))
	s.Equal(1, s.store.Len())
}

func (s *MemoryStoreSuite) TestListOrderedByID() {
	s.insert("carla")
	s.insert("ana")
	s.insert("bruno")

	records, err := s.store.List(context.Background())
	s.Require().NoError(err)
	s.Require().Len(records, 3)
	s.Equal("carla", records[0].Username)
	s.Equal("ana", records[1].Username)
	s.Equal("bruno", records[2].Username)
}

func (s *MemoryStoreSuite) TestDeleteFreesUsername() {
	id := s.insert("ana")

	gone, err := s.store.Delete(context.Background(), id)
	s.Require().NoError(err)
	s.True(gone)

	s.insert("ana")
}

func (s *MemoryStoreSuite) TestDeleteMissingIsNotAnError() {
	gone, err := s.store.Delete(context.Background(), domain.AuthRowID(404))
	s.Require().NoError(err)
	s.False(gone)
}
