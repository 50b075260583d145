//go:build integration

package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"veil/internal/user/models"
	"veil/internal/user/store/auth"
	"veil/migrations"
	"veil/pkg/domain"
	"veil/pkg/platform/sentinel"
	"veil/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *auth.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), migrations.Auth())
	s.store = auth.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "auth_users"))
}

func (s *PostgresStoreSuite) insert(username string) domain.AuthRowID {
	id, err := s.store.Insert(context.Background(), models.AuthRecord{
		Username:       username,
		PasswordHash:   "$2a$10$fakehash",
		OrganizationID: "org-1",
		Role:           models.RoleOperator,
	})
	s.Require().NoError(err)
	return id
}

func (s *PostgresStoreSuite) TestInsertAndFindRoundTrip() {
	id := s.insert("ana")

	got, err := s.store.FindByID(context.Background(), id)
	s.Require().NoError(err)
	s.Equal("ana", got.Username)
	s.Equal("$2a$10$fakehash", got.PasswordHash)
	s.Equal("org-1", got.OrganizationID)
	s.Equal(models.RoleOperator, got.Role)
}

func (s *PostgresStoreSuite) TestFindMissingIsNotFound() {
	_, err := s.store.FindByID(context.Background(), domain.AuthRowID(404))
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestDuplicateUsernameRejected() {
	s.insert("ana")

	_, err := s.store.Insert(context.Background(), models.AuthRecord{
		Username:     "ana",
		PasswordHash: "$2a$10$otherhash",
	})
	s.True(errors.Is(err, auth.ErrUsernameTaken))
}

func (s *PostgresStoreSuite) TestListOrderedByID() {
	s.insert("carla")
	s.insert("ana")

	records, err := s.store.List(context.Background())
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal("carla", records[0].Username)
	s.Equal("ana", records[1].Username)
}

func (s *PostgresStoreSuite) TestDeleteReportsPresence() {
	id := s.insert("ana")

	gone, err := s.store.Delete(context.Background(), id)
	s.Require().NoError(err)
	s.True(gone)

	gone, err = s.store.Delete(context.Background(), id)
	s.Require().NoError(err)
	s.False(gone)
}
