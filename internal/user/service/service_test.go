package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"veil/internal/crypto"
	"veil/internal/keyring"
	"veil/internal/pseudonym"
	pseudostore "veil/internal/pseudonym/store"
	"veil/internal/user/models"
	"veil/internal/user/secrets"
	"veil/internal/user/store/auth"
	"veil/internal/user/store/personal"
	"veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/audit"
	"veil/pkg/platform/sentinel"
)

// faultyAuth injects failures into selected auth-store calls.
type faultyAuth struct {
	*auth.InMemory
	insertErr error
	deleteErr error
}

func (f *faultyAuth) Insert(ctx context.Context, rec models.AuthRecord) (domain.AuthRowID, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	return f.InMemory.Insert(ctx, rec)
}

func (f *faultyAuth) Delete(ctx context.Context, id domain.AuthRowID) (bool, error) {
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	return f.InMemory.Delete(ctx, id)
}

// downKeys simulates a key-provider outage.
type downKeys struct{}

func (downKeys) Material(context.Context) (keyring.Material, error) {
	return keyring.Material{}, fmt.Errorf("vault read: %w", keyring.ErrSecretUnavailable)
}

// faultyPersonal injects failures into selected personal-store calls.
type faultyPersonal struct {
	*personal.InMemory
	deleteErr error
}

func (f *faultyPersonal) Delete(ctx context.Context, id domain.PersonalRowID) (bool, error) {
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	return f.InMemory.Delete(ctx, id)
}

type ServiceSuite struct {
	suite.Suite
	personal  *faultyPersonal
	auth      *faultyAuth
	bindings  *pseudostore.InMemory
	directory *pseudonym.Directory
	audit     *audit.Memory
	svc       *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	engine := crypto.NewEngine(keyring.NewStatic(7))
	s.personal = &faultyPersonal{InMemory: personal.NewInMemory()}
	s.auth = &faultyAuth{InMemory: auth.NewInMemory()}
	s.bindings = pseudostore.NewInMemory()
	s.directory = pseudonym.New(s.bindings, engine)
	s.audit = audit.NewMemory()
	s.svc = New(s.personal, s.auth, s.directory, engine,
		WithAuditPublisher(s.audit))
}

func (s *ServiceSuite) createAna() *models.User {
	user, err := s.svc.CreateUser(context.Background(), models.CreateUserInput{
		Name:           "Ana Silva",
		Address:        "Rua das Flores 12",
		NationalID:     123456789,
		Phone:          "+351910000000",
		Email:          "ana@x.com",
		Username:       "ana",
		Password:       "correct horse battery",
		OrganizationID: "org-1",
		Role:           models.RoleOperator,
	})
	s.Require().NoError(err)
	return user
}

func (s *ServiceSuite) TestCreateThenGetRoundTrip() {
	ctx := context.Background()
	created := s.createAna()
	_, err := domain.ParsePseudonym(created.ID.String())
	s.Require().NoError(err)

	got, err := s.svc.GetUserByID(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("Ana Silva", got.Name)
	s.Equal("Rua das Flores 12", got.Address)
	s.Equal(123456789, got.NationalID)
	s.Equal("ana@x.com", got.Email)
	s.Equal("+351910000000", got.Phone)
	s.Equal("ana", got.Username)
	s.Equal(models.RoleOperator, got.Role)

	s.Len(s.audit.ByAction(audit.ActionUserCreated), 1)
}

func (s *ServiceSuite) TestCreateHashesPassword() {
	ctx := context.Background()
	created := s.createAna()

	_, authID, err := s.directory.Resolve(ctx, created.ID)
	s.Require().NoError(err)
	rec, err := s.auth.FindByID(ctx, authID)
	s.Require().NoError(err)

	s.NotEqual("correct horse battery", rec.PasswordHash)
	s.NoError(secrets.Verify("correct horse battery", rec.PasswordHash))
}

func (s *ServiceSuite) TestPersonalRowIsCiphertextOnly() {
	ctx := context.Background()
	created := s.createAna()

	personalID, _, err := s.directory.Resolve(ctx, created.ID)
	s.Require().NoError(err)
	rec, err := s.personal.FindByID(ctx, personalID)
	s.Require().NoError(err)

	for _, cipherField := range []string{
		rec.NameCipher, rec.AddressCipher, rec.NationalIDCipher, rec.PhoneCipher, rec.EmailCipher,
	} {
		s.NotContains(cipherField, "Ana")
		s.NotContains(cipherField, "ana@x.com")
		s.NotContains(cipherField, "123456789")
	}
}

func (s *ServiceSuite) TestDuplicateEmailLeavesNoRowsAnywhere() {
	ctx := context.Background()
	s.createAna()

	_, err := s.svc.CreateUser(ctx, models.CreateUserInput{
		Name:       "Rui Costa",
		Address:    "Av. Central 3",
		NationalID: 987654321,
		Email:      "ANA@X.COM", // same address, different case
		Username:   "rui",
		Password:   "another password",
		Role:       models.RoleViewer,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateEmail))

	// Only Ana's rows remain in every store.
	s.Equal(1, s.personal.Len())
	s.Equal(1, s.auth.Len())
	s.Equal(1, s.bindings.Len())
}

func (s *ServiceSuite) TestDuplicateNationalIDLeavesNoRowsAnywhere() {
	ctx := context.Background()
	s.createAna()

	_, err := s.svc.CreateUser(ctx, models.CreateUserInput{
		Name:       "Rui Costa",
		Address:    "Av. Central 3",
		NationalID: 123456789,
		Email:      "rui@x.com",
		Username:   "rui",
		Password:   "another password",
		Role:       models.RoleViewer,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateNationalID))

	s.Equal(1, s.personal.Len())
	s.Equal(1, s.auth.Len())
	s.Equal(1, s.bindings.Len())
}

func (s *ServiceSuite) TestAuthFailureCompensatesPersonalInsert() {
	ctx := context.Background()
	s.auth.insertErr = errors.New("connection refused")

	_, err := s.svc.CreateUser(ctx, models.CreateUserInput{
		Name:       "Ana Silva",
		Address:    "Rua das Flores 12",
		NationalID: 123456789,
		Email:      "ana@x.com",
		Username:   "ana",
		Password:   "correct horse battery",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	// The personal row written before the failure was compensated away and
	// no binding was ever created.
	s.Equal(0, s.personal.Len())
	s.Equal(0, s.auth.Len())
	s.Equal(0, s.bindings.Len())
	s.Len(s.audit.ByAction(audit.ActionCompensationApplied), 1)
}

func (s *ServiceSuite) TestFailedCompensationIsAudited() {
	ctx := context.Background()
	s.auth.insertErr = errors.New("connection refused")
	s.personal.deleteErr = errors.New("also down")

	_, err := s.svc.CreateUser(ctx, models.CreateUserInput{
		Name:       "Ana Silva",
		Address:    "Rua das Flores 12",
		NationalID: 123456789,
		Email:      "ana@x.com",
		Username:   "ana",
		Password:   "correct horse battery",
	})
	s.Require().Error(err)

	// The orphaned personal row is reported, never swallowed.
	s.Equal(1, s.personal.Len())
	s.Len(s.audit.ByAction(audit.ActionCompensationFailed), 1)
}

func (s *ServiceSuite) TestDuplicateUsernameIsConflict() {
	ctx := context.Background()
	s.createAna()

	_, err := s.svc.CreateUser(ctx, models.CreateUserInput{
		Name:       "Rui Costa",
		Address:    "Av. Central 3",
		NationalID: 987654321,
		Email:      "rui@x.com",
		Username:   "ana",
		Password:   "another password",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	s.Equal(1, s.personal.Len())
	s.Equal(1, s.auth.Len())
}

func (s *ServiceSuite) TestSecretOutageIsItsOwnErrorClass() {
	ctx := context.Background()
	created := s.createAna()

	// Same stores, dead key provider: every path that touches the engine
	// reports the outage, never a generic crypto or internal failure.
	engine := crypto.NewEngine(downKeys{})
	svc := New(s.personal, s.auth, pseudonym.New(s.bindings, engine), engine,
		WithAuditPublisher(s.audit))

	_, err := svc.CreateUser(ctx, models.CreateUserInput{
		Name:       "Rui Costa",
		Address:    "Av. Central 3",
		NationalID: 987654321,
		Email:      "rui@x.com",
		Username:   "rui",
		Password:   "another password",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSecretUnavailable))

	_, err = svc.GetUserByID(ctx, created.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSecretUnavailable))
}

func (s *ServiceSuite) TestStoreOutageIsStoreUnavailable() {
	ctx := context.Background()
	s.auth.insertErr = fmt.Errorf("dial auth store: %w", sentinel.ErrUnavailable)

	_, err := s.svc.CreateUser(ctx, models.CreateUserInput{
		Name:       "Ana Silva",
		Address:    "Rua das Flores 12",
		NationalID: 123456789,
		Email:      "ana@x.com",
		Username:   "ana",
		Password:   "correct horse battery",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeStoreUnavailable))

	// The personal row written before the outage was still compensated.
	s.Equal(0, s.personal.Len())
}

func (s *ServiceSuite) TestBlownDeadlineIsTimeout() {
	ctx := context.Background()
	s.auth.insertErr = context.DeadlineExceeded

	_, err := s.svc.CreateUser(ctx, models.CreateUserInput{
		Name:       "Ana Silva",
		Address:    "Rua das Flores 12",
		NationalID: 123456789,
		Email:      "ana@x.com",
		Username:   "ana",
		Password:   "correct horse battery",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}

func (s *ServiceSuite) TestGetUnknownPseudonymIsNotFound() {
	_, err := s.svc.GetUserByID(context.Background(), domain.NewPseudonym())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestBindingToMissingRowIsIntegrityFault() {
	ctx := context.Background()
	created := s.createAna()

	// Simulate an out-of-band removal of the personal row.
	personalID, _, err := s.directory.Resolve(ctx, created.ID)
	s.Require().NoError(err)
	_, err = s.personal.InMemory.Delete(ctx, personalID)
	s.Require().NoError(err)

	_, err = s.svc.GetUserByID(ctx, created.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeIntegrityViolation))
	s.Len(s.audit.ByAction(audit.ActionIntegrityFault), 1)
}

func (s *ServiceSuite) TestListReturnsSummariesWithoutInternalIDs() {
	ctx := context.Background()
	created := s.createAna()
	second, err := s.svc.CreateUser(ctx, models.CreateUserInput{
		Name:       "Rui Costa",
		Address:    "Av. Central 3",
		NationalID: 987654321,
		Email:      "rui@x.com",
		Username:   "rui",
		Password:   "another password",
		Role:       models.RoleViewer,
	})
	s.Require().NoError(err)

	users, err := s.svc.GetUsers(ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 2)

	ids := []domain.Pseudonym{users[0].ID, users[1].ID}
	s.Contains(ids, created.ID)
	s.Contains(ids, second.ID)
}

func (s *ServiceSuite) TestListDropsUnboundAuthRowsLoudly() {
	ctx := context.Background()
	s.createAna()

	// An auth row with no binding: inserted behind the orchestrator's back.
	_, err := s.auth.InMemory.Insert(ctx, models.AuthRecord{
		Username:     "ghost",
		PasswordHash: "x",
	})
	s.Require().NoError(err)

	users, err := s.svc.GetUsers(ctx)
	s.Require().NoError(err)
	s.Len(users, 1)
	s.Len(s.audit.ByAction(audit.ActionIntegrityFault), 1)
}

func (s *ServiceSuite) TestUpdateRewritesPersonalData() {
	ctx := context.Background()
	created := s.createAna()

	updated, err := s.svc.UpdateUser(ctx, created.ID, models.UpdateUserInput{
		Name:       "Ana Santos",
		Address:    "Rua Nova 1",
		NationalID: 123456789,
		Phone:      "+351920000000",
		Email:      "ana.santos@x.com",
	})
	s.Require().NoError(err)
	s.Equal(created.ID, updated.ID)
	s.Equal("Ana Santos", updated.Name)
	s.Equal("ana", updated.Username)

	got, err := s.svc.GetUserByID(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("Ana Santos", got.Name)
	s.Equal("ana.santos@x.com", got.Email)
	s.Len(s.audit.ByAction(audit.ActionUserUpdated), 1)
}

func (s *ServiceSuite) TestUpdateToTakenEmailIsRejected() {
	ctx := context.Background()
	s.createAna()
	second, err := s.svc.CreateUser(ctx, models.CreateUserInput{
		Name:       "Rui Costa",
		Address:    "Av. Central 3",
		NationalID: 987654321,
		Email:      "rui@x.com",
		Username:   "rui",
		Password:   "another password",
	})
	s.Require().NoError(err)

	_, err = s.svc.UpdateUser(ctx, second.ID, models.UpdateUserInput{
		Name:       "Rui Costa",
		Address:    "Av. Central 3",
		NationalID: 987654321,
		Email:      "ana@x.com",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateEmail))
}

func (s *ServiceSuite) TestUpdateUnknownPseudonymIsNotFound() {
	_, err := s.svc.UpdateUser(context.Background(), domain.NewPseudonym(), models.UpdateUserInput{
		Name:  "n",
		Email: "e@x.com",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestDeleteRemovesEveryTrace() {
	ctx := context.Background()
	created := s.createAna()

	s.Require().NoError(s.svc.DeleteUser(ctx, created.ID))

	s.Equal(0, s.personal.Len())
	s.Equal(0, s.auth.Len())
	s.Equal(0, s.bindings.Len())
	s.Len(s.audit.ByAction(audit.ActionUserDeleted), 1)

	_, err := s.svc.GetUserByID(ctx, created.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestDeleteFailureKeepsBinding() {
	ctx := context.Background()
	created := s.createAna()
	s.auth.deleteErr = errors.New("connection refused")

	err := s.svc.DeleteUser(ctx, created.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeIntegrityViolation))

	// The binding survives so the user stays resolvable for a retry.
	s.Equal(1, s.bindings.Len())
	s.Len(s.audit.ByAction(audit.ActionIntegrityFault), 1)

	s.auth.deleteErr = nil
	err = s.svc.DeleteUser(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(0, s.bindings.Len())
}

func (s *ServiceSuite) TestDeleteUnknownPseudonymIsNotFound() {
	err := s.svc.DeleteUser(context.Background(), domain.NewPseudonym())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// The full lifecycle in one pass: create, read, delete, gone.
func (s *ServiceSuite) TestLifecycle() {
	ctx := context.Background()
	created := s.createAna()

	got, err := s.svc.GetUserByID(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)

	s.Require().NoError(s.svc.DeleteUser(ctx, created.ID))

	_, err = s.svc.GetUserByID(ctx, created.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	users, err := s.svc.GetUsers(ctx)
	s.Require().NoError(err)
	s.Empty(users)
}
