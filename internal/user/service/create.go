package service

import (
	"context"
	"errors"

	"veil/internal/pseudonym"
	"veil/internal/user/models"
	"veil/internal/user/secrets"
	"veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/audit"
)

// CreateUser writes a new logical user across all three stores as a saga:
// personal row, then auth row, then the binding. If any step fails, the
// completed steps are compensated so no store retains a trace of the attempt.
// The returned user carries the freshly minted pseudonym as its only id.
func (s *Service) CreateUser(ctx context.Context, in models.CreateUserInput) (user *models.User, err error) {
	ctx, finish := s.start(ctx, "user.create")
	defer func() { finish(err) }()

	if in.Role != "" && !in.Role.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown role")
	}
	passwordHash, err := secrets.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	personalRec, err := s.encryptPersonal(ctx, in.Name, in.Address, in.NationalID, in.Phone, in.Email)
	if err != nil {
		return nil, err
	}

	p := domain.NewPseudonym()
	var (
		personalID domain.PersonalRowID
		authID     domain.AuthRowID
	)

	steps := []step{
		{
			name: "insert personal data",
			run: func(ctx context.Context) error {
				var err error
				personalID, err = s.personal.Insert(ctx, personalRec)
				return err
			},
			compensate: func(ctx context.Context) error {
				_, err := s.personal.Delete(ctx, personalID)
				return err
			},
		},
		{
			name: "insert credentials",
			run: func(ctx context.Context) error {
				var err error
				authID, err = s.auth.Insert(ctx, models.AuthRecord{
					Username:       in.Username,
					PasswordHash:   passwordHash,
					OrganizationID: in.OrganizationID,
					Role:           in.Role,
				})
				return err
			},
			compensate: func(ctx context.Context) error {
				_, err := s.auth.Delete(ctx, authID)
				return err
			},
		},
		{
			name: "save binding",
			run: func(ctx context.Context) error {
				err := s.directory.Save(ctx, p, personalID, authID)
				if errors.Is(err, pseudonym.ErrDuplicatePseudonym) {
					// One retry with a fresh token covers the only realistic
					// collision source, a replayed request.
					p = domain.NewPseudonym()
					err = s.directory.Save(ctx, p, personalID, authID)
				}
				return err
			},
			compensate: func(ctx context.Context) error {
				return s.directory.Delete(ctx, p)
			},
		},
	}

	if err := s.runSaga(ctx, p, steps); err != nil {
		if translated := translateWriteErr(err); translated != nil {
			return nil, translated
		}
		return nil, internalErr(err, "could not create user")
	}

	s.logger.Info().Str("pseudonym", p.String()).Msg("user created")
	s.emit(ctx, audit.CategoryCompliance, audit.ActionUserCreated, p, "")

	return &models.User{
		ID:             p,
		Username:       in.Username,
		Email:          in.Email,
		Name:           in.Name,
		Address:        in.Address,
		NationalID:     in.NationalID,
		Phone:          in.Phone,
		OrganizationID: in.OrganizationID,
		Role:           in.Role,
	}, nil
}
