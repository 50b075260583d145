package service

import (
	"context"
	"errors"

	"veil/internal/pseudonym"
	"veil/internal/user/models"
	"veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/audit"
	"veil/pkg/platform/sentinel"
)

// UpdateUser replaces the personal-data fields of one logical user. Only the
// personal store is written, so the whole write fits a single transaction
// there; the binding and the auth row are untouched.
//
// Every cipher in the row is regenerated, including fields the caller did
// not change: randomized encryption makes the rewritten row unlinkable to
// its previous version.
func (s *Service) UpdateUser(ctx context.Context, p domain.Pseudonym, in models.UpdateUserInput) (user *models.User, err error) {
	ctx, finish := s.start(ctx, "user.update")
	defer func() { finish(err) }()

	personalID, authID, err := s.directory.Resolve(ctx, p)
	if err != nil {
		if errors.Is(err, pseudonym.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, internalErr(err, "could not resolve user")
	}

	rec, err := s.encryptPersonal(ctx, in.Name, in.Address, in.NationalID, in.Phone, in.Email)
	if err != nil {
		return nil, err
	}
	rec.ID = personalID

	err = s.updateTx.Run(ctx, func(ctx context.Context) error {
		return s.personal.Update(ctx, rec)
	})
	if err != nil {
		if translated := translateWriteErr(err); translated != nil {
			return nil, translated
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			s.integrityFault(ctx, p, "binding resolves to a missing personal-data row")
			return nil, dErrors.New(dErrors.CodeIntegrityViolation, "user record is inconsistent")
		}
		return nil, internalErr(err, "could not update user")
	}

	authRec, err := s.auth.FindByID(ctx, authID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.integrityFault(ctx, p, "binding resolves to a missing auth row")
			return nil, dErrors.New(dErrors.CodeIntegrityViolation, "user record is inconsistent")
		}
		return nil, internalErr(err, "could not load credentials")
	}

	s.logger.Info().Str("pseudonym", p.String()).Msg("user updated")
	s.emit(ctx, audit.CategoryCompliance, audit.ActionUserUpdated, p, "")

	return &models.User{
		ID:             p,
		Username:       authRec.Username,
		Email:          in.Email,
		Name:           in.Name,
		Address:        in.Address,
		NationalID:     in.NationalID,
		Phone:          in.Phone,
		OrganizationID: authRec.OrganizationID,
		Role:           authRec.Role,
	}, nil
}
