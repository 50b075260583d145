package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"veil/internal/pseudonym"
	"veil/internal/user/models"
	"veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/audit"
	"veil/pkg/platform/sentinel"
)

// listConcurrency caps parallel binding lookups during a listing.
const listConcurrency = 8

// GetUserByID assembles the full decrypted view for one pseudonym.
//
// A missing binding is a plain not-found. A binding that resolves to a
// missing row is something else entirely: the directory promised rows that
// are not there, which is an integrity fault and is reported as one rather
// than masked as absence.
func (s *Service) GetUserByID(ctx context.Context, p domain.Pseudonym) (user *models.User, err error) {
	ctx, finish := s.start(ctx, "user.get")
	defer func() { finish(err) }()

	personalID, authID, err := s.directory.Resolve(ctx, p)
	if err != nil {
		if errors.Is(err, pseudonym.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, internalErr(err, "could not resolve user")
	}

	personalRec, err := s.personal.FindByID(ctx, personalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.integrityFault(ctx, p, "binding resolves to a missing personal-data row")
			return nil, dErrors.New(dErrors.CodeIntegrityViolation, "user record is inconsistent")
		}
		return nil, internalErr(err, "could not load personal data")
	}
	authRec, err := s.auth.FindByID(ctx, authID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.integrityFault(ctx, p, "binding resolves to a missing auth row")
			return nil, dErrors.New(dErrors.CodeIntegrityViolation, "user record is inconsistent")
		}
		return nil, internalErr(err, "could not load credentials")
	}

	name, address, nationalID, phone, email, err := s.decryptPersonal(ctx, personalRec)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.CategoryCompliance, audit.ActionUserAccessed, p, "")

	return &models.User{
		ID:             p,
		Username:       authRec.Username,
		Email:          email,
		Name:           name,
		Address:        address,
		NationalID:     nationalID,
		Phone:          phone,
		OrganizationID: authRec.OrganizationID,
		Role:           authRec.Role,
	}, nil
}

// GetUsers lists every logical user as a summary. The auth store drives the
// listing; each row's pseudonym comes from a reverse binding lookup, done
// concurrently since each is an independent directory roundtrip.
//
// An auth row with no binding is dropped from the result, loudly: it is
// logged, audited and counted, because an unreachable row is an integrity
// fault, not a presentation detail.
func (s *Service) GetUsers(ctx context.Context) (users []models.UserSummary, err error) {
	ctx, finish := s.start(ctx, "user.list")
	defer func() { finish(err) }()

	records, err := s.auth.List(ctx)
	if err != nil {
		return nil, internalErr(err, "could not list users")
	}

	summaries := make([]*models.UserSummary, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, rec := range records {
		g.Go(func() error {
			p, err := s.directory.ResolveByAuthRowID(gctx, rec.ID)
			if err != nil {
				if errors.Is(err, pseudonym.ErrNotFound) {
					s.integrityFault(gctx, "", fmt.Sprintf("auth row %s has no binding", rec.ID))
					return nil
				}
				return err
			}
			summaries[i] = &models.UserSummary{
				ID:             p,
				Username:       rec.Username,
				OrganizationID: rec.OrganizationID,
				Role:           rec.Role,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, internalErr(err, "could not list users")
	}

	users = make([]models.UserSummary, 0, len(summaries))
	for _, sum := range summaries {
		if sum != nil {
			users = append(users, *sum)
		}
	}
	return users, nil
}
