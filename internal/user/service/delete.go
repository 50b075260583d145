package service

import (
	"context"
	"errors"
	"fmt"

	"veil/internal/pseudonym"
	"veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/audit"
)

// DeleteUser removes every trace of one logical user: both rows, then the
// binding. Ordering matters: the binding goes last, so a failure partway
// through leaves a resolvable (and repairable) user rather than unreachable
// rows.
//
// A row the binding points at but which is already gone is tolerated for the
// deletion itself (the end state is the desired one) but still reported as an
// integrity fault, since something else must have removed it. A row delete
// that errors aborts before the binding is touched; this path never reports
// success while data may remain.
func (s *Service) DeleteUser(ctx context.Context, p domain.Pseudonym) (err error) {
	ctx, finish := s.start(ctx, "user.delete")
	defer func() { finish(err) }()

	personalID, authID, err := s.directory.Resolve(ctx, p)
	if err != nil {
		if errors.Is(err, pseudonym.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return internalErr(err, "could not resolve user")
	}

	personalGone, personalErr := s.personal.Delete(ctx, personalID)
	authGone, authErr := s.auth.Delete(ctx, authID)
	if delErr := errors.Join(personalErr, authErr); delErr != nil {
		detail := "row deletion failed"
		if personalErr == nil || authErr == nil {
			// One side is gone and the other is not: the stores now disagree
			// until the delete is retried.
			detail = "row deletion failed after partial removal"
		}
		s.integrityFault(ctx, p, detail)
		return dErrors.Wrap(delErr, dErrors.CodeIntegrityViolation, "could not fully delete user")
	}
	if personalErr == nil && !personalGone {
		s.integrityFault(ctx, p, fmt.Sprintf("personal-data row %s was already absent at delete", personalID))
	}
	if authErr == nil && !authGone {
		s.integrityFault(ctx, p, fmt.Sprintf("auth row %s was already absent at delete", authID))
	}

	if err := s.directory.Delete(ctx, p); err != nil {
		// Rows are gone but the binding survived: the pseudonym now resolves
		// to nothing. Still an error, never a silent success.
		s.integrityFault(ctx, p, "binding removal failed after row deletion")
		return dErrors.Wrap(err, dErrors.CodeIntegrityViolation, "could not fully delete user")
	}

	s.logger.Info().Str("pseudonym", p.String()).Msg("user deleted")
	s.emit(ctx, audit.CategoryCompliance, audit.ActionUserDeleted, p, "")
	return nil
}
