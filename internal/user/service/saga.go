package service

import (
	"context"
	"fmt"

	"veil/pkg/domain"
	"veil/pkg/platform/audit"
)

// step is one forward action of a multi-store write with its undo. compensate
// may be nil when the step leaves nothing to clean up.
type step struct {
	name       string
	run        func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// runSaga executes steps in order. On the first failure it undoes every
// completed step in reverse and returns the failing step's error; on a clean
// run nothing is compensated.
func (s *Service) runSaga(ctx context.Context, p domain.Pseudonym, steps []step) error {
	var done []step
	for _, st := range steps {
		if err := st.run(ctx); err != nil {
			s.compensateAll(ctx, p, done, st.name)
			return fmt.Errorf("%s: %w", st.name, err)
		}
		done = append(done, st)
	}
	return nil
}

// compensateAll rolls back completed steps newest-first. It runs on a
// cancellation-detached context: an aborted request must not also strand the
// rows it half-wrote. A failed compensation is the worst outcome here, so it
// is audited as an integrity event naming the orphaned step.
func (s *Service) compensateAll(ctx context.Context, p domain.Pseudonym, done []step, failedAt string) {
	ctx = context.WithoutCancel(ctx)
	for i := len(done) - 1; i >= 0; i-- {
		st := done[i]
		if st.compensate == nil {
			continue
		}
		if s.metrics != nil {
			s.metrics.CompensationsTotal.Inc()
		}
		if err := st.compensate(ctx); err != nil {
			s.logger.Error().Err(err).
				Str("step", st.name).
				Str("failed_at", failedAt).
				Msg("compensation failed, orphan left behind")
			s.emit(ctx, audit.CategoryIntegrity, audit.ActionCompensationFailed, p,
				fmt.Sprintf("undo of %q failed after %q", st.name, failedAt))
			if s.metrics != nil {
				s.metrics.IntegrityFaults.Inc()
			}
			continue
		}
		s.logger.Warn().
			Str("step", st.name).
			Str("failed_at", failedAt).
			Msg("compensated step")
		s.emit(ctx, audit.CategoryIntegrity, audit.ActionCompensationApplied, p,
			fmt.Sprintf("undid %q after %q", st.name, failedAt))
	}
}
