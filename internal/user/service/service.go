// Package service orchestrates the logical user across the three stores.
//
// No store knows about the others; only this package sequences writes,
// compensates partial failures and assembles reads through the pseudonym
// directory. Callers see pseudonyms exclusively: internal row keys never
// cross this boundary.
package service

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"veil/internal/crypto"
	"veil/internal/keyring"
	"veil/internal/user/metrics"
	"veil/internal/user/models"
	"veil/internal/user/store/auth"
	"veil/internal/user/store/personal"
	"veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/audit"
	"veil/pkg/platform/sentinel"
)

// defaultOpTimeout bounds one logical operation across all three stores.
const defaultOpTimeout = 10 * time.Second

type PersonalStore interface {
	Insert(ctx context.Context, rec models.PersonalDataRecord) (domain.PersonalRowID, error)
	FindByID(ctx context.Context, id domain.PersonalRowID) (models.PersonalDataRecord, error)
	Update(ctx context.Context, rec models.PersonalDataRecord) error
	Delete(ctx context.Context, id domain.PersonalRowID) (bool, error)
}

type AuthStore interface {
	Insert(ctx context.Context, rec models.AuthRecord) (domain.AuthRowID, error)
	FindByID(ctx context.Context, id domain.AuthRowID) (models.AuthRecord, error)
	List(ctx context.Context) ([]models.AuthRecord, error)
	Delete(ctx context.Context, id domain.AuthRowID) (bool, error)
}

// Directory is the pseudonym binding layer (internal/pseudonym satisfies it).
type Directory interface {
	Save(ctx context.Context, p domain.Pseudonym, personalID domain.PersonalRowID, authID domain.AuthRowID) error
	Resolve(ctx context.Context, p domain.Pseudonym) (domain.PersonalRowID, domain.AuthRowID, error)
	ResolveByAuthRowID(ctx context.Context, authID domain.AuthRowID) (domain.Pseudonym, error)
	Delete(ctx context.Context, p domain.Pseudonym) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// TxRunner wraps a mutation in a store transaction. The in-memory stores use
// the pass-through runner.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

type nopRunner struct{}

func (nopRunner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Service is the cross-store orchestrator.
type Service struct {
	personal  PersonalStore
	auth      AuthStore
	directory Directory
	engine    *crypto.Engine

	logger    zerolog.Logger
	audit     AuditPublisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	updateTx  TxRunner
	opTimeout time.Duration
	now       func() time.Time
}

type Option func(s *Service)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithTxRunner scopes personal-data updates to a transaction on that store.
func WithTxRunner(r TxRunner) Option {
	return func(s *Service) { s.updateTx = r }
}

func WithOpTimeout(d time.Duration) Option {
	return func(s *Service) { s.opTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs a Service.
func New(personalStore PersonalStore, authStore AuthStore, directory Directory, engine *crypto.Engine, opts ...Option) *Service {
	s := &Service{
		personal:  personalStore,
		auth:      authStore,
		directory: directory,
		engine:    engine,
		logger:    zerolog.Nop(),
		audit:     audit.NewMemory(),
		tracer:    otel.Tracer("veil/internal/user/service"),
		updateTx:  nopRunner{},
		opTimeout: defaultOpTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// start opens a span and a deadline for one operation. The returned finish
// must be called with the operation's result.
func (s *Service) start(ctx context.Context, op string) (context.Context, func(error)) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	ctx, span := s.tracer.Start(ctx, op)
	began := s.now()
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, string(dErrors.CodeOf(err)))
		}
		span.End()
		cancel()
		if s.metrics != nil {
			s.metrics.Observe(op, began, err)
		}
	}
}

// emit publishes an audit event. Publish failures are logged, not returned:
// the business operation already succeeded or failed on its own terms.
func (s *Service) emit(ctx context.Context, category audit.Category, action audit.Action, p domain.Pseudonym, detail string) {
	event := audit.Event{
		Category:  category,
		Action:    action,
		Pseudonym: p,
		Detail:    detail,
		Timestamp: s.now(),
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("action", string(action)).Msg("audit publish failed")
	}
}

// integrityFault records a detected cross-store inconsistency. These are
// never silently absorbed: every one is logged, audited and counted.
func (s *Service) integrityFault(ctx context.Context, p domain.Pseudonym, detail string) {
	s.logger.Error().Str("pseudonym", p.String()).Str("detail", detail).Msg("integrity fault")
	s.emit(ctx, audit.CategoryIntegrity, audit.ActionIntegrityFault, p, detail)
	if s.metrics != nil {
		s.metrics.IntegrityFaults.Inc()
	}
}

// encryptPersonal builds the at-rest row for the given plaintext fields. All
// ciphers are randomized; email and national id additionally get blind
// indexes so the store can enforce uniqueness over ciphertext.
func (s *Service) encryptPersonal(ctx context.Context, name, address string, nationalID int, phone, email string) (models.PersonalDataRecord, error) {
	var rec models.PersonalDataRecord

	fields := []struct {
		plaintext string
		dst       *string
	}{
		{name, &rec.NameCipher},
		{address, &rec.AddressCipher},
		{strconv.Itoa(nationalID), &rec.NationalIDCipher},
		{phone, &rec.PhoneCipher},
		{email, &rec.EmailCipher},
	}
	for _, f := range fields {
		cipher, err := s.engine.Encrypt(ctx, crypto.Randomized, f.plaintext)
		if err != nil {
			return models.PersonalDataRecord{}, cryptoErr(err, "could not encrypt personal data")
		}
		*f.dst = cipher
	}

	emailIdx, err := s.engine.BlindIndex(ctx, email)
	if err != nil {
		return models.PersonalDataRecord{}, cryptoErr(err, "could not index email")
	}
	nationalIdx, err := s.engine.BlindIndex(ctx, strconv.Itoa(nationalID))
	if err != nil {
		return models.PersonalDataRecord{}, cryptoErr(err, "could not index national id")
	}
	rec.EmailIndex = emailIdx
	rec.NationalIDIndex = nationalIdx
	return rec, nil
}

// decryptPersonal is the inverse of encryptPersonal for an assembled read.
func (s *Service) decryptPersonal(ctx context.Context, rec models.PersonalDataRecord) (name, address string, nationalID int, phone, email string, err error) {
	fields := []struct {
		cipher string
		dst    *string
	}{
		{rec.NameCipher, &name},
		{rec.AddressCipher, &address},
		{rec.PhoneCipher, &phone},
		{rec.EmailCipher, &email},
	}
	for _, f := range fields {
		var plaintext string
		plaintext, err = s.engine.Decrypt(ctx, crypto.Randomized, f.cipher)
		if err != nil {
			err = cryptoErr(err, "could not decrypt personal data")
			return
		}
		*f.dst = plaintext
	}

	nidText, err := s.engine.Decrypt(ctx, crypto.Randomized, rec.NationalIDCipher)
	if err != nil {
		err = cryptoErr(err, "could not decrypt personal data")
		return
	}
	nationalID, convErr := strconv.Atoi(nidText)
	if convErr != nil {
		err = dErrors.Wrap(convErr, dErrors.CodeIntegrityViolation, "stored national id is not numeric")
		return
	}
	return name, address, nationalID, phone, email, nil
}

// translateWriteErr maps store rejections to domain error codes.
func translateWriteErr(err error) error {
	switch {
	case errors.Is(err, personal.ErrDuplicateEmail):
		return dErrors.New(dErrors.CodeDuplicateEmail, "email already registered")
	case errors.Is(err, personal.ErrDuplicateNationalID):
		return dErrors.New(dErrors.CodeDuplicateNationalID, "national id already registered")
	case errors.Is(err, auth.ErrUsernameTaken):
		return dErrors.New(dErrors.CodeConflict, "username already taken")
	}
	return nil
}

// cryptoErr classifies an engine failure. A key-provider outage is its own
// class; only a genuine cipher problem is a crypto failure.
func cryptoErr(err error, message string) error {
	if errors.Is(err, keyring.ErrSecretUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeSecretUnavailable, "key material unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeCryptoFailure, message)
}

// internalErr classifies unexpected failures from the stores and the
// directory before they cross the service boundary. Availability problems
// (key provider down, store unreachable, deadline blown) keep their own
// codes; only the truly unexplained becomes CodeInternal.
func internalErr(err error, message string) error {
	switch {
	case errors.Is(err, keyring.ErrSecretUnavailable):
		return dErrors.Wrap(err, dErrors.CodeSecretUnavailable, "key material unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, message)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, message)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, message)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, message)
}
