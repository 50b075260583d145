package personal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"veil/internal/user/models"
	"veil/pkg/domain"
	"veil/pkg/platform/sentinel"
	"veil/pkg/platform/tx"
)

// Postgres persists personal-data rows. Methods join a transaction carried in
// context (pkg/platform/tx) so the update path can re-encrypt inside one tx.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// executor abstracts *sql.DB / *sql.Tx for context-joined transactions.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) exec(ctx context.Context) executor {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

const (
	pqUniqueViolation = "23505"

	emailIndexConstraint      = "personal_data_email_bidx_key"
	nationalIDIndexConstraint = "personal_data_national_id_bidx_key"
)

// translateUnique maps a constraint violation to its business field without
// letting raw storage text escape this package.
func translateUnique(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return nil
	}
	switch pqErr.Constraint {
	case emailIndexConstraint:
		return ErrDuplicateEmail
	case nationalIDIndexConstraint:
		return ErrDuplicateNationalID
	default:
		return fmt.Errorf("unique violation on %s: %w", pqErr.Constraint, sentinel.ErrConflict)
	}
}

func (s *Postgres) Insert(ctx context.Context, rec models.PersonalDataRecord) (domain.PersonalRowID, error) {
	query := `
		INSERT INTO personal_data (name, address, national_id, phone, email, email_bidx, national_id_bidx)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err := s.exec(ctx).QueryRowContext(ctx, query,
		rec.NameCipher, rec.AddressCipher, rec.NationalIDCipher, rec.PhoneCipher, rec.EmailCipher,
		rec.EmailIndex, rec.NationalIDIndex,
	).Scan(&id)
	if err != nil {
		if dup := translateUnique(err); dup != nil {
			return 0, dup
		}
		return 0, fmt.Errorf("insert personal data: %w", err)
	}
	return domain.PersonalRowID(id), nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.PersonalRowID) (models.PersonalDataRecord, error) {
	query := `
		SELECT id, name, address, national_id, phone, email, email_bidx, national_id_bidx
		FROM personal_data
		WHERE id = $1
	`
	var rec models.PersonalDataRecord
	var rowID int64
	err := s.exec(ctx).QueryRowContext(ctx, query, int64(id)).Scan(
		&rowID, &rec.NameCipher, &rec.AddressCipher, &rec.NationalIDCipher,
		&rec.PhoneCipher, &rec.EmailCipher, &rec.EmailIndex, &rec.NationalIDIndex,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PersonalDataRecord{}, fmt.Errorf("personal data row %d: %w", id, ErrNotFound)
		}
		return models.PersonalDataRecord{}, fmt.Errorf("find personal data: %w", err)
	}
	rec.ID = domain.PersonalRowID(rowID)
	return rec, nil
}

func (s *Postgres) Update(ctx context.Context, rec models.PersonalDataRecord) error {
	query := `
		UPDATE personal_data
		SET name = $1, address = $2, national_id = $3, phone = $4, email = $5,
		    email_bidx = $6, national_id_bidx = $7
		WHERE id = $8
	`
	res, err := s.exec(ctx).ExecContext(ctx, query,
		rec.NameCipher, rec.AddressCipher, rec.NationalIDCipher, rec.PhoneCipher, rec.EmailCipher,
		rec.EmailIndex, rec.NationalIDIndex, int64(rec.ID),
	)
	if err != nil {
		if dup := translateUnique(err); dup != nil {
			return dup
		}
		return fmt.Errorf("update personal data: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update personal data: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("personal data row %d: %w", rec.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a row by its resolved internal id only. No other filter:
// scoping deletes by anything else invites deleting the wrong row.
func (s *Postgres) Delete(ctx context.Context, id domain.PersonalRowID) (bool, error) {
	res, err := s.exec(ctx).ExecContext(ctx, `DELETE FROM personal_data WHERE id = $1`, int64(id))
	if err != nil {
		return false, fmt.Errorf("delete personal data: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete personal data: %w", err)
	}
	return n > 0, nil
}
