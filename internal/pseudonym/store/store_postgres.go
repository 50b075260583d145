package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Postgres persists bindings in the pseudonym-directory database.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const pqUniqueViolation = "23505"

func (s *Postgres) Insert(ctx context.Context, b Binding) error {
	query := `
		INSERT INTO pseudonym_bindings (pseudonym, personal_row_id, auth_row_id)
		VALUES ($1, $2, $3)
	`
	_, err := s.db.ExecContext(ctx, query, b.PseudonymCipher, b.PersonalRowIDCipher, b.AuthRowIDCipher)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("pseudonym binding exists: %w", ErrConflict)
		}
		return fmt.Errorf("insert binding: %w", err)
	}
	return nil
}

func (s *Postgres) FindByPseudonym(ctx context.Context, pseudonymCipher string) (Binding, error) {
	query := `
		SELECT pseudonym, personal_row_id, auth_row_id
		FROM pseudonym_bindings
		WHERE pseudonym = $1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, pseudonymCipher), "pseudonym binding")
}

func (s *Postgres) FindByAuthRowID(ctx context.Context, authRowIDCipher string) (Binding, error) {
	query := `
		SELECT pseudonym, personal_row_id, auth_row_id
		FROM pseudonym_bindings
		WHERE auth_row_id = $1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, authRowIDCipher), "pseudonym binding by auth row")
}

func (s *Postgres) Delete(ctx context.Context, pseudonymCipher string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pseudonym_bindings WHERE pseudonym = $1`, pseudonymCipher)
	if err != nil {
		return false, fmt.Errorf("delete binding: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete binding: %w", err)
	}
	return n > 0, nil
}

func (s *Postgres) scanOne(row *sql.Row, what string) (Binding, error) {
	var b Binding
	if err := row.Scan(&b.PseudonymCipher, &b.PersonalRowIDCipher, &b.AuthRowIDCipher); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Binding{}, fmt.Errorf("%s: %w", what, ErrNotFound)
		}
		return Binding{}, fmt.Errorf("%s: %w", what, err)
	}
	return b, nil
}
