package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"veil/internal/user/models"
	"veil/pkg/domain"
)

// Postgres persists auth rows in the auth database.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const pqUniqueViolation = "23505"

func (s *Postgres) Insert(ctx context.Context, rec models.AuthRecord) (domain.AuthRowID, error) {
	query := `
		INSERT INTO auth_users (username, password_hash, organization_id, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	err := s.db.QueryRowContext(ctx, query,
		rec.Username, rec.PasswordHash, rec.OrganizationID, string(rec.Role),
	).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return 0, ErrUsernameTaken
		}
		return 0, fmt.Errorf("insert auth row: %w", err)
	}
	return domain.AuthRowID(id), nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.AuthRowID) (models.AuthRecord, error) {
	query := `
		SELECT id, username, password_hash, organization_id, role
		FROM auth_users
		WHERE id = $1
	`
	rec, err := scanAuthRow(s.db.QueryRowContext(ctx, query, int64(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AuthRecord{}, fmt.Errorf("auth row %d: %w", id, ErrNotFound)
		}
		return models.AuthRecord{}, fmt.Errorf("find auth row: %w", err)
	}
	return rec, nil
}

func (s *Postgres) List(ctx context.Context) ([]models.AuthRecord, error) {
	query := `
		SELECT id, username, password_hash, organization_id, role
		FROM auth_users
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list auth rows: %w", err)
	}
	defer rows.Close()

	var out []models.AuthRecord
	for rows.Next() {
		var rec models.AuthRecord
		var rowID int64
		var role string
		if err := rows.Scan(&rowID, &rec.Username, &rec.PasswordHash, &rec.OrganizationID, &role); err != nil {
			return nil, fmt.Errorf("scan auth row: %w", err)
		}
		rec.ID = domain.AuthRowID(rowID)
		rec.Role = models.Role(role)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list auth rows: %w", err)
	}
	return out, nil
}

func (s *Postgres) Delete(ctx context.Context, id domain.AuthRowID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM auth_users WHERE id = $1`, int64(id))
	if err != nil {
		return false, fmt.Errorf("delete auth row: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete auth row: %w", err)
	}
	return n > 0, nil
}

func scanAuthRow(row *sql.Row) (models.AuthRecord, error) {
	var rec models.AuthRecord
	var rowID int64
	var role string
	if err := row.Scan(&rowID, &rec.Username, &rec.PasswordHash, &rec.OrganizationID, &role); err != nil {
		return models.AuthRecord{}, err
	}
	rec.ID = domain.AuthRowID(rowID)
	rec.Role = models.Role(role)
	return rec, nil
}
