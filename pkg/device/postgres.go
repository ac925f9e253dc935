package device

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists device tokens in the device_tokens table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a registry on an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Register(ctx context.Context, userID uuid.UUID, platform Platform, token string) (Token, error) {
	if !validPlatform(platform) {
		return Token{}, ErrInvalidPlatform
	}
	if strings.TrimSpace(token) == "" {
		return Token{}, ErrEmptyToken
	}

	query := `
		INSERT INTO device_tokens (id, user_id, platform, token, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, now(), now())
		ON CONFLICT (platform, token)
		DO UPDATE SET user_id = EXCLUDED.user_id, active = TRUE, updated_at = now()
		RETURNING id, user_id, platform, token, active, created_at, updated_at`

	var t Token
	err := s.pool.QueryRow(ctx, query, uuid.New(), userID, string(platform), token).Scan(
		&t.ID, &t.UserID, &t.Platform, &t.Token, &t.Active, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return Token{}, errors.Join(ErrStorageFailure, err)
	}
	return t, nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, platform Platform, token string) error {
	query := `UPDATE device_tokens SET active = FALSE, updated_at = now() WHERE platform = $1 AND token = $2`

	tag, err := s.pool.Exec(ctx, query, string(platform), token)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, platform Platform, token string) error {
	query := `DELETE FROM device_tokens WHERE platform = $1 AND token = $2`

	tag, err := s.pool.Exec(ctx, query, string(platform), token)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (s *PostgresStore) ActiveForUser(ctx context.Context, userID uuid.UUID, platform Platform) ([]Token, error) {
	query := `
		SELECT id, user_id, platform, token, active, created_at, updated_at
		FROM device_tokens
		WHERE user_id = $1 AND platform = $2 AND active
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, userID, string(platform))
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	defer rows.Close()

	var out []Token
	for rows.Next() {
		var t Token
		if err := rows.Scan(&t.ID, &t.UserID, &t.Platform, &t.Token, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, errors.Join(ErrStorageFailure, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return out, nil
}
