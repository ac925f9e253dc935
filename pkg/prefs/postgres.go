package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/pg"
)

// PostgresStore persists preferences in the notification_preferences table.
// The per-type maps live in JSONB columns so new notification types never
// need a schema change.
type PostgresStore struct {
	pool     *pgxpool.Pool
	defaults func(uuid.UUID) Preferences
}

// NewPostgresStore creates a store on an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool, opts ...StoreOption) *PostgresStore {
	settings := newStoreSettings(opts)
	return &PostgresStore{pool: pool, defaults: settings.defaults}
}

const prefsColumns = `user_id, type_enabled, type_method, general_method,
	quiet_hours_enabled, quiet_hours_start, quiet_hours_end, timezone,
	caps_enabled, max_per_hour, max_per_day,
	digest_enabled, digest_interval, language, updated_at`

func (s *PostgresStore) Get(ctx context.Context, userID uuid.UUID) (Preferences, error) {
	query := `SELECT ` + prefsColumns + ` FROM notification_preferences WHERE user_id = $1`

	p, err := scanPreferences(s.pool.QueryRow(ctx, query, userID))
	if pg.IsNotFoundError(err) {
		return s.defaults(userID), nil
	}
	if err != nil {
		return Preferences{}, errors.Join(ErrStorageFailure, err)
	}
	return p, nil
}

func (s *PostgresStore) Save(ctx context.Context, p Preferences) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now()

	if err := s.upsert(ctx, s.pool, p); err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

// Patch loads the row under lock, merges the partial update, and writes the
// result back in one transaction so concurrent patches don't clobber each
// other.
func (s *PostgresStore) Patch(ctx context.Context, userID uuid.UUID, patch Patch) (Preferences, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Preferences{}, errors.Join(ErrStorageFailure, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `SELECT ` + prefsColumns + ` FROM notification_preferences WHERE user_id = $1 FOR UPDATE`

	p, err := scanPreferences(tx.QueryRow(ctx, query, userID))
	if pg.IsNotFoundError(err) {
		p = s.defaults(userID)
	} else if err != nil {
		return Preferences{}, errors.Join(ErrStorageFailure, err)
	}

	p = patch.apply(p)
	if err := p.Validate(); err != nil {
		return Preferences{}, err
	}
	p.UpdatedAt = time.Now()

	if err := s.upsert(ctx, tx, p); err != nil {
		return Preferences{}, errors.Join(ErrStorageFailure, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Preferences{}, errors.Join(ErrStorageFailure, err)
	}
	return p, nil
}

// execer is the slice of pgx shared by *pgxpool.Pool and pgx.Tx that upsert
// needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *PostgresStore) upsert(ctx context.Context, db execer, p Preferences) error {
	typeEnabled, err := json.Marshal(p.TypeEnabled)
	if err != nil {
		return fmt.Errorf("marshal type_enabled: %w", err)
	}
	typeMethod, err := json.Marshal(p.TypeMethod)
	if err != nil {
		return fmt.Errorf("marshal type_method: %w", err)
	}

	query := `
		INSERT INTO notification_preferences (` + prefsColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (user_id) DO UPDATE SET
			type_enabled = EXCLUDED.type_enabled,
			type_method = EXCLUDED.type_method,
			general_method = EXCLUDED.general_method,
			quiet_hours_enabled = EXCLUDED.quiet_hours_enabled,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			timezone = EXCLUDED.timezone,
			caps_enabled = EXCLUDED.caps_enabled,
			max_per_hour = EXCLUDED.max_per_hour,
			max_per_day = EXCLUDED.max_per_day,
			digest_enabled = EXCLUDED.digest_enabled,
			digest_interval = EXCLUDED.digest_interval,
			language = EXCLUDED.language,
			updated_at = EXCLUDED.updated_at`

	_, err = db.Exec(ctx, query,
		p.UserID, typeEnabled, typeMethod, string(p.GeneralMethod),
		p.QuietHoursEnabled, p.QuietHoursStart, p.QuietHoursEnd, p.Timezone,
		p.CapsEnabled, p.MaxPerHour, p.MaxPerDay,
		p.DigestEnabled, string(p.DigestInterval), p.Language, p.UpdatedAt,
	)
	return err
}

func scanPreferences(row pgx.Row) (Preferences, error) {
	var (
		p           Preferences
		typeEnabled []byte
		typeMethod  []byte
	)
	err := row.Scan(
		&p.UserID, &typeEnabled, &typeMethod, &p.GeneralMethod,
		&p.QuietHoursEnabled, &p.QuietHoursStart, &p.QuietHoursEnd, &p.Timezone,
		&p.CapsEnabled, &p.MaxPerHour, &p.MaxPerDay,
		&p.DigestEnabled, &p.DigestInterval, &p.Language, &p.UpdatedAt,
	)
	if err != nil {
		return Preferences{}, err
	}
	if err := json.Unmarshal(typeEnabled, &p.TypeEnabled); err != nil {
		return Preferences{}, fmt.Errorf("unmarshal type_enabled: %w", err)
	}
	if err := json.Unmarshal(typeMethod, &p.TypeMethod); err != nil {
		return Preferences{}, fmt.Errorf("unmarshal type_method: %w", err)
	}
	return p, nil
}
