package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/pg"
)

const notificationColumns = `id, user_id, type, title, body, data, priority,
	require_confirmation, preferred_provider, excluded_providers,
	created_at, scheduled_for, expires_at,
	attempt_count, max_attempts, next_retry_at, last_error,
	status, delivered_at, delivery_provider`

// priorityRankSQL orders rows the same way Priority.rank does in memory.
const priorityRankSQL = `CASE priority
	WHEN 'critical' THEN 3
	WHEN 'high' THEN 2
	WHEN 'normal' THEN 1
	ELSE 0 END`

// PostgresStorage persists notifications in the notifications table.
// Transitions rely on conditional UPDATE statements so concurrent workers
// coordinate through row-level atomicity rather than advisory locks.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a notification store on an existing pool.
func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

func (s *PostgresStorage) Create(ctx context.Context, n *Notification) error {
	if err := normalize(n, time.Now()); err != nil {
		return err
	}

	var data []byte
	if len(n.Data) > 0 {
		var err error
		if data, err = json.Marshal(n.Data); err != nil {
			return errors.Join(ErrInvalidNotification, err)
		}
	}

	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := s.pool.Exec(ctx, query,
		n.ID, n.UserID, n.Type, n.Title, n.Body, data, string(n.Priority),
		n.RequireConfirmation, n.PreferredProvider, n.ExcludedProviders,
		n.CreatedAt, n.ScheduledFor, n.ExpiresAt,
		n.AttemptCount, n.MaxAttempts, n.NextRetryAt, n.LastError,
		string(n.Status), n.DeliveredAt, n.DeliveryProvider,
	)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

func (s *PostgresStorage) Get(ctx context.Context, id uuid.UUID) (*Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	n, err := scanNotification(s.pool.QueryRow(ctx, query, id))
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return n, nil
}

func (s *PostgresStorage) Claim(ctx context.Context, id uuid.UUID) (*Notification, error) {
	query := `
		UPDATE notifications SET status = 'processing'
		WHERE id = $1 AND status = 'pending'
		  AND (scheduled_for IS NULL OR scheduled_for <= now())
		  AND (next_retry_at IS NULL OR next_retry_at <= now())
		  AND (expires_at IS NULL OR expires_at > now())
		RETURNING ` + notificationColumns

	n, err := scanNotification(s.pool.QueryRow(ctx, query, id))
	if pg.IsNotFoundError(err) {
		// Lost the race, not due yet, or past TTL. Expire lazily so a
		// stale record cannot be claimed later.
		expire := `
			UPDATE notifications SET status = 'expired'
			WHERE id = $1 AND status IN ('pending', 'processing')
			  AND expires_at IS NOT NULL AND expires_at < now()`
		if _, err := s.pool.Exec(ctx, expire, id); err != nil {
			return nil, errors.Join(ErrStorageFailure, err)
		}
		if _, err := s.status(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrNotClaimable
	}
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return n, nil
}

func (s *PostgresStorage) Deliver(ctx context.Context, id uuid.UUID, provider string) (bool, error) {
	query := `
		UPDATE notifications
		SET status = 'delivered', delivered_at = now(), delivery_provider = $2, next_retry_at = NULL
		WHERE id = $1 AND status = 'processing'`

	tag, err := s.pool.Exec(ctx, query, id, provider)
	if err != nil {
		return false, errors.Join(ErrStorageFailure, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	status, err := s.status(ctx, id)
	if err != nil {
		return false, err
	}
	switch {
	case status == StatusDelivered:
		return false, nil
	case status.Terminal():
		return false, ErrTerminal
	default:
		return false, ErrInvalidTransition
	}
}

func (s *PostgresStorage) Fail(ctx context.Context, id uuid.UUID, cause string, backoff Backoff) (*Notification, error) {
	if backoff.Base <= 0 {
		backoff.Base = DefaultBackoff.Base
	}
	if backoff.Cap <= 0 {
		backoff.Cap = DefaultBackoff.Cap
	}

	// Attempt accounting and the retry-or-fail decision happen in one
	// statement; attempt_count can never drift past max_attempts.
	query := `
		UPDATE notifications
		SET attempt_count = attempt_count + 1,
		    last_error = $2,
		    status = CASE WHEN attempt_count + 1 >= max_attempts
		                  THEN 'failed' ELSE 'pending' END,
		    next_retry_at = CASE WHEN attempt_count + 1 >= max_attempts THEN NULL
		                         ELSE now() + LEAST($3 * POWER(2, attempt_count + 1), $4) * interval '1 second' END
		WHERE id = $1 AND status = 'processing'
		RETURNING ` + notificationColumns

	n, err := scanNotification(s.pool.QueryRow(ctx, query, id, cause, backoff.Base.Seconds(), backoff.Cap.Seconds()))
	if pg.IsNotFoundError(err) {
		status, serr := s.status(ctx, id)
		if serr != nil {
			return nil, serr
		}
		if status.Terminal() {
			return nil, ErrTerminal
		}
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return n, nil
}

func (s *PostgresStorage) Defer(ctx context.Context, id uuid.UUID, until time.Time) error {
	query := `
		UPDATE notifications
		SET status = 'pending', scheduled_for = $2, next_retry_at = NULL
		WHERE id = $1 AND status IN ('pending', 'processing')`

	tag, err := s.pool.Exec(ctx, query, id, until)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := s.status(ctx, id); err != nil {
		return err
	}
	return ErrTerminal
}

func (s *PostgresStorage) Cancel(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE notifications SET status = 'cancelled' WHERE id = $1 AND status = 'pending'`

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	status, err := s.status(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case status == StatusCancelled:
		return nil
	case status == StatusProcessing:
		return ErrInvalidTransition
	default:
		return ErrTerminal
	}
}

func (s *PostgresStorage) DueForDelivery(ctx context.Context, limit int) ([]*Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE status = 'pending' AND next_retry_at IS NULL
		  AND (scheduled_for IS NULL OR scheduled_for <= now())
		  AND (expires_at IS NULL OR expires_at > now())
		ORDER BY ` + priorityRankSQL + ` DESC, created_at ASC
		LIMIT NULLIF($1, 0)`

	return s.list(ctx, query, max(limit, 0))
}

func (s *PostgresStorage) DueForRetry(ctx context.Context, limit int) ([]*Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE status = 'pending' AND next_retry_at IS NOT NULL AND next_retry_at <= now()
		  AND (expires_at IS NULL OR expires_at > now())
		ORDER BY ` + priorityRankSQL + ` DESC, created_at ASC
		LIMIT NULLIF($1, 0)`

	return s.list(ctx, query, max(limit, 0))
}

func (s *PostgresStorage) PendingForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND status = 'pending'
		  AND (scheduled_for IS NULL OR scheduled_for <= now())
		  AND (next_retry_at IS NULL OR next_retry_at <= now())
		  AND (expires_at IS NULL OR expires_at > now())
		ORDER BY ` + priorityRankSQL + ` DESC, created_at ASC
		LIMIT NULLIF($2, 0)`

	return s.list(ctx, query, userID, max(limit, 0))
}

func (s *PostgresStorage) ExpireOverdue(ctx context.Context) (int, error) {
	query := `
		UPDATE notifications SET status = 'expired'
		WHERE status IN ('pending', 'processing')
		  AND expires_at IS NOT NULL AND expires_at < now()`

	tag, err := s.pool.Exec(ctx, query)
	if err != nil {
		return 0, errors.Join(ErrStorageFailure, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStorage) PurgeTerminal(ctx context.Context, olderThan time.Duration) (int, error) {
	query := `
		DELETE FROM notifications
		WHERE status IN ('delivered', 'failed', 'expired', 'cancelled') AND created_at < $1`

	tag, err := s.pool.Exec(ctx, query, time.Now().Add(-olderThan))
	if err != nil {
		return 0, errors.Join(ErrStorageFailure, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStorage) Stats(ctx context.Context) (Stats, error) {
	query := `SELECT status, COUNT(*) FROM notifications GROUP BY status`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return Stats{}, errors.Join(ErrStorageFailure, err)
	}
	defer rows.Close()

	st := Stats{ByStatus: make(map[Status]int)}
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, errors.Join(ErrStorageFailure, err)
		}
		st.ByStatus[status] = count
		st.Total += count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, errors.Join(ErrStorageFailure, err)
	}

	delivered := st.ByStatus[StatusDelivered]
	failed := st.ByStatus[StatusFailed]
	if settled := delivered + failed; settled > 0 {
		st.DeliveryRate = float64(delivered) / float64(settled)
		st.FailureRate = float64(failed) / float64(settled)
	}
	return st, nil
}

// status looks up the current status, mapping a missing row to ErrNotFound.
func (s *PostgresStorage) status(ctx context.Context, id uuid.UUID) (Status, error) {
	var status Status
	err := s.pool.QueryRow(ctx, `SELECT status FROM notifications WHERE id = $1`, id).Scan(&status)
	if pg.IsNotFoundError(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Join(ErrStorageFailure, err)
	}
	return status, nil
}

func (s *PostgresStorage) list(ctx context.Context, query string, args ...any) ([]*Notification, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, errors.Join(ErrStorageFailure, err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return out, nil
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	var data []byte
	err := row.Scan(
		&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &data, &n.Priority,
		&n.RequireConfirmation, &n.PreferredProvider, &n.ExcludedProviders,
		&n.CreatedAt, &n.ScheduledFor, &n.ExpiresAt,
		&n.AttemptCount, &n.MaxAttempts, &n.NextRetryAt, &n.LastError,
		&n.Status, &n.DeliveredAt, &n.DeliveryProvider,
	)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("decode notification data: %w", err)
		}
	}
	return &n, nil
}
