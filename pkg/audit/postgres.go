package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const auditColumns = `id, notification_id, user_id, notification_type, provider, result, reason, error, latency_ms, created_at`

const auditInsert = `
	INSERT INTO delivery_audit (` + auditColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// PostgresStorage persists audit events in the delivery_audit table.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates an audit store on an existing connection pool.
func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

func (s *PostgresStorage) Store(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, auditInsert, insertArgs(event)...)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

func (s *PostgresStorage) StoreBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return err
		}
	}

	// A pgx batch runs in one implicit transaction: all events or none.
	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(auditInsert, insertArgs(e)...)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range events {
		if _, err := results.Exec(); err != nil {
			return errors.Join(ErrStorageFailure, err)
		}
	}
	return nil
}

func (s *PostgresStorage) Query(ctx context.Context, criteria Criteria) ([]Event, error) {
	where, args := buildWhere(criteria)

	args = append(args, max(criteria.Limit, 0))
	limitArg := len(args)
	args = append(args, max(criteria.Offset, 0))
	offsetArg := len(args)

	query := fmt.Sprintf(`
		SELECT %s FROM delivery_audit%s
		ORDER BY created_at DESC
		LIMIT NULLIF($%d, 0) OFFSET $%d`, auditColumns, where, limitArg, offsetArg)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var notificationID *uuid.UUID
		err := rows.Scan(
			&e.ID, &notificationID, &e.UserID, &e.NotificationType, &e.Provider,
			&e.Result, &e.Reason, &e.Error, &e.LatencyMS, &e.CreatedAt,
		)
		if err != nil {
			return nil, errors.Join(ErrStorageFailure, err)
		}
		if notificationID != nil {
			e.NotificationID = *notificationID
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return out, nil
}

func (s *PostgresStorage) Count(ctx context.Context, criteria Criteria) (int64, error) {
	where, args := buildWhere(criteria)

	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM delivery_audit`+where, args...).Scan(&n)
	if err != nil {
		return 0, errors.Join(ErrStorageFailure, err)
	}
	return n, nil
}

func insertArgs(e Event) []any {
	var notificationID *uuid.UUID
	if e.NotificationID != uuid.Nil {
		notificationID = &e.NotificationID
	}
	return []any{
		e.ID, notificationID, e.UserID, e.NotificationType, e.Provider,
		string(e.Result), e.Reason, e.Error, e.LatencyMS, e.CreatedAt,
	}
}

func buildWhere(c Criteria) (string, []any) {
	var conds []string
	var args []any
	add := func(expr string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}

	if c.NotificationID != uuid.Nil {
		add("notification_id = $%d", c.NotificationID)
	}
	if c.UserID != uuid.Nil {
		add("user_id = $%d", c.UserID)
	}
	if c.Provider != "" {
		add("provider = $%d", c.Provider)
	}
	if c.NotificationType != "" {
		add("notification_type = $%d", c.NotificationType)
	}
	if c.Result != "" {
		add("result = $%d", string(c.Result))
	}
	if !c.From.IsZero() {
		add("created_at >= $%d", c.From)
	}
	if !c.To.IsZero() {
		add("created_at <= $%d", c.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
