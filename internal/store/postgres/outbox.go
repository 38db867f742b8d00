package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"domainflow/internal/notify"
)

func (s *Store) Append(ctx context.Context, entry *notify.OutboxEntry) error {
	query := `
		INSERT INTO notification_outbox (id, event_type, payload, status, attempts, next_attempt_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		entry.ID, entry.EventType, entry.Payload, entry.Status,
		entry.Attempts, entry.NextAttemptAt, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *Store) Due(ctx context.Context, now time.Time, limit int) ([]*notify.OutboxEntry, error) {
	query := `
		SELECT id, event_type, payload, status, attempts, next_attempt_at, created_at, delivered_at, last_error
		FROM notification_outbox
		WHERE status = $1 AND next_attempt_at <= $2
		ORDER BY created_at
		LIMIT $3
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, notify.StatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("select due outbox entries: %w", err)
	}
	defer rows.Close()

	var out []*notify.OutboxEntry
	for rows.Next() {
		var e notify.OutboxEntry
		if err := rows.Scan(&e.ID, &e.EventType, &e.Payload, &e.Status,
			&e.Attempts, &e.NextAttemptAt, &e.CreatedAt, &e.DeliveredAt, &e.LastError); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *Store) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE notification_outbox SET status = $2, delivered_at = $3 WHERE id = $1`
	res, err := s.execer(ctx).ExecContext(ctx, query, id, notify.StatusDelivered, at)
	if err != nil {
		return fmt.Errorf("mark outbox entry delivered: %w", err)
	}
	return requireRow(res)
}

func (s *Store) Reschedule(ctx context.Context, id uuid.UUID, attempts int, nextAttempt time.Time, lastErr string) error {
	query := `UPDATE notification_outbox SET attempts = $2, next_attempt_at = $3, last_error = $4 WHERE id = $1`
	res, err := s.execer(ctx).ExecContext(ctx, query, id, attempts, nextAttempt, lastErr)
	if err != nil {
		return fmt.Errorf("reschedule outbox entry: %w", err)
	}
	return requireRow(res)
}

func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error {
	query := `UPDATE notification_outbox SET status = $2, attempts = $3, last_error = $4 WHERE id = $1`
	res, err := s.execer(ctx).ExecContext(ctx, query, id, notify.StatusFailed, attempts, lastErr)
	if err != nil {
		return fmt.Errorf("mark outbox entry failed: %w", err)
	}
	return requireRow(res)
}
