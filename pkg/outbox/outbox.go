// Package outbox stores domain events in the same transaction as the writes
// that cause them and publishes them afterwards.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ganttservice/pkg/db"
)

// Event statuses.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Schema creates the outbox table.
const Schema = `
        CREATE TABLE IF NOT EXISTS outbox_events (
            id             BIGSERIAL PRIMARY KEY,
            aggregate_type TEXT NOT NULL,
            aggregate_id   BIGINT,
            routing_key    TEXT NOT NULL,
            payload        JSONB NOT NULL,
            status         TEXT NOT NULL DEFAULT 'pending',
            retry_count    INTEGER NOT NULL DEFAULT 0,
            next_retry_at  TIMESTAMPTZ,
            created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`

// Event is one stored event.
type Event struct {
	ID            int64
	AggregateType string
	AggregateID   *int64
	RoutingKey    string
	Payload       json.RawMessage
	Status        string
	RetryCount    int
	NextRetryAt   *time.Time
	CreatedAt     time.Time
}

// Repository reads and updates outbox rows. Enqueue takes the connection
// explicitly so it can join the caller's transaction.
type Repository struct {
	db     db.DBTX
	logger *zap.Logger
}

func NewRepository(conn db.DBTX, logger *zap.Logger) *Repository {
	return &Repository{db: conn, logger: logger}
}

// Enqueue stores payload as a pending event on conn, normally a pgx.Tx.
func (r *Repository) Enqueue(ctx context.Context, conn db.DBTX, aggregateType string, aggregateID int64, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", routingKey, err)
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO outbox_events (aggregate_type, aggregate_id, routing_key, payload, status)
        VALUES ($1, $2, $3, $4, $5)
    `, aggregateType, aggregateID, routingKey, body, StatusPending)
	if err != nil {
		r.logger.Error("Failed to insert outbox event",
			zap.String("routing_key", routingKey),
			zap.Int64("aggregate_id", aggregateID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// Pending returns up to limit events due for delivery, oldest first.
func (r *Repository) Pending(ctx context.Context, limit int) ([]Event, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, aggregate_type, aggregate_id, routing_key, payload, status,
               retry_count, next_retry_at, created_at
        FROM outbox_events
        WHERE status = 'pending'
          AND (next_retry_at IS NULL OR next_retry_at <= NOW())
        ORDER BY id ASC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID,
			&e.AggregateType,
			&e.AggregateID,
			&e.RoutingKey,
			&e.Payload,
			&e.Status,
			&e.RetryCount,
			&e.NextRetryAt,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *Repository) MarkSent(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `
        UPDATE outbox_events
        SET status = 'sent', updated_at = NOW()
        WHERE id = $1
    `, id)
	if err != nil {
		return fmt.Errorf("failed to mark event %d as sent: %w", id, err)
	}
	return nil
}

// MarkFailed counts a delivery attempt. The event is retried with a linear
// backoff of 5s per attempt until maxRetries, then parked as failed.
func (r *Repository) MarkFailed(ctx context.Context, id int64, maxRetries int) error {
	_, err := r.db.Exec(ctx, `
        UPDATE outbox_events
        SET retry_count   = retry_count + 1,
            status        = CASE WHEN retry_count + 1 >= $2 THEN 'failed' ELSE 'pending' END,
            next_retry_at = CASE WHEN retry_count + 1 >= $2 THEN NULL
                                 ELSE NOW() + (retry_count + 1) * INTERVAL '5 seconds' END,
            updated_at    = NOW()
        WHERE id = $1
    `, id, maxRetries)
	if err != nil {
		return fmt.Errorf("failed to mark event %d as failed: %w", id, err)
	}
	return nil
}
