package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresQueue stores tasks in the scheduled_tasks table
type PostgresQueue struct {
	db          *pgxpool.Pool
	maxAttempts int
	now         func() time.Time
}

// NewPostgresQueue creates a queue on top of the pool
func NewPostgresQueue(db *pgxpool.Pool, maxAttempts int) *PostgresQueue {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &PostgresQueue{db: db, maxAttempts: maxAttempts, now: time.Now}
}

// Schedule inserts a task and returns its ID
func (q *PostgresQueue) Schedule(ctx context.Context, queue string, payload any, fireAt time.Time) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}

	id := uuid.New().String()
	now := q.now().UTC()
	query := `
		INSERT INTO scheduled_tasks (id, queue, payload, fire_at, status, attempts, max_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $7)
	`
	if _, err := q.db.Exec(ctx, query, id, queue, body, fireAt.UTC(), StatusQueued, q.maxAttempts, now); err != nil {
		return "", fmt.Errorf("failed to schedule task: %w", err)
	}
	return id, nil
}

// Claim leases the next due task, skipping rows locked by other workers
func (q *PostgresQueue) Claim(ctx context.Context, now time.Time, lease time.Duration) (*Task, error) {
	query := `
		UPDATE scheduled_tasks
		SET status = $3, locked_until = $2, updated_at = $1
		WHERE id = (
			SELECT id FROM scheduled_tasks
			WHERE (status IN ($4, $5) AND fire_at <= $1)
				OR (status = $3 AND locked_until <= $1)
			ORDER BY fire_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, queue, payload, fire_at, status, attempts, max_attempts, COALESCE(last_error, '')
	`
	var t Task
	err := q.db.QueryRow(ctx, query, now.UTC(), now.Add(lease).UTC(), StatusRunning, StatusQueued, StatusRetry).Scan(
		&t.ID, &t.Queue, &t.Payload, &t.FireAt, &t.Status, &t.Attempts, &t.MaxAttempts, &t.LastError,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim task: %w", err)
	}
	return &t, nil
}

// Complete marks a task as done
func (q *PostgresQueue) Complete(ctx context.Context, id string) error {
	query := `UPDATE scheduled_tasks SET status = $2, locked_until = NULL, updated_at = $3 WHERE id = $1`
	if _, err := q.db.Exec(ctx, query, id, StatusDone, q.now().UTC()); err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	return nil
}

// Retry reschedules a task after a failed attempt
func (q *PostgresQueue) Retry(ctx context.Context, t *Task) error {
	query := `
		UPDATE scheduled_tasks
		SET status = $2, attempts = $3, fire_at = $4, last_error = $5, locked_until = NULL, updated_at = $6
		WHERE id = $1
	`
	_, err := q.db.Exec(ctx, query, t.ID, StatusRetry, t.Attempts, t.FireAt.UTC(), t.LastError, q.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to retry task: %w", err)
	}
	return nil
}

// Bury marks a task as dead so it is never claimed again
func (q *PostgresQueue) Bury(ctx context.Context, t *Task) error {
	query := `
		UPDATE scheduled_tasks
		SET status = $2, attempts = $3, last_error = $4, locked_until = NULL, updated_at = $5
		WHERE id = $1
	`
	if _, err := q.db.Exec(ctx, query, t.ID, StatusDead, t.Attempts, t.LastError, q.now().UTC()); err != nil {
		return fmt.Errorf("failed to bury task: %w", err)
	}
	return nil
}
