// Package scheduler runs delayed tasks with at-least-once delivery.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Queue names used by the services
const (
	QueueHunger    = "hunger"
	QueuePushRetry = "push-retry"
)

// Task statuses
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusRetry   = "retry"
	StatusDone    = "done"
	StatusDead    = "dead"
)

// Task is one scheduled unit of work
type Task struct {
	ID          string          `json:"id"`
	Queue       string          `json:"queue"`
	Payload     json.RawMessage `json:"payload"`
	FireAt      time.Time       `json:"fire_at"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	LastError   string          `json:"last_error,omitempty"`
}

// Decode unmarshals the task payload into v
func (t *Task) Decode(v any) error {
	return json.Unmarshal(t.Payload, v)
}

// Handler processes a task. Handlers must be idempotent.
type Handler func(ctx context.Context, t *Task) error

// Scheduler accepts tasks to run at or after fireAt
type Scheduler interface {
	Schedule(ctx context.Context, queue string, payload any, fireAt time.Time) (string, error)
}

// Queue is a durable task store polled by the worker pool
type Queue interface {
	Scheduler
	// Claim leases the next due task, returning nil when none is due
	Claim(ctx context.Context, now time.Time, lease time.Duration) (*Task, error)
	// Complete marks a task as done
	Complete(ctx context.Context, id string) error
	// Retry puts a task back with its updated attempt count and next fire time
	Retry(ctx context.Context, t *Task) error
	// Bury marks a task as dead
	Bury(ctx context.Context, t *Task) error
}

// ErrPermanent marks a handler failure that must not be retried
var ErrPermanent = errors.New("permanent task failure")

// Permanent wraps err so the worker pool buries the task immediately
func Permanent(err error) error {
	return errors.Join(ErrPermanent, err)
}

// BackoffDuration returns exponential backoff duration for attempt n
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	if attempt > 16 {
		attempt = 16
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	max := 5 * time.Minute
	if d > max {
		return max
	}
	return d
}
