package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue keeps tasks in process memory. Tasks are lost on restart.
type MemoryQueue struct {
	mu          sync.Mutex
	tasks       map[string]*memTask
	maxAttempts int
}

type memTask struct {
	Task
	lockedUntil time.Time
}

// NewMemoryQueue creates an empty in-memory queue
func NewMemoryQueue(maxAttempts int) *MemoryQueue {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &MemoryQueue{tasks: make(map[string]*memTask), maxAttempts: maxAttempts}
}

func (q *MemoryQueue) Schedule(_ context.Context, queue string, payload any, fireAt time.Time) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	id := uuid.New().String()
	q.tasks[id] = &memTask{Task: Task{
		ID:          id,
		Queue:       queue,
		Payload:     body,
		FireAt:      fireAt,
		Status:      StatusQueued,
		MaxAttempts: q.maxAttempts,
	}}
	return id, nil
}

func (q *MemoryQueue) Claim(_ context.Context, now time.Time, lease time.Duration) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*memTask
	for _, t := range q.tasks {
		switch t.Status {
		case StatusQueued, StatusRetry:
			if !t.FireAt.After(now) {
				due = append(due, t)
			}
		case StatusRunning:
			if !t.lockedUntil.After(now) {
				due = append(due, t)
			}
		}
	}
	if len(due) == 0 {
		return nil, nil
	}
	sort.Slice(due, func(i, j int) bool { return due[i].FireAt.Before(due[j].FireAt) })

	t := due[0]
	t.Status = StatusRunning
	t.lockedUntil = now.Add(lease)
	claimed := t.Task
	return &claimed, nil
}

func (q *MemoryQueue) Complete(_ context.Context, id string) error {
	return q.update(id, func(t *memTask) { t.Status = StatusDone })
}

func (q *MemoryQueue) Retry(_ context.Context, in *Task) error {
	return q.update(in.ID, func(t *memTask) {
		t.Status = StatusRetry
		t.Attempts = in.Attempts
		t.FireAt = in.FireAt
		t.LastError = in.LastError
	})
}

func (q *MemoryQueue) Bury(_ context.Context, in *Task) error {
	return q.update(in.ID, func(t *memTask) {
		t.Status = StatusDead
		t.Attempts = in.Attempts
		t.LastError = in.LastError
	})
}

func (q *MemoryQueue) update(id string, fn func(t *memTask)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok {
		return fmt.Errorf("task %s not found", id)
	}
	fn(t)
	t.lockedUntil = time.Time{}
	return nil
}

// Tasks returns a snapshot of every task in a queue, ordered by fire time
func (q *MemoryQueue) Tasks(queue string) []Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []Task
	for _, t := range q.tasks {
		if t.Queue == queue {
			out = append(out, t.Task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out
}
