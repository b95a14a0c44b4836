package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boostcampwm2025/ios02-damago/internal/metrics"
)

// Options tune the worker pool
type Options struct {
	Workers      int
	PollInterval time.Duration
	Lease        time.Duration
	Now          func() time.Time
}

// WorkerPool polls a queue and dispatches due tasks to handlers by queue name
type WorkerPool struct {
	queue    Queue
	handlers map[string]Handler
	opts     Options

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWorkerPool creates a pool; call Start to launch the workers
func NewWorkerPool(queue Queue, handlers map[string]Handler, opts Options) *WorkerPool {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.Lease <= 0 {
		opts.Lease = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &WorkerPool{queue: queue, handlers: handlers, opts: opts, stop: make(chan struct{})}
}

// Start launches the worker goroutines
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop signals workers to stop and waits for them
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-p.stop:
			log.Debug().Int("worker", id).Msg("Worker stopping")
			return
		case <-ctx.Done():
			log.Debug().Int("worker", id).Msg("Context canceled, worker exiting")
			return
		case <-timer.C:
		}

		// drain everything that is due before sleeping again
		for p.RunOnce(ctx) {
			select {
			case <-p.stop:
				return
			default:
			}
		}
		timer.Reset(p.opts.PollInterval)
	}
}

// RunOnce claims and processes at most one task. It reports whether a task
// was found.
func (p *WorkerPool) RunOnce(ctx context.Context) bool {
	task, err := p.queue.Claim(ctx, p.opts.Now(), p.opts.Lease)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Msg("Failed to claim task")
		}
		return false
	}
	if task == nil {
		return false
	}

	logger := log.With().Str("task_id", task.ID).Str("queue", task.Queue).Int("attempts", task.Attempts).Logger()

	h, ok := p.handlers[task.Queue]
	if !ok {
		task.LastError = "no handler for queue"
		if err := p.queue.Bury(ctx, task); err != nil {
			logger.Error().Err(err).Msg("Failed to bury task")
		}
		metrics.TasksProcessed.WithLabelValues(task.Queue, "dead").Inc()
		logger.Warn().Msg("No handler registered, task buried")
		return true
	}

	err = h(ctx, task)
	if err == nil {
		if err := p.queue.Complete(ctx, task.ID); err != nil {
			logger.Error().Err(err).Msg("Failed to complete task")
		}
		metrics.TasksProcessed.WithLabelValues(task.Queue, "done").Inc()
		return true
	}

	task.Attempts++
	task.LastError = err.Error()
	if errors.Is(err, ErrPermanent) || task.Attempts >= task.MaxAttempts {
		if err := p.queue.Bury(ctx, task); err != nil {
			logger.Error().Err(err).Msg("Failed to bury task")
		}
		metrics.TasksProcessed.WithLabelValues(task.Queue, "dead").Inc()
		logger.Error().Err(err).Msg("Task failed permanently")
		return true
	}

	task.FireAt = p.opts.Now().Add(BackoffDuration(task.Attempts))
	if err := p.queue.Retry(ctx, task); err != nil {
		logger.Error().Err(err).Msg("Failed to reschedule task")
	}
	metrics.TasksProcessed.WithLabelValues(task.Queue, "retry").Inc()
	logger.Warn().Err(err).Time("next_try", task.FireAt).Msg("Task failed, will retry")
	return true
}
