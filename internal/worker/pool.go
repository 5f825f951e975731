// Package worker implements the Worker Pool (C5): N parallel goroutines
// draining an in-memory submission queue with bounded concurrency,
// invoking the Algorithm Runner, and driving the job state machine
// through the Job Store.
//
// Grounded on internal/jobs/worker/worker.go's pool shape (Start spawns
// N goroutines, each running an endless claim-dispatch-recover loop,
// plus a heartbeat-style safety net around handler execution), adapted
// from a DB-claim poll loop to an in-memory channel dequeue — this
// spec's queue lives in the process, not in SQL (§4.5) — and from
// per-goroutine fire-and-forget lifecycle to joint errgroup-managed
// startup/shutdown.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kthendral/optimizehub/internal/domain"
	"github.com/kthendral/optimizehub/internal/jobstore"
	"github.com/kthendral/optimizehub/internal/platform/logger"
)

// ErrQueueFull is returned by Submit when the queue is at capacity
// (§8 "Submission queue at capacity: the next submission is rejected").
var ErrQueueFull = fmt.Errorf("worker: submission queue at capacity")

// Runner is the capability the pool needs from the Algorithm Runner
// (C4). Declared here, on the consumer side, so this package only
// depends on catalog through a narrow interface and can be driven by a
// fake in tests.
type Runner interface {
	Run(ctx context.Context, job *domain.Job) (*domain.Result, *domain.JobError)
}

// Pool is the Worker Pool (C5).
type Pool struct {
	log    *logger.Logger
	store  *jobstore.Store
	runner Runner
	cfg    Config
	queue  chan uuid.UUID

	// submitMu serializes capacity checks against enqueueing so Submit
	// and SubmitBatch never interleave: without it, a batch's "is there
	// room for all of n" check could pass and then lose a slot to a
	// concurrent single Submit before it finishes enqueueing.
	submitMu sync.Mutex
}

// NewPool builds a Pool over store and runner. The queue capacity is
// fixed at construction; Submit rejects once it is full.
func NewPool(log *logger.Logger, store *jobstore.Store, runner Runner, cfg Config) *Pool {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Pool{
		log:    log.With("component", "WorkerPool"),
		store:  store,
		runner: runner,
		cfg:    cfg,
		queue:  make(chan uuid.UUID, cfg.QueueCapacity),
	}
}

// Submit enqueues id for execution. Non-blocking: if the queue is at
// capacity the submission is rejected rather than applying
// backpressure to the caller (§4.5 Backpressure).
func (p *Pool) Submit(id uuid.UUID) error {
	p.submitMu.Lock()
	defer p.submitMu.Unlock()
	return p.submitLocked(id)
}

// SubmitBatch atomically reserves queue capacity for every id before
// enqueueing any of them: either all of ids are accepted, or none are.
// This backs the all-or-nothing "allocate k ids / return {group_id,
// task_ids}" submission contract (§6) — a caller must never observe
// some jobs already running while the rest of the same request was
// rejected.
func (p *Pool) SubmitBatch(ids []uuid.UUID) error {
	p.submitMu.Lock()
	defer p.submitMu.Unlock()

	if cap(p.queue)-len(p.queue) < len(ids) {
		return ErrQueueFull
	}
	for _, id := range ids {
		if err := p.submitLocked(id); err != nil {
			// Not reached in practice: room for every id was checked
			// under submitMu above, and concurrent workers only ever
			// free queue slots.
			return err
		}
	}
	return nil
}

// submitLocked performs the actual non-blocking enqueue. Callers must
// hold submitMu.
func (p *Pool) submitLocked(id uuid.UUID) error {
	select {
	case p.queue <- id:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches cfg.Concurrency worker goroutines under a joint
// errgroup lifecycle and returns it; callers Wait() on shutdown. Each
// goroutine runs until ctx is cancelled.
func (p *Pool) Start(ctx context.Context) *errgroup.Group {
	g, gctx := errgroup.WithContext(ctx)
	p.log.Info("starting worker pool", "concurrency", p.cfg.Concurrency, "queue_capacity", p.cfg.QueueCapacity)
	for i := 0; i < p.cfg.Concurrency; i++ {
		workerID := i + 1
		g.Go(func() error {
			p.runLoop(gctx, workerID)
			return nil
		})
	}
	return g
}

// runLoop dequeues job ids and dispatches them to process, forever,
// until ctx is cancelled.
func (p *Pool) runLoop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			p.log.Info("worker loop stopped", "worker_id", workerID)
			return
		case id := <-p.queue:
			p.dispatch(ctx, workerID, id)
		}
	}
}

// dispatch wraps process with panic recovery: a handler panic fails the
// job instead of crashing the worker goroutine (mirrors the teacher's
// safety net around handler execution).
func (p *Pool) dispatch(ctx context.Context, workerID int, id uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("worker panic recovered", "worker_id", workerID, "job_id", id.String(), "panic", r)
			p.finish(id, nil, domain.NewError(domain.KindRuntime, "worker panic during execution"))
		}
	}()
	p.process(ctx, workerID, id)
}

// process drives one job through STARTED -> terminal, retrying
// transient failures up to cfg.RetryMax times with exponential backoff
// (§4.5 Retries).
func (p *Pool) process(ctx context.Context, workerID int, id uuid.UUID) {
	job, err := p.store.Get(id)
	if err != nil {
		p.log.Warn("dequeued job not found, dropping", "worker_id", workerID, "job_id", id.String())
		return
	}

	for attempt := 1; ; attempt++ {
		if err := p.store.Update(id, func(j *domain.Job) error {
			j.State = domain.Started
			now := time.Now()
			j.StartedAt = &now
			j.Attempts = attempt
			return nil
		}); err != nil {
			p.log.Warn("failed to transition job to STARTED", "worker_id", workerID, "job_id", id.String(), "error", err.Error())
			return
		}

		result, jerr := p.runOnce(ctx, job)

		if jerr != nil && jerr.Kind.Transient() && attempt <= p.cfg.RetryMax {
			backoff := p.cfg.RetryBaseDelay * time.Duration(int64(1)<<uint(attempt-1))
			p.log.Warn("transient job failure, retrying", "worker_id", workerID, "job_id", id.String(), "attempt", attempt, "kind", string(jerr.Kind), "backoff", backoff.String())
			select {
			case <-time.After(backoff):
				continue
			case <-ctx.Done():
				return
			}
		}

		p.finish(id, result, jerr)
		return
	}
}

// runOnce invokes the Algorithm Runner under the job's soft-then-hard
// deadline (§4.5 Timeouts, §9 "Open question — cooperative
// cancellation, resolved"). A soft deadline cancels the context handed
// to the runner so a well-behaved handler can wind down early; either
// deadline makes the attempt FAILURE{timeout} regardless of what the
// runner returns, discarding any partial result.
func (p *Pool) runOnce(ctx context.Context, job *domain.Job) (*domain.Result, *domain.JobError) {
	hardCtx, cancelHard := context.WithTimeout(ctx, p.cfg.HardTimeout)
	defer cancelHard()

	softCtx, cancelSoft := context.WithCancel(hardCtx)
	timer := time.AfterFunc(p.cfg.SoftTimeout, cancelSoft)
	defer timer.Stop()
	defer cancelSoft()

	result, jerr := p.runner.Run(softCtx, job)

	if hardCtx.Err() != nil {
		return nil, domain.NewError(domain.KindTimeout, "hard deadline reached during algorithm execution")
	}
	if softCtx.Err() != nil {
		return nil, domain.NewError(domain.KindTimeout, "soft deadline reached, algorithm execution cancelled")
	}
	return result, jerr
}

// finish writes the terminal state for id, logging (rather than
// failing) a Job Store error — the job may have been evicted
// concurrently, which is not a worker error.
func (p *Pool) finish(id uuid.UUID, result *domain.Result, jerr *domain.JobError) {
	err := p.store.Update(id, func(j *domain.Job) error {
		now := time.Now()
		j.FinishedAt = &now
		if jerr != nil {
			j.State = domain.Failure
			j.Error = jerr
			return nil
		}
		j.State = domain.Success
		j.Result = result
		return nil
	})
	if err != nil {
		p.log.Warn("failed to write terminal job state", "job_id", id.String(), "error", err.Error())
	}
}
