package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
)

// Options tunes polling, concurrency and retries.
type Options struct {
	PollInterval time.Duration
	BatchSize    int
	Workers      int
	MaxAttempts  int
	BackoffBase  time.Duration
	BackoffMax   time.Duration
	JobTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 1
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 1
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffMax < o.BackoffBase {
		o.BackoffMax = o.BackoffBase
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = 30 * time.Second
	}
	return o
}

// JobProcessor claims queued jobs and runs them on a bounded worker pool.
type JobProcessor struct {
	queue    repository.JobQueue
	handlers map[model.JobKind]Handler
	opts     Options
	logger   *slog.Logger
	now      func() time.Time

	jobs   chan model.Job
	busy   atomic.Int32
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewJobProcessor constructs the processor. Jobs of kinds without a handler are dead-lettered.
func NewJobProcessor(queue repository.JobQueue, handlers map[model.JobKind]Handler, opts Options, logger *slog.Logger) *JobProcessor {
	opts = opts.withDefaults()
	return &JobProcessor{
		queue:    queue,
		handlers: handlers,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		jobs:     make(chan model.Job),
	}
}

// Start launches background processing.
func (p *JobProcessor) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx)
	}

	p.wg.Add(1)
	go p.dispatch(runCtx)
}

// Stop waits for all workers to finish. Jobs interrupted by Stop stay active
// and are requeued by the next processor that sweeps stale jobs.
func (p *JobProcessor) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *JobProcessor) dispatch(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.jobs)

	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()
	sweeper := time.NewTicker(p.staleAfter())
	defer sweeper.Stop()

	p.requeueStale(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetchAndDispatch(ctx)
		case <-sweeper.C:
			p.requeueStale(ctx)
		}
	}
}

func (p *JobProcessor) staleAfter() time.Duration {
	return 2 * p.opts.JobTimeout
}

// fetchAndDispatch claims no more jobs than there are idle workers so claimed
// jobs never wait in a buffer long enough to look abandoned.
func (p *JobProcessor) fetchAndDispatch(ctx context.Context) {
	idle := p.opts.Workers - int(p.busy.Load())
	if idle <= 0 {
		return
	}
	jobs, err := p.queue.Claim(ctx, min(idle, p.opts.BatchSize))
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("claim jobs failed", slog.String("error", err.Error()))
		}
		return
	}
	for _, job := range jobs {
		p.busy.Add(1)
		select {
		case <-ctx.Done():
			p.busy.Add(-1)
			return
		case p.jobs <- job:
		}
	}
}

func (p *JobProcessor) requeueStale(ctx context.Context) {
	n, err := p.queue.RequeueStale(ctx, p.staleAfter())
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("requeue stale jobs failed", slog.String("error", err.Error()))
		}
		return
	}
	if n > 0 {
		p.logger.Warn("requeued stale jobs", slog.Int("count", n))
	}
}

func (p *JobProcessor) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.process(ctx, job)
			p.busy.Add(-1)
		}
	}
}

func (p *JobProcessor) process(ctx context.Context, job model.Job) {
	// Queue bookkeeping must land even when shutdown cancelled the run context.
	bookkeeping := context.WithoutCancel(ctx)

	handler, ok := p.handlers[job.Kind]
	if !ok {
		p.fail(bookkeeping, job, nil, fmt.Errorf("%w: %s", domainErrors.ErrUnknownJobKind, job.Kind))
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, p.opts.JobTimeout)
	err := handler.Handle(jobCtx, job)
	cancel()

	if err == nil {
		if err := p.queue.Complete(bookkeeping, job.ID); err != nil {
			p.logger.Error("complete job failed", slog.String("job_id", job.ID.String()), slog.String("error", err.Error()))
		}
		return
	}

	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = p.opts.MaxAttempts
	}
	if domainErrors.IsBusiness(err) || job.Attempts >= maxAttempts {
		p.fail(bookkeeping, job, handler, err)
		return
	}

	delay := Backoff(job.Attempts, p.opts.BackoffBase, p.opts.BackoffMax)
	p.logger.Warn("job failed, retrying",
		slog.String("job_id", job.ID.String()),
		slog.String("kind", string(job.Kind)),
		slog.Int("attempt", job.Attempts),
		slog.Duration("delay", delay),
		slog.String("error", err.Error()),
	)
	if err := p.queue.Retry(bookkeeping, job.ID, p.now().Add(delay), err.Error()); err != nil {
		p.logger.Error("retry job failed", slog.String("job_id", job.ID.String()), slog.String("error", err.Error()))
	}
}

func (p *JobProcessor) fail(ctx context.Context, job model.Job, handler Handler, cause error) {
	p.logger.Error("job dead-lettered",
		slog.String("job_id", job.ID.String()),
		slog.String("kind", string(job.Kind)),
		slog.Int("attempts", job.Attempts),
		slog.String("error", cause.Error()),
	)
	if err := p.queue.Fail(ctx, job.ID, cause.Error()); err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
		p.logger.Error("fail job failed", slog.String("job_id", job.ID.String()), slog.String("error", err.Error()))
	}
	if exhausted, ok := handler.(ExhaustedHandler); ok {
		exhausted.OnExhausted(ctx, job, cause)
	}
}

// Backoff returns min(base*2^(attempt-1), max).
func Backoff(attempt int, base, limit time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		if delay >= limit/2 {
			return limit
		}
		delay *= 2
	}
	if delay > limit {
		return limit
	}
	return delay
}
