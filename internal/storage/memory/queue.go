package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
)

const defaultMaxAttempts = 5

// Queue is an in-process job queue with the same state machine as the jobs table.
type Queue struct {
	mu    sync.Mutex
	jobs  map[uuid.UUID]*model.Job
	dedup map[string]uuid.UUID
	seq   map[uuid.UUID]int
	next  int
	now   func() time.Time
}

var (
	_ repository.JobQueue     = (*Queue)(nil)
	_ repository.JobInspector = (*Queue)(nil)
)

func NewQueue() *Queue {
	return &Queue{
		jobs:  map[uuid.UUID]*model.Job{},
		dedup: map[string]uuid.UUID{},
		seq:   map[uuid.UUID]int{},
		now:   time.Now,
	}
}

// SetClock replaces the time source.
func (q *Queue) SetClock(now func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
}

func (q *Queue) Enqueue(_ context.Context, kind model.JobKind, payload json.RawMessage, opts repository.EnqueueOptions) (uuid.UUID, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if opts.DedupKey != "" {
		if id, ok := q.dedup[opts.DedupKey]; ok {
			return id, nil
		}
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	now := q.now()
	runAt := opts.RunAt
	if runAt.IsZero() {
		runAt = now
	}
	job := &model.Job{
		ID:          uuid.New(),
		Kind:        kind,
		Payload:     append(json.RawMessage(nil), payload...),
		State:       model.JobStateWaiting,
		MaxAttempts: maxAttempts,
		DedupKey:    opts.DedupKey,
		RunAt:       runAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	q.jobs[job.ID] = job
	q.next++
	q.seq[job.ID] = q.next
	if opts.DedupKey != "" {
		q.dedup[opts.DedupKey] = job.ID
	}
	return job.ID, nil
}

func (q *Queue) Claim(_ context.Context, limit int) ([]model.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var due []*model.Job
	for _, j := range q.jobs {
		if j.State == model.JobStateWaiting && !j.RunAt.After(now) {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(a, b int) bool {
		if !due[a].RunAt.Equal(due[b].RunAt) {
			return due[a].RunAt.Before(due[b].RunAt)
		}
		return q.seq[due[a].ID] < q.seq[due[b].ID]
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]model.Job, 0, len(due))
	for _, j := range due {
		j.State = model.JobStateActive
		j.Attempts++
		j.UpdatedAt = now
		claimed = append(claimed, *j)
	}
	return claimed, nil
}

func (q *Queue) Complete(_ context.Context, id uuid.UUID) error {
	return q.finish(id, func(j *model.Job, now time.Time) {
		j.State = model.JobStateCompleted
		j.LastError = ""
		j.FinishedAt = &now
	})
}

func (q *Queue) Retry(_ context.Context, id uuid.UUID, runAt time.Time, lastErr string) error {
	return q.finish(id, func(j *model.Job, _ time.Time) {
		j.State = model.JobStateWaiting
		j.RunAt = runAt
		j.LastError = lastErr
	})
}

func (q *Queue) Fail(_ context.Context, id uuid.UUID, lastErr string) error {
	return q.finish(id, func(j *model.Job, now time.Time) {
		j.State = model.JobStateFailed
		j.LastError = lastErr
		j.FinishedAt = &now
	})
}

func (q *Queue) finish(id uuid.UUID, apply func(*model.Job, time.Time)) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok || j.State != model.JobStateActive {
		return fmt.Errorf("active job %s: %w", id, domainErrors.ErrNotFound)
	}
	now := q.now()
	apply(j, now)
	j.UpdatedAt = now
	return nil
}

func (q *Queue) RequeueStale(_ context.Context, olderThan time.Duration) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	cutoff := now.Add(-olderThan)
	n := 0
	for _, j := range q.jobs {
		if j.State == model.JobStateActive && j.UpdatedAt.Before(cutoff) {
			j.State = model.JobStateWaiting
			j.RunAt = now
			j.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (q *Queue) Get(_ context.Context, id uuid.UUID) (*model.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (q *Queue) List(_ context.Context, filter repository.JobFilter) ([]model.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []model.Job
	for _, j := range q.jobs {
		if filter.State == "" || j.State == filter.State {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return q.seq[out[a].ID] > q.seq[out[b].ID] })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
