package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
)

const (
	defaultMaxAttempts = 5
	defaultListLimit   = 50
)

const selectJob = `SELECT id, kind, payload, state, attempts, max_attempts, COALESCE(dedup_key, ''),
                          last_error, run_at, created_at, updated_at, finished_at
                   FROM jobs`

// JobQueue is a durable at-least-once queue stored in the jobs table.
// Workers claim with FOR UPDATE SKIP LOCKED so competing pollers never
// receive the same job.
type JobQueue struct {
	storage     *Storage
	now         func() time.Time
	maxAttempts int
}

var (
	_ repository.JobQueue     = (*JobQueue)(nil)
	_ repository.JobInspector = (*JobQueue)(nil)
)

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		j       model.Job
		payload []byte
	)
	err := row.Scan(&j.ID, &j.Kind, &payload, &j.State, &j.Attempts, &j.MaxAttempts, &j.DedupKey,
		&j.LastError, &j.RunAt, &j.CreatedAt, &j.UpdatedAt, &j.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	j.Payload = json.RawMessage(payload)
	return &j, nil
}

// Enqueue stores a waiting job. A repeated DedupKey returns the id of the job already stored.
func (q *JobQueue) Enqueue(ctx context.Context, kind model.JobKind, payload json.RawMessage, opts repository.EnqueueOptions) (uuid.UUID, error) {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = q.maxAttempts
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	runAt := opts.RunAt
	if runAt.IsZero() {
		runAt = q.now()
	}

	const insert = `INSERT INTO jobs (id, kind, payload, state, max_attempts, dedup_key, run_at)
                    VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
                    ON CONFLICT (dedup_key) DO NOTHING
                    RETURNING id`
	id := uuid.New()
	err := q.storage.pool.QueryRow(ctx, insert, id, kind, []byte(payload), model.JobStateWaiting, maxAttempts, opts.DedupKey, runAt).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) || opts.DedupKey == "" {
		return uuid.Nil, fmt.Errorf("enqueue %s: %w", kind, err)
	}

	var existing uuid.UUID
	if err := q.storage.pool.QueryRow(ctx, `SELECT id FROM jobs WHERE dedup_key=$1`, opts.DedupKey).Scan(&existing); err != nil {
		return uuid.Nil, fmt.Errorf("lookup job %s: %w", opts.DedupKey, err)
	}
	return existing, nil
}

// Claim moves up to limit due jobs to active and bumps their attempt counter.
func (q *JobQueue) Claim(ctx context.Context, limit int) ([]model.Job, error) {
	const selectQuery = selectJob + `
                         WHERE state=$1 AND run_at <= $2
                         ORDER BY run_at
                         LIMIT $3
                         FOR UPDATE SKIP LOCKED`
	const claimQuery = `UPDATE jobs SET state=$1, attempts=attempts+1, updated_at=$2 WHERE id = ANY($3)`

	now := q.now()
	var jobs []model.Job
	err := q.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, selectQuery, model.JobStateWaiting, now, limit)
		if err != nil {
			return err
		}
		for rows.Next() {
			j, err := scanJob(rows)
			if err != nil {
				rows.Close()
				return err
			}
			jobs = append(jobs, *j)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(jobs) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, len(jobs))
		for i := range jobs {
			ids[i] = jobs[i].ID
		}
		if _, err := tx.Exec(ctx, claimQuery, model.JobStateActive, now, ids); err != nil {
			return err
		}
		for i := range jobs {
			jobs[i].State = model.JobStateActive
			jobs[i].Attempts++
			jobs[i].UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (q *JobQueue) Complete(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE jobs SET state=$1, last_error='', finished_at=$2, updated_at=$2 WHERE id=$3 AND state=$4`
	return q.transition(ctx, id, query, model.JobStateCompleted, q.now(), id, model.JobStateActive)
}

func (q *JobQueue) Retry(ctx context.Context, id uuid.UUID, runAt time.Time, lastErr string) error {
	const query = `UPDATE jobs SET state=$1, run_at=$2, last_error=$3, updated_at=$4 WHERE id=$5 AND state=$6`
	return q.transition(ctx, id, query, model.JobStateWaiting, runAt, lastErr, q.now(), id, model.JobStateActive)
}

func (q *JobQueue) Fail(ctx context.Context, id uuid.UUID, lastErr string) error {
	const query = `UPDATE jobs SET state=$1, last_error=$2, finished_at=$3, updated_at=$3 WHERE id=$4 AND state=$5`
	return q.transition(ctx, id, query, model.JobStateFailed, lastErr, q.now(), id, model.JobStateActive)
}

func (q *JobQueue) transition(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	tag, err := q.storage.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("active job %s: %w", id, domainErrors.ErrNotFound)
	}
	return nil
}

// RequeueStale returns jobs that stayed active longer than olderThan to the waiting state.
func (q *JobQueue) RequeueStale(ctx context.Context, olderThan time.Duration) (int, error) {
	const query = `UPDATE jobs SET state=$1, run_at=$2, updated_at=$2 WHERE state=$3 AND updated_at < $4`
	now := q.now()
	tag, err := q.storage.pool.Exec(ctx, query, model.JobStateWaiting, now, model.JobStateActive, now.Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("requeue stale jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// --- JobInspector implementation ---

func (q *JobQueue) Get(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	return scanJob(q.storage.pool.QueryRow(ctx, selectJob+` WHERE id=$1`, id))
}

func (q *JobQueue) List(ctx context.Context, filter repository.JobFilter) ([]model.Job, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var (
		rows pgx.Rows
		err  error
	)
	if filter.State != "" {
		rows, err = q.storage.pool.Query(ctx, selectJob+` WHERE state=$1 ORDER BY created_at DESC LIMIT $2`, filter.State, limit)
	} else {
		rows, err = q.storage.pool.Query(ctx, selectJob+` ORDER BY created_at DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
