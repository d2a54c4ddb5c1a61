package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/polkiloo/storefront/internal/domain/model"
)

// EnqueueOptions tunes a single enqueue call.
type EnqueueOptions struct {
	// DedupKey makes enqueue idempotent: a second job with the same key is not created.
	DedupKey    string
	MaxAttempts int
	RunAt       time.Time
}

// JobFilter narrows job listings for monitoring.
type JobFilter struct {
	State model.JobState
	Limit int
}

// JobQueue is a durable at-least-once work queue.
type JobQueue interface {
	Enqueue(ctx context.Context, kind model.JobKind, payload json.RawMessage, opts EnqueueOptions) (uuid.UUID, error)
	Claim(ctx context.Context, limit int) ([]model.Job, error)
	Complete(ctx context.Context, id uuid.UUID) error
	Retry(ctx context.Context, id uuid.UUID, runAt time.Time, lastErr string) error
	Fail(ctx context.Context, id uuid.UUID, lastErr string) error
	RequeueStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// JobInspector is the read contract used by queue monitoring.
type JobInspector interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Job, error)
	List(ctx context.Context, filter JobFilter) ([]model.Job, error)
}
