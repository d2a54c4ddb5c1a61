package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/polkiloo/storefront/internal/config"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
)

const orderDedupPrefix = "order:"

// JobUseCase is the producer side of the queue plus its monitoring reads.
type JobUseCase struct {
	queue       repository.JobQueue
	inspector   repository.JobInspector
	maxAttempts int
}

func NewJobUseCase(queue repository.JobQueue, inspector repository.JobInspector, cfg *config.Config) *JobUseCase {
	return &JobUseCase{queue: queue, inspector: inspector, maxAttempts: cfg.JobMaxAttempts}
}

// EnqueueCreateOrder validates the checkout request and queues it. The request
// id doubles as the dedup key so a resubmitted request maps to the same job.
func (u *JobUseCase) EnqueueCreateOrder(ctx context.Context, job model.CreateOrderJob) (uuid.UUID, error) {
	if job.RequestID == "" {
		job.RequestID = uuid.NewString()
	}
	if err := job.Validate(); err != nil {
		return uuid.Nil, err
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode create order job: %w", err)
	}
	return u.queue.Enqueue(ctx, model.JobKindCreateOrder, payload, repository.EnqueueOptions{
		DedupKey:    fmt.Sprintf("%s%d:%s", orderDedupPrefix, job.UserID, job.RequestID),
		MaxAttempts: u.maxAttempts,
	})
}

func (u *JobUseCase) Get(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	return u.inspector.Get(ctx, id)
}

func (u *JobUseCase) List(ctx context.Context, filter repository.JobFilter) ([]model.Job, error) {
	return u.inspector.List(ctx, filter)
}
