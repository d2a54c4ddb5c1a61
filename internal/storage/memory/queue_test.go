package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
)

func TestQueueLifecycle(t *testing.T) {
	q := NewQueue()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	q.SetClock(func() time.Time { return now })
	ctx := context.Background()

	id, err := q.Enqueue(ctx, model.JobKindCreateOrder, json.RawMessage(`{}`), repository.EnqueueOptions{DedupKey: "order:r1", MaxAttempts: 2})
	require.NoError(t, err)
	again, err := q.Enqueue(ctx, model.JobKindCreateOrder, json.RawMessage(`{}`), repository.EnqueueOptions{DedupKey: "order:r1"})
	require.NoError(t, err)
	require.Equal(t, id, again)

	jobs, err := q.Claim(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, 1, jobs[0].Attempts)
	require.Equal(t, model.JobStateActive, jobs[0].State)

	jobs, err = q.Claim(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, jobs)

	require.NoError(t, q.Retry(ctx, id, now.Add(time.Minute), "conn reset"))
	jobs, err = q.Claim(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, jobs, "retry is not due yet")

	now = now.Add(time.Minute)
	jobs, err = q.Claim(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, 2, jobs[0].Attempts)

	require.NoError(t, q.Fail(ctx, id, "gave up"))
	require.ErrorIs(t, q.Complete(ctx, id), domainErrors.ErrNotFound)

	job, err := q.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, model.JobStateFailed, job.State)
	require.Equal(t, "gave up", job.LastError)
	require.NotNil(t, job.FinishedAt)

	failed, err := q.List(ctx, repository.JobFilter{State: model.JobStateFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
}

func TestQueueClaimOrderAndLimit(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		id, err := q.Enqueue(ctx, model.JobKindSendEmail, nil, repository.EnqueueOptions{RunAt: time.Unix(100, 0)})
		require.NoError(t, err)
		ids = append(ids, id.String())
	}

	jobs, err := q.Claim(ctx, 2)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	require.Equal(t, ids[0], jobs[0].ID.String())
	require.Equal(t, ids[1], jobs[1].ID.String())
	require.Equal(t, defaultMaxAttempts, jobs[0].MaxAttempts)

	require.NoError(t, q.Complete(ctx, jobs[0].ID))
	all, err := q.List(ctx, repository.JobFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, ids[2], all[0].ID.String())
}

func TestQueueRequeueStale(t *testing.T) {
	q := NewQueue()
	now := time.Unix(1000, 0)
	q.SetClock(func() time.Time { return now })
	ctx := context.Background()

	_, err := q.Enqueue(ctx, model.JobKindCreateOrder, nil, repository.EnqueueOptions{})
	require.NoError(t, err)
	_, err = q.Claim(ctx, 1)
	require.NoError(t, err)

	n, err := q.RequeueStale(ctx, time.Minute)
	require.NoError(t, err)
	require.Zero(t, n)

	now = now.Add(2 * time.Minute)
	n, err = q.RequeueStale(ctx, time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	jobs, err := q.Claim(ctx, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, 2, jobs[0].Attempts)

	_, err = q.Get(ctx, uuid.Nil)
	require.ErrorIs(t, err, domainErrors.ErrNotFound)
}
