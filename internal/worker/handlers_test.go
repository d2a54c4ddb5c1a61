package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
	"github.com/polkiloo/storefront/internal/storage/memory"
	"github.com/polkiloo/storefront/internal/usecase"
)

type recordingPublisher struct {
	mu        sync.Mutex
	outcomes  []model.OrderOutcome
	inventory []model.InventoryChanged
	err       error
}

func (p *recordingPublisher) OrderOutcome(_ context.Context, outcome model.OrderOutcome) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes = append(p.outcomes, outcome)
	return p.err
}

func (p *recordingPublisher) InventoryChanged(_ context.Context, event model.InventoryChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inventory = append(p.inventory, event)
	return p.err
}

type assemblerFunc func(context.Context, model.CreateOrderJob) (*usecase.Checkout, error)

func (f assemblerFunc) Assemble(ctx context.Context, job model.CreateOrderJob) (*usecase.Checkout, error) {
	return f(ctx, job)
}

type recordingNotifier struct {
	sent []string
	err  error
}

func (n *recordingNotifier) OrderConfirmation(_ context.Context, account model.Account, order model.Order) error {
	n.sent = append(n.sent, account.Email+":"+order.OrderNumber)
	return n.err
}

func createOrderJob(t *testing.T, payload model.CreateOrderJob) model.Job {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return model.Job{ID: uuid.New(), Kind: model.JobKindCreateOrder, Payload: data, Attempts: 1}
}

func samplePayload() model.CreateOrderJob {
	return model.CreateOrderJob{
		RequestID:     "req-1",
		UserID:        7,
		Items:         []model.LineItem{{ProductID: 1, VariantID: 10, Quantity: 1}},
		PaymentMethod: model.PaymentMethodCard,
	}
}

func TestCreateOrderHandlerSuccess(t *testing.T) {
	events := &recordingPublisher{}
	queue := memory.NewQueue()
	order := &model.Order{ID: 1, OrderNumber: "ORD-20250101-AAAAAAAA", UserID: 7}
	checkout := assemblerFunc(func(_ context.Context, job model.CreateOrderJob) (*usecase.Checkout, error) {
		require.Equal(t, "req-1", job.RequestID)
		return &usecase.Checkout{Order: order, Inventory: []model.InventoryChanged{{ProductID: 1, VariantID: 10, NewStock: 4}}}, nil
	})
	h := NewCreateOrderHandler(checkout, events, queue, discardLogger())

	require.NoError(t, h.Handle(context.Background(), createOrderJob(t, samplePayload())))

	require.Len(t, events.outcomes, 1)
	require.Equal(t, model.OutcomeSuccess, events.outcomes[0].Status)
	require.Equal(t, "req-1", events.outcomes[0].RequestID)
	require.Same(t, order, events.outcomes[0].Order)
	require.Equal(t, []model.InventoryChanged{{ProductID: 1, VariantID: 10, NewStock: 4}}, events.inventory)

	jobs, err := queue.List(context.Background(), repository.JobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, model.JobKindSendEmail, jobs[0].Kind)
	require.Equal(t, "email:"+order.OrderNumber, jobs[0].DedupKey)
	var email model.SendEmailJob
	require.NoError(t, json.Unmarshal(jobs[0].Payload, &email))
	require.Equal(t, model.SendEmailJob{UserID: 7, OrderNumber: order.OrderNumber}, email)

	// a redelivered job does not queue a second email
	require.NoError(t, h.Handle(context.Background(), createOrderJob(t, samplePayload())))
	jobs, err = queue.List(context.Background(), repository.JobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
}

func TestCreateOrderHandlerBusinessFailurePublishesOutcome(t *testing.T) {
	events := &recordingPublisher{}
	queue := memory.NewQueue()
	checkout := assemblerFunc(func(context.Context, model.CreateOrderJob) (*usecase.Checkout, error) {
		return nil, fmt.Errorf("variant 10: %w", domainErrors.ErrInsufficientStock)
	})
	h := NewCreateOrderHandler(checkout, events, queue, discardLogger())

	require.NoError(t, h.Handle(context.Background(), createOrderJob(t, samplePayload())))

	require.Len(t, events.outcomes, 1)
	outcome := events.outcomes[0]
	require.Equal(t, model.OutcomeFailed, outcome.Status)
	require.Equal(t, int64(7), outcome.UserID)
	require.Nil(t, outcome.Order)
	require.Equal(t, "INSUFFICIENT_STOCK", outcome.Error.Code)
	require.Contains(t, outcome.Error.Message, "insufficient stock")
	require.Empty(t, events.inventory)

	jobs, err := queue.List(context.Background(), repository.JobFilter{})
	require.NoError(t, err)
	require.Empty(t, jobs)
}

func TestCreateOrderHandlerInfrastructureFailureIsReturned(t *testing.T) {
	events := &recordingPublisher{}
	boom := errors.New("connection reset")
	checkout := assemblerFunc(func(context.Context, model.CreateOrderJob) (*usecase.Checkout, error) {
		return nil, boom
	})
	h := NewCreateOrderHandler(checkout, events, memory.NewQueue(), discardLogger())

	require.ErrorIs(t, h.Handle(context.Background(), createOrderJob(t, samplePayload())), boom)
	require.Empty(t, events.outcomes)

	h.OnExhausted(context.Background(), createOrderJob(t, samplePayload()), boom)
	require.Len(t, events.outcomes, 1)
	require.Equal(t, model.OutcomeFailed, events.outcomes[0].Status)
	require.Equal(t, "INTERNAL", events.outcomes[0].Error.Code)
	require.NotContains(t, events.outcomes[0].Error.Message, "connection reset")
}

func TestCreateOrderHandlerMalformedPayload(t *testing.T) {
	events := &recordingPublisher{}
	h := NewCreateOrderHandler(assemblerFunc(func(context.Context, model.CreateOrderJob) (*usecase.Checkout, error) {
		t.Fatal("assemble must not run")
		return nil, nil
	}), events, memory.NewQueue(), discardLogger())

	job := model.Job{ID: uuid.New(), Kind: model.JobKindCreateOrder, Payload: []byte(`{"items":`)}
	err := h.Handle(context.Background(), job)
	require.ErrorIs(t, err, domainErrors.ErrInvalidRequest)

	h.OnExhausted(context.Background(), job, err)
	require.Empty(t, events.outcomes)
}

func TestCreateOrderHandlerToleratesPublishErrors(t *testing.T) {
	events := &recordingPublisher{err: errors.New("bus down")}
	checkout := assemblerFunc(func(context.Context, model.CreateOrderJob) (*usecase.Checkout, error) {
		return &usecase.Checkout{Order: &model.Order{OrderNumber: "ORD-1", UserID: 7}}, nil
	})
	h := NewCreateOrderHandler(checkout, events, memory.NewQueue(), discardLogger())

	require.NoError(t, h.Handle(context.Background(), createOrderJob(t, samplePayload())))
	require.Len(t, events.outcomes, 1)
}

func TestCreateOrderHandlerWithCheckoutEngine(t *testing.T) {
	store := memory.NewStore()
	store.PutProduct(model.Product{ID: 1, Name: "Mug", BasePrice: decimal.NewFromInt(12), Variants: []model.Variant{
		{ID: 10, SKU: "MUG", Stock: 1, Status: model.VariantStatusActive},
	}})
	store.PutAccount(model.Account{UserID: 7, Email: "u@example.com"})
	checkout := usecase.NewCheckoutUseCase(store, usecase.Pricing{PointValue: decimal.NewFromInt(1), EarnRate: decimal.NewFromInt(10)})

	events := &recordingPublisher{}
	h := NewCreateOrderHandler(checkout, events, memory.NewQueue(), discardLogger())

	first := samplePayload()
	second := samplePayload()
	second.RequestID = "req-2"
	require.NoError(t, h.Handle(context.Background(), createOrderJob(t, first)))
	require.NoError(t, h.Handle(context.Background(), createOrderJob(t, second)))

	require.Len(t, events.outcomes, 2)
	require.Equal(t, model.OutcomeSuccess, events.outcomes[0].Status)
	require.Equal(t, model.OutcomeFailed, events.outcomes[1].Status)
	require.Equal(t, "INSUFFICIENT_STOCK", events.outcomes[1].Error.Code)
	require.Equal(t, []model.InventoryChanged{{ProductID: 1, VariantID: 10, NewStock: 0}}, events.inventory)
	require.Len(t, store.AllOrders(), 1)
}

func TestSendEmailHandler(t *testing.T) {
	store := memory.NewStore()
	store.PutAccount(model.Account{UserID: 7, Email: "u@example.com"})
	store.PutProduct(model.Product{ID: 1, Name: "Mug", BasePrice: decimal.NewFromInt(12), Variants: []model.Variant{
		{ID: 10, SKU: "MUG", Stock: 5, Status: model.VariantStatusActive},
	}})
	checkout := usecase.NewCheckoutUseCase(store, usecase.Pricing{})
	result, err := checkout.Assemble(context.Background(), samplePayload())
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	h := NewSendEmailHandler(store, store, notifier, discardLogger())

	payload, err := json.Marshal(model.SendEmailJob{UserID: 7, OrderNumber: result.Order.OrderNumber})
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), model.Job{ID: uuid.New(), Payload: payload}))
	require.Equal(t, []string{"u@example.com:" + result.Order.OrderNumber}, notifier.sent)

	missing, err := json.Marshal(model.SendEmailJob{UserID: 7, OrderNumber: "ORD-missing"})
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), model.Job{ID: uuid.New(), Payload: missing}))
	require.Len(t, notifier.sent, 1)

	notifier.err = errors.New("smtp down")
	require.NoError(t, h.Handle(context.Background(), model.Job{ID: uuid.New(), Payload: payload}))
	require.NoError(t, h.Handle(context.Background(), model.Job{ID: uuid.New(), Payload: []byte("nope")}))
}
