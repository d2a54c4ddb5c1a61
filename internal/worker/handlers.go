package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
	"github.com/polkiloo/storefront/internal/usecase"
)

// Handler executes a claimed job. A nil error completes the job; any other
// error is retried unless it is a business error.
type Handler interface {
	Handle(ctx context.Context, job model.Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job model.Job) error

func (f HandlerFunc) Handle(ctx context.Context, job model.Job) error { return f(ctx, job) }

// ExhaustedHandler is notified once a job is dead-lettered.
type ExhaustedHandler interface {
	OnExhausted(ctx context.Context, job model.Job, err error)
}

// Assembler runs the checkout transaction.
type Assembler interface {
	Assemble(ctx context.Context, job model.CreateOrderJob) (*usecase.Checkout, error)
}

// EventPublisher is the subset of the event publisher used after checkout.
type EventPublisher interface {
	OrderOutcome(ctx context.Context, outcome model.OrderOutcome) error
	InventoryChanged(ctx context.Context, event model.InventoryChanged) error
}

// Enqueuer schedules follow-up jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind model.JobKind, payload json.RawMessage, opts repository.EnqueueOptions) (uuid.UUID, error)
}

// Notifier delivers the confirmation email.
type Notifier interface {
	OrderConfirmation(ctx context.Context, account model.Account, order model.Order) error
}

const emailDedupPrefix = "email:"

// CreateOrderHandler turns a checkout job into an order and reports the outcome.
type CreateOrderHandler struct {
	checkout Assembler
	events   EventPublisher
	jobs     Enqueuer
	logger   *slog.Logger
}

func NewCreateOrderHandler(checkout Assembler, events EventPublisher, jobs Enqueuer, logger *slog.Logger) *CreateOrderHandler {
	return &CreateOrderHandler{checkout: checkout, events: events, jobs: jobs, logger: logger}
}

func (h *CreateOrderHandler) Handle(ctx context.Context, job model.Job) error {
	var payload model.CreateOrderJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("%w: decode create order payload: %v", domainErrors.ErrInvalidRequest, err)
	}

	result, err := h.checkout.Assemble(ctx, payload)
	if err != nil {
		if !domainErrors.IsBusiness(err) {
			return err
		}
		h.logger.Info("checkout rejected",
			slog.String("job_id", job.ID.String()),
			slog.Int64("user_id", payload.UserID),
			slog.String("code", domainErrors.Code(err)),
			slog.String("error", err.Error()),
		)
		h.publishOutcome(ctx, failedOutcome(payload, domainErrors.Code(err), err.Error()))
		return nil
	}

	order := result.Order
	h.logger.Info("order assembled",
		slog.String("job_id", job.ID.String()),
		slog.String("order", order.OrderNumber),
		slog.Int64("user_id", order.UserID),
		slog.Bool("replayed", result.Replayed),
	)

	h.publishOutcome(ctx, model.OrderOutcome{
		UserID:    order.UserID,
		RequestID: payload.RequestID,
		Status:    model.OutcomeSuccess,
		Order:     order,
	})
	for _, change := range result.Inventory {
		if err := h.events.InventoryChanged(ctx, change); err != nil {
			h.logger.Warn("publish inventory change failed",
				slog.Int64("variant_id", change.VariantID),
				slog.String("error", err.Error()),
			)
		}
	}
	h.enqueueConfirmation(ctx, order)
	return nil
}

// OnExhausted tells the user the order will not be created after retries ran out.
func (h *CreateOrderHandler) OnExhausted(ctx context.Context, job model.Job, err error) {
	var payload model.CreateOrderJob
	if decodeErr := json.Unmarshal(job.Payload, &payload); decodeErr != nil || payload.UserID == 0 {
		h.logger.Error("create order job dropped", slog.String("job_id", job.ID.String()), slog.String("error", err.Error()))
		return
	}
	code := domainErrors.Code(err)
	message := "order could not be processed, please try again later"
	if domainErrors.IsBusiness(err) {
		message = err.Error()
	}
	h.publishOutcome(ctx, failedOutcome(payload, code, message))
}

func (h *CreateOrderHandler) publishOutcome(ctx context.Context, outcome model.OrderOutcome) {
	if err := h.events.OrderOutcome(ctx, outcome); err != nil {
		h.logger.Warn("publish order outcome failed",
			slog.Int64("user_id", outcome.UserID),
			slog.String("status", string(outcome.Status)),
			slog.String("error", err.Error()),
		)
	}
}

func (h *CreateOrderHandler) enqueueConfirmation(ctx context.Context, order *model.Order) {
	payload, err := json.Marshal(model.SendEmailJob{UserID: order.UserID, OrderNumber: order.OrderNumber})
	if err != nil {
		h.logger.Error("encode send email job failed", slog.String("error", err.Error()))
		return
	}
	_, err = h.jobs.Enqueue(ctx, model.JobKindSendEmail, payload, repository.EnqueueOptions{
		DedupKey:    emailDedupPrefix + order.OrderNumber,
		MaxAttempts: 1,
	})
	if err != nil {
		h.logger.Warn("enqueue confirmation email failed",
			slog.String("order", order.OrderNumber),
			slog.String("error", err.Error()),
		)
	}
}

func failedOutcome(payload model.CreateOrderJob, code, message string) model.OrderOutcome {
	return model.OrderOutcome{
		UserID:    payload.UserID,
		RequestID: payload.RequestID,
		Status:    model.OutcomeFailed,
		Error:     &model.OutcomeError{Code: code, Message: message},
	}
}

// SendEmailHandler sends order confirmations. Delivery problems are logged and
// never fail the job.
type SendEmailHandler struct {
	accounts repository.AccountRepository
	orders   repository.OrderRepository
	notifier Notifier
	logger   *slog.Logger
}

func NewSendEmailHandler(accounts repository.AccountRepository, orders repository.OrderRepository, notifier Notifier, logger *slog.Logger) *SendEmailHandler {
	return &SendEmailHandler{accounts: accounts, orders: orders, notifier: notifier, logger: logger}
}

func (h *SendEmailHandler) Handle(ctx context.Context, job model.Job) error {
	var payload model.SendEmailJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		h.logger.Error("decode send email payload failed", slog.String("job_id", job.ID.String()), slog.String("error", err.Error()))
		return nil
	}
	if err := h.send(ctx, payload); err != nil {
		h.logger.Warn("order confirmation not sent",
			slog.String("order", payload.OrderNumber),
			slog.Int64("user_id", payload.UserID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func (h *SendEmailHandler) send(ctx context.Context, payload model.SendEmailJob) error {
	account, err := h.accounts.GetByUserID(ctx, payload.UserID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	order, err := h.orders.GetByNumber(ctx, payload.OrderNumber)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	return h.notifier.OrderConfirmation(ctx, *account, *order)
}
