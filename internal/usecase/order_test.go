package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
)

type stubOrderRepository struct {
	order    *model.Order
	updateFn func(context.Context, int64, model.OrderStatus, model.OrderStatus, *time.Time) error
}

func (s stubOrderRepository) GetByNumber(_ context.Context, number string) (*model.Order, error) {
	if s.order == nil || s.order.OrderNumber != number {
		return nil, domainErrors.ErrNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s stubOrderRepository) ListByUser(_ context.Context, userID int64) ([]model.Order, error) {
	if s.order == nil || s.order.UserID != userID {
		return nil, nil
	}
	return []model.Order{*s.order}, nil
}

func (s stubOrderRepository) UpdateStatus(ctx context.Context, orderID int64, from, to model.OrderStatus, paidAt *time.Time) error {
	if s.updateFn == nil {
		panic("not implemented")
	}
	return s.updateFn(ctx, orderID, from, to, paidAt)
}

func TestOrderUseCaseChangeStatusAdvancesOneStep(t *testing.T) {
	var called bool
	repo := stubOrderRepository{
		order: &model.Order{ID: 3, OrderNumber: "ORD-1", Status: model.OrderStatusPending, Payment: model.PaymentDetails{Method: model.PaymentMethodCard}},
		updateFn: func(_ context.Context, id int64, from, to model.OrderStatus, paidAt *time.Time) error {
			called = true
			if id != 3 || from != model.OrderStatusPending || to != model.OrderStatusConfirmed {
				t.Fatalf("unexpected update: %d %s -> %s", id, from, to)
			}
			if paidAt != nil {
				t.Fatalf("card orders must not be stamped paid on confirm")
			}
			return nil
		},
	}

	order, err := NewOrderUseCase(repo).ChangeStatus(context.Background(), "ORD-1", model.OrderStatusConfirmed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("expected repository update")
	}
	if order.Status != model.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", order.Status)
	}
}

func TestOrderUseCaseChangeStatusRejectsSkips(t *testing.T) {
	cases := []struct {
		from, to model.OrderStatus
	}{
		{model.OrderStatusPending, model.OrderStatusShipped},
		{model.OrderStatusShipped, model.OrderStatusCancelled},
		{model.OrderStatusDelivered, model.OrderStatusCancelled},
		{model.OrderStatusCancelled, model.OrderStatusConfirmed},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			repo := stubOrderRepository{order: &model.Order{ID: 1, OrderNumber: "ORD-1", Status: tc.from}}
			_, err := NewOrderUseCase(repo).ChangeStatus(context.Background(), "ORD-1", tc.to)
			if !errors.Is(err, domainErrors.ErrInvalidTransition) {
				t.Fatalf("expected invalid transition, got %v", err)
			}
		})
	}
}

func TestOrderUseCaseDeliveringCashOrderRecordsPayment(t *testing.T) {
	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	var stored *time.Time
	repo := stubOrderRepository{
		order: &model.Order{ID: 9, OrderNumber: "ORD-9", Status: model.OrderStatusShipped, Payment: model.PaymentDetails{Method: model.PaymentMethodCOD}},
		updateFn: func(_ context.Context, _ int64, _, _ model.OrderStatus, paidAt *time.Time) error {
			stored = paidAt
			return nil
		},
	}
	uc := NewOrderUseCase(repo)
	uc.now = func() time.Time { return at }

	order, err := uc.ChangeStatus(context.Background(), "ORD-9", model.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored == nil || !stored.Equal(at) {
		t.Fatalf("expected paid at %s, got %v", at, stored)
	}
	if order.Payment.PaidAt == nil || !order.Payment.PaidAt.Equal(at) {
		t.Fatalf("expected returned order to carry paid at, got %v", order.Payment.PaidAt)
	}
}

func TestOrderUseCaseChangeStatusPropagatesLostRace(t *testing.T) {
	repo := stubOrderRepository{
		order: &model.Order{ID: 2, OrderNumber: "ORD-2", Status: model.OrderStatusConfirmed},
		updateFn: func(context.Context, int64, model.OrderStatus, model.OrderStatus, *time.Time) error {
			return domainErrors.ErrInvalidTransition
		},
	}
	_, err := NewOrderUseCase(repo).ChangeStatus(context.Background(), "ORD-2", model.OrderStatusProcessing)
	if !errors.Is(err, domainErrors.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestOrderUseCaseReads(t *testing.T) {
	repo := stubOrderRepository{order: &model.Order{ID: 1, UserID: 5, OrderNumber: "ORD-5"}}
	uc := NewOrderUseCase(repo)

	orders, err := uc.ListByUser(context.Background(), 5)
	if err != nil || len(orders) != 1 {
		t.Fatalf("unexpected list result: %v %v", orders, err)
	}
	if _, err := uc.GetByNumber(context.Background(), "missing"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := uc.ChangeStatus(context.Background(), "missing", model.OrderStatusConfirmed); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
