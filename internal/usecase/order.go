package usecase

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
)

// OrderUseCase encapsulates order reads and status lifecycle.
type OrderUseCase struct {
	orders repository.OrderRepository
	now    func() time.Time
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(orders repository.OrderRepository) *OrderUseCase {
	return &OrderUseCase{orders: orders, now: time.Now}
}

// ListByUser returns orders newest first. Clients poll it when they missed the realtime outcome.
func (u *OrderUseCase) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return u.orders.ListByUser(ctx, userID)
}

func (u *OrderUseCase) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	return u.orders.GetByNumber(ctx, number)
}

// ChangeStatus advances the order one step along the status machine.
// Delivering a cash on delivery order records the payment time.
func (u *OrderUseCase) ChangeStatus(ctx context.Context, number string, next model.OrderStatus) (*model.Order, error) {
	order, err := u.orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("order %s: %s -> %s: %w", number, order.Status, next, domainErrors.ErrInvalidTransition)
	}

	var paidAt *time.Time
	if next == model.OrderStatusDelivered && !order.Payment.Method.RequiresSettlement() && order.Payment.PaidAt == nil {
		now := u.now()
		paidAt = &now
	}
	if err := u.orders.UpdateStatus(ctx, order.ID, order.Status, next, paidAt); err != nil {
		return nil, err
	}

	order.Status = next
	if paidAt != nil {
		order.Payment.PaidAt = paidAt
	}
	return order, nil
}
