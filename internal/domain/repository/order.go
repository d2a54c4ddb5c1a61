package repository

import (
	"context"
	"time"

	"github.com/polkiloo/storefront/internal/domain/model"
)

// OrderRepository describes reads and post-creation status changes of orders.
type OrderRepository interface {
	GetByNumber(ctx context.Context, number string) (*model.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)
	// UpdateStatus moves order from status `from` to `to`; ErrInvalidTransition when the stored status differs.
	UpdateStatus(ctx context.Context, orderID int64, from, to model.OrderStatus, paidAt *time.Time) error
}

// AccountRepository reads accounts outside checkout.
type AccountRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*model.Account, error)
}
