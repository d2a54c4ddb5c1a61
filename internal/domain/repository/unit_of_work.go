package repository

import (
	"context"
	"fmt"

	"github.com/polkiloo/storefront/internal/domain/model"
)

// ProductStore exposes inventory mutations inside a transaction.
type ProductStore interface {
	// GetForUpdate loads product with its variants and locks them until the transaction ends.
	GetForUpdate(ctx context.Context, productID int64) (*model.Product, error)
	SetVariantStock(ctx context.Context, variantID int64, stock int) error
}

// CouponStore exposes discount code mutations inside a transaction.
type CouponStore interface {
	GetByCodeForUpdate(ctx context.Context, code string) (*model.Coupon, error)
	IncrementUsage(ctx context.Context, couponID int64) error
}

// AccountStore exposes loyalty balance mutations inside a transaction.
type AccountStore interface {
	// Ensure creates a zero balance account unless one exists.
	Ensure(ctx context.Context, userID int64) error
	GetForUpdate(ctx context.Context, userID int64) (*model.Account, error)
	SetLoyaltyPoints(ctx context.Context, userID int64, points int64) error
}

// OrderStore persists orders inside a transaction.
type OrderStore interface {
	Create(ctx context.Context, order *model.Order) error
	// GetByRequestID finds the order a user already placed under requestID.
	GetByRequestID(ctx context.Context, userID int64, requestID string) (*model.Order, error)
}

// Tx is a single atomic multi-entity change.
type Tx interface {
	Products() ProductStore
	Coupons() CouponStore
	Accounts() AccountStore
	Orders() OrderStore
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UnitOfWork starts transactions.
type UnitOfWork interface {
	Begin(ctx context.Context) (Tx, error)
}

// WithinTransaction runs fn inside a transaction, committing only when fn succeeds.
func WithinTransaction(ctx context.Context, uow UnitOfWork, fn func(Tx) error) (err error) {
	tx, err := uow.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if cerr := tx.Commit(ctx); cerr != nil {
			err = fmt.Errorf("commit transaction: %w", cerr)
		}
	}()

	err = fn(tx)
	return err
}
