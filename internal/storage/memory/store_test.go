package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
)

func seeded() *Store {
	s := NewStore()
	s.PutProduct(model.Product{ID: 1, Name: "Tee", BasePrice: decimal.NewFromInt(10), Variants: []model.Variant{
		{ID: 11, SKU: "TEE-S", Stock: 2},
	}})
	s.PutCoupon(model.Coupon{ID: 5, Code: "ONE", Type: model.CouponTypeFixedAmount, DiscountValue: decimal.NewFromInt(1), UsageLimitTotal: 1, IsActive: true})
	s.PutAccount(model.Account{UserID: 7, LoyaltyPoints: 3})
	return s
}

func TestStoreCommitPublishesStagedState(t *testing.T) {
	s := seeded()
	ctx := context.Background()

	err := repository.WithinTransaction(ctx, s, func(tx repository.Tx) error {
		if err := tx.Products().SetVariantStock(ctx, 11, 1); err != nil {
			return err
		}
		if err := tx.Coupons().IncrementUsage(ctx, 5); err != nil {
			return err
		}
		if err := tx.Accounts().SetLoyaltyPoints(ctx, 7, 0); err != nil {
			return err
		}
		return tx.Orders().Create(ctx, &model.Order{OrderNumber: "ORD-1", RequestID: "r1", UserID: 7})
	})
	require.NoError(t, err)

	p, _ := s.Product(1)
	require.Equal(t, 1, p.Variants[0].Stock)
	c, _ := s.Coupon("ONE")
	require.Equal(t, 1, c.UsedCount)
	a, _ := s.Account(7)
	require.Zero(t, a.LoyaltyPoints)
	require.Len(t, s.AllOrders(), 1)
	require.Equal(t, int64(1), p.Variants[0].ProductID)
}

func TestStoreRollbackDiscardsEverything(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	boom := errors.New("boom")

	err := repository.WithinTransaction(ctx, s, func(tx repository.Tx) error {
		require.NoError(t, tx.Products().SetVariantStock(ctx, 11, 0))
		require.NoError(t, tx.Coupons().IncrementUsage(ctx, 5))
		require.NoError(t, tx.Orders().Create(ctx, &model.Order{OrderNumber: "ORD-1"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	p, _ := s.Product(1)
	require.Equal(t, 2, p.Variants[0].Stock)
	c, _ := s.Coupon("ONE")
	require.Zero(t, c.UsedCount)
	require.Empty(t, s.AllOrders())
}

func TestStoreTxGuards(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	_, err = tx.Products().GetForUpdate(ctx, 99)
	require.ErrorIs(t, err, domainErrors.ErrNotFound)
	require.ErrorIs(t, tx.Products().SetVariantStock(ctx, 11, -1), domainErrors.ErrInsufficientStock)
	require.ErrorIs(t, tx.Products().SetVariantStock(ctx, 99, 1), domainErrors.ErrNotFound)

	_, err = tx.Coupons().GetByCodeForUpdate(ctx, "NOPE")
	require.ErrorIs(t, err, domainErrors.ErrNotFound)
	require.NoError(t, tx.Coupons().IncrementUsage(ctx, 5))
	require.ErrorIs(t, tx.Coupons().IncrementUsage(ctx, 5), domainErrors.ErrDiscountExhausted)

	require.ErrorIs(t, tx.Accounts().SetLoyaltyPoints(ctx, 7, -1), domainErrors.ErrInsufficientPoints)
	_, err = tx.Accounts().GetForUpdate(ctx, 8)
	require.ErrorIs(t, err, domainErrors.ErrNotFound)

	require.NoError(t, tx.Orders().Create(ctx, &model.Order{OrderNumber: "A", UserID: 7, RequestID: "r"}))
	require.ErrorIs(t, tx.Orders().Create(ctx, &model.Order{OrderNumber: "B", UserID: 7, RequestID: "r"}), domainErrors.ErrAlreadyExists)
	found, err := tx.Orders().GetByRequestID(ctx, 7, "r")
	require.NoError(t, err)
	require.Equal(t, "A", found.OrderNumber)
}

func TestStoreRequestIDIsScopedPerUser(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	require.NoError(t, tx.Orders().Create(ctx, &model.Order{OrderNumber: "A", UserID: 7, RequestID: "cart-1"}))
	require.NoError(t, tx.Orders().Create(ctx, &model.Order{OrderNumber: "B", UserID: 8, RequestID: "cart-1"}))

	mine, err := tx.Orders().GetByRequestID(ctx, 7, "cart-1")
	require.NoError(t, err)
	require.Equal(t, "A", mine.OrderNumber)
	theirs, err := tx.Orders().GetByRequestID(ctx, 8, "cart-1")
	require.NoError(t, err)
	require.Equal(t, "B", theirs.OrderNumber)
	_, err = tx.Orders().GetByRequestID(ctx, 9, "cart-1")
	require.ErrorIs(t, err, domainErrors.ErrNotFound)
}

func TestStoreEnsureAccount(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	require.NoError(t, repository.WithinTransaction(ctx, s, func(tx repository.Tx) error {
		if err := tx.Accounts().Ensure(ctx, 8); err != nil {
			return err
		}
		if err := tx.Accounts().Ensure(ctx, 7); err != nil {
			return err
		}
		fresh, err := tx.Accounts().GetForUpdate(ctx, 8)
		if err != nil {
			return err
		}
		require.Zero(t, fresh.LoyaltyPoints)
		return nil
	}))

	existing, ok := s.Account(7)
	require.True(t, ok)
	require.Equal(t, int64(3), existing.LoyaltyPoints)
	_, ok = s.Account(8)
	require.True(t, ok)
}

func TestStoreUpdateStatusWaitsForOpenTransaction(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	order := &model.Order{OrderNumber: "A", UserID: 7, Status: model.OrderStatusPending}
	require.NoError(t, repository.WithinTransaction(ctx, s, func(tx repository.Tx) error {
		return tx.Orders().Create(ctx, order)
	}))

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Products().SetVariantStock(ctx, 11, 1))

	done := make(chan error, 1)
	go func() {
		done <- s.UpdateStatus(ctx, order.ID, model.OrderStatusPending, model.OrderStatusConfirmed, nil)
	}()
	select {
	case err := <-done:
		t.Fatalf("status update ran inside an open transaction: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, tx.Commit(ctx))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("status update never ran")
	}

	stored, err := s.GetByNumber(ctx, "A")
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusConfirmed, stored.Status)
	p, _ := s.Product(1)
	require.Equal(t, 1, p.Variants[0].Stock)
}

func TestStoreBeginRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStore().Begin(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStoreOrderReads(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	require.NoError(t, repository.WithinTransaction(ctx, s, func(tx repository.Tx) error {
		if err := tx.Orders().Create(ctx, &model.Order{OrderNumber: "A", UserID: 7, Status: model.OrderStatusPending}); err != nil {
			return err
		}
		return tx.Orders().Create(ctx, &model.Order{OrderNumber: "B", UserID: 7, Status: model.OrderStatusPending})
	}))

	list, err := s.ListByUser(ctx, 7)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "B", list[0].OrderNumber)

	order, err := s.GetByNumber(ctx, "A")
	require.NoError(t, err)
	require.NoError(t, s.UpdateStatus(ctx, order.ID, model.OrderStatusPending, model.OrderStatusConfirmed, nil))
	require.ErrorIs(t, s.UpdateStatus(ctx, order.ID, model.OrderStatusPending, model.OrderStatusConfirmed, nil), domainErrors.ErrInvalidTransition)
	require.ErrorIs(t, s.UpdateStatus(ctx, 404, model.OrderStatusPending, model.OrderStatusConfirmed, nil), domainErrors.ErrNotFound)

	_, err = s.GetByNumber(ctx, "missing")
	require.ErrorIs(t, err, domainErrors.ErrNotFound)

	account, err := s.GetByUserID(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, int64(3), account.LoyaltyPoints)
	_, err = s.GetByUserID(ctx, 8)
	require.ErrorIs(t, err, domainErrors.ErrNotFound)
}
