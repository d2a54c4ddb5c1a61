package test

import (
	"context"
	"time"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
)

// OrderRepositoryStub allows tests to customize behaviour.
type OrderRepositoryStub struct {
	GetByNumberFn  func(context.Context, string) (*model.Order, error)
	ListByUserFn   func(context.Context, int64) ([]model.Order, error)
	UpdateStatusFn func(context.Context, int64, model.OrderStatus, model.OrderStatus, *time.Time) error
}

// GetByNumber delegates to override or reports not found.
func (s OrderRepositoryStub) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	if s.GetByNumberFn != nil {
		return s.GetByNumberFn(ctx, number)
	}
	return nil, domainErrors.ErrNotFound
}

// ListByUser delegates to override or returns no orders.
func (s OrderRepositoryStub) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	if s.ListByUserFn != nil {
		return s.ListByUserFn(ctx, userID)
	}
	return nil, nil
}

// UpdateStatus delegates to override or succeeds.
func (s OrderRepositoryStub) UpdateStatus(ctx context.Context, orderID int64, from, to model.OrderStatus, paidAt *time.Time) error {
	if s.UpdateStatusFn != nil {
		return s.UpdateStatusFn(ctx, orderID, from, to, paidAt)
	}
	return nil
}

// AccountRepositoryStub serves accounts from a map.
type AccountRepositoryStub struct {
	Accounts map[int64]model.Account
	Err      error
}

// GetByUserID returns a copy of the stored account.
func (s AccountRepositoryStub) GetByUserID(_ context.Context, userID int64) (*model.Account, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	account, ok := s.Accounts[userID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &account, nil
}
