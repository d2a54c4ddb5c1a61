package test

import (
	"context"
	"slices"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
)

// OrderFacadeStub provides controllable behaviour for order endpoints.
type OrderFacadeStub struct {
	PlaceFn  func(context.Context, model.CreateOrderJob) (uuid.UUID, error)
	OrdersFn func(context.Context, int64) ([]model.Order, error)
	OrderFn  func(context.Context, string) (*model.Order, error)
	StatusFn func(context.Context, string, model.OrderStatus) (*model.Order, error)
}

// PlaceOrder delegates to provided function or returns a fresh job id.
func (s OrderFacadeStub) PlaceOrder(ctx context.Context, job model.CreateOrderJob) (uuid.UUID, error) {
	if s.PlaceFn != nil {
		return s.PlaceFn(ctx, job)
	}
	return uuid.New(), nil
}

// Orders returns predefined orders for given user.
func (s OrderFacadeStub) Orders(ctx context.Context, userID int64) ([]model.Order, error) {
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx, userID)
	}
	return nil, nil
}

func (s OrderFacadeStub) Order(ctx context.Context, number string) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, number)
	}
	return nil, domainErrors.ErrNotFound
}

func (s OrderFacadeStub) ChangeOrderStatus(ctx context.Context, number string, status model.OrderStatus) (*model.Order, error) {
	if s.StatusFn != nil {
		return s.StatusFn(ctx, number, status)
	}
	return &model.Order{OrderNumber: number, Status: status}, nil
}

// AccountFacadeStub provides account data.
type AccountFacadeStub struct {
	AccountFn func(context.Context, int64) (*model.Account, error)
}

// Account returns configured account or an empty balance.
func (s AccountFacadeStub) Account(ctx context.Context, userID int64) (*model.Account, error) {
	if s.AccountFn != nil {
		return s.AccountFn(ctx, userID)
	}
	return &model.Account{UserID: userID}, nil
}

// JobFacadeStub provides queue introspection data.
type JobFacadeStub struct {
	JobFn  func(context.Context, uuid.UUID) (*model.Job, error)
	JobsFn func(context.Context, repository.JobFilter) ([]model.Job, error)
}

func (s JobFacadeStub) Job(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	if s.JobFn != nil {
		return s.JobFn(ctx, id)
	}
	return nil, domainErrors.ErrNotFound
}

func (s JobFacadeStub) Jobs(ctx context.Context, filter repository.JobFilter) ([]model.Job, error) {
	if s.JobsFn != nil {
		return s.JobsFn(ctx, filter)
	}
	return nil, nil
}

// AdminCheckerStub grants admin rights to the listed users.
type AdminCheckerStub struct {
	Admins []int64
}

func (s AdminCheckerStub) IsAdmin(userID int64) bool {
	return slices.Contains(s.Admins, userID)
}

// StorefrontFacadeStub aggregates facade dependencies for HTTP layer tests.
type StorefrontFacadeStub struct {
	TokenParserStub
	OrderFacadeStub
	AccountFacadeStub
	JobFacadeStub
	AdminCheckerStub
}

// HealthCheckerStub answers health checks with Err.
type HealthCheckerStub struct {
	Err error
}

func (s HealthCheckerStub) HealthCheck(context.Context) error {
	return s.Err
}
