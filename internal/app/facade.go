package app

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/polkiloo/storefront/internal/config"
	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
	pkgAuth "github.com/polkiloo/storefront/internal/pkg/auth"
	"github.com/polkiloo/storefront/internal/usecase"
)

// StorefrontFacade exposes the use cases to the HTTP layer.
type StorefrontFacade struct {
	jobs     *usecase.JobUseCase
	orders   *usecase.OrderUseCase
	accounts *usecase.AccountUseCase
	tokens   pkgAuth.Strategy
	cfg      *config.Config
}

func NewStorefrontFacade(jobs *usecase.JobUseCase, orders *usecase.OrderUseCase, accounts *usecase.AccountUseCase, tokens pkgAuth.Strategy, cfg *config.Config) *StorefrontFacade {
	return &StorefrontFacade{jobs: jobs, orders: orders, accounts: accounts, tokens: tokens, cfg: cfg}
}

func (f *StorefrontFacade) IsAdmin(userID int64) bool {
	return f.cfg.IsAdmin(userID)
}

func (f *StorefrontFacade) ParseToken(token string) (int64, error) {
	return f.tokens.ParseToken(token)
}

func (f *StorefrontFacade) PlaceOrder(ctx context.Context, job model.CreateOrderJob) (uuid.UUID, error) {
	return f.jobs.EnqueueCreateOrder(ctx, job)
}

func (f *StorefrontFacade) Orders(ctx context.Context, userID int64) ([]model.Order, error) {
	return f.orders.ListByUser(ctx, userID)
}

func (f *StorefrontFacade) Order(ctx context.Context, number string) (*model.Order, error) {
	return f.orders.GetByNumber(ctx, number)
}

func (f *StorefrontFacade) ChangeOrderStatus(ctx context.Context, number string, status model.OrderStatus) (*model.Order, error) {
	return f.orders.ChangeStatus(ctx, number, status)
}

// Account reports a zero balance for users that never earned points.
func (f *StorefrontFacade) Account(ctx context.Context, userID int64) (*model.Account, error) {
	account, err := f.accounts.Summary(ctx, userID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return &model.Account{UserID: userID}, nil
		}
		return nil, err
	}
	return account, nil
}

func (f *StorefrontFacade) Job(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	return f.jobs.Get(ctx, id)
}

func (f *StorefrontFacade) Jobs(ctx context.Context, filter repository.JobFilter) ([]model.Job, error) {
	return f.jobs.List(ctx, filter)
}
