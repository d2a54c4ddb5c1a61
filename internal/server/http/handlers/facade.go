package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
)

// OrderFacade encapsulates order operations exposed via HTTP.
type OrderFacade interface {
	PlaceOrder(ctx context.Context, job model.CreateOrderJob) (uuid.UUID, error)
	Orders(ctx context.Context, userID int64) ([]model.Order, error)
	Order(ctx context.Context, number string) (*model.Order, error)
	ChangeOrderStatus(ctx context.Context, number string, status model.OrderStatus) (*model.Order, error)
}

// AccountFacade provides the loyalty balance.
type AccountFacade interface {
	Account(ctx context.Context, userID int64) (*model.Account, error)
}

// JobFacade is the queue monitoring read contract.
type JobFacade interface {
	Job(ctx context.Context, id uuid.UUID) (*model.Job, error)
	Jobs(ctx context.Context, filter repository.JobFilter) ([]model.Job, error)
}

// TokenParser resolves session tokens to user ids.
type TokenParser interface {
	ParseToken(token string) (int64, error)
}

// AdminChecker reports operator rights for status changes and queue inspection.
type AdminChecker interface {
	IsAdmin(userID int64) bool
}

// StorefrontFacade aggregates the full set of operations used across handlers.
type StorefrontFacade interface {
	OrderFacade
	AccountFacade
	JobFacade
	TokenParser
	AdminChecker
}

// HealthChecker pings the backing database.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Realtime serves websocket connections.
type Realtime interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID int64)
}
