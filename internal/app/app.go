package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/storefront/internal/config"
	"github.com/polkiloo/storefront/internal/domain/model"
	"github.com/polkiloo/storefront/internal/domain/repository"
	"github.com/polkiloo/storefront/internal/gateway"
	"github.com/polkiloo/storefront/internal/usecase"
	"github.com/polkiloo/storefront/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewStorefrontFacade,
		newHTTPServer,
		newJobProcessor,
	),
	fx.Invoke(registerLifecycle),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type workerParams struct {
	fx.In

	Queue    repository.JobQueue
	Checkout *usecase.CheckoutUseCase
	Events   worker.EventPublisher
	Accounts repository.AccountRepository
	Orders   repository.OrderRepository
	Notifier worker.Notifier
	Config   *config.Config
	Logger   *slog.Logger
}

func newJobProcessor(p workerParams) *worker.JobProcessor {
	handlers := map[model.JobKind]worker.Handler{
		model.JobKindCreateOrder: worker.NewCreateOrderHandler(p.Checkout, p.Events, p.Queue, p.Logger),
		model.JobKindSendEmail:   worker.NewSendEmailHandler(p.Accounts, p.Orders, p.Notifier, p.Logger),
	}
	return worker.NewJobProcessor(p.Queue, handlers, worker.Options{
		PollInterval: p.Config.JobPollInterval,
		BatchSize:    p.Config.JobBatchSize,
		Workers:      p.Config.WorkerPoolSize,
		MaxAttempts:  p.Config.JobMaxAttempts,
		BackoffBase:  p.Config.JobBackoffBase,
		BackoffMax:   p.Config.JobBackoffMax,
		JobTimeout:   p.Config.JobTimeout,
	}, p.Logger)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Worker     *worker.JobProcessor
	Relay      *gateway.Relay
	Hub        *gateway.Hub
	Config     *config.Config
}

// registerLifecycle starts the components selected by the configured role.
// The worker role serves no HTTP traffic and does not relay events.
func registerLifecycle(p lifecycleParams) {
	runsWorker, runsGateway := p.Config.RunsWorker(), p.Config.RunsGateway()

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting storefront",
				slog.String("role", p.Config.Role),
				slog.String("addr", p.Server.Addr),
			)
			if runsWorker {
				p.Worker.Start(context.WithoutCancel(ctx))
			}
			if !runsGateway {
				return nil
			}
			if err := p.Relay.Start(ctx); err != nil {
				p.Worker.Stop()
				return err
			}
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			var err error
			if runsGateway {
				if shutdownErr := p.Server.Shutdown(shutdownCtx); shutdownErr != nil && !errors.Is(shutdownErr, http.ErrServerClosed) {
					err = shutdownErr
				}
				p.Relay.Stop()
				// Shutdown does not track hijacked websocket connections.
				closed := p.Hub.CloseAll()
				p.Logger.Info("gateway stopped", slog.Int("connections", closed))
			}
			if runsWorker {
				p.Worker.Stop()
			}
			p.Logger.Info("storefront stopped")
			return err
		},
	})
}
