package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/storefront/internal/server/http/handlers"
	"github.com/polkiloo/storefront/internal/server/http/middleware"
)

const (
	realtimePath   = "/ws"
	maxRequestBody = 1 << 20
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.StorefrontFacade, realtime handlers.Realtime, health handlers.HealthChecker, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest(maxRequestBody))
	engine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{realtimePath})))

	orderHandler := handlers.NewOrderHandler(facade)
	accountHandler := handlers.NewAccountHandler(facade)
	jobHandler := handlers.NewJobHandler(facade)
	realtimeHandler := handlers.NewRealtimeHandler(realtime)
	healthHandler := handlers.NewHealthHandler(health)

	engine.GET("/healthz", healthHandler.Check)
	engine.GET(realtimePath, middleware.OptionalAuth(facade), realtimeHandler.Connect)

	api := engine.Group("/api")
	api.Use(middleware.AuthRequired(facade))
	api.POST("/orders", orderHandler.Create)
	api.GET("/orders", orderHandler.List)
	api.GET("/orders/:number", orderHandler.Get)
	api.GET("/account", accountHandler.Summary)

	admin := api.Group("", middleware.AdminRequired(facade))
	admin.PATCH("/orders/:number/status", orderHandler.ChangeStatus)
	admin.GET("/jobs", jobHandler.List)
	admin.GET("/jobs/:id", jobHandler.Get)

	return engine
}
