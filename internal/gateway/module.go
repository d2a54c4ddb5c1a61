package gateway

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/storefront/internal/config"
)

// Module provides the hub, the websocket server and the bus relay.
var Module = fx.Provide(
	NewHub,
	newServer,
	NewRelay,
)

type serverParams struct {
	fx.In

	Hub    *Hub
	Config *config.Config
	Logger *slog.Logger
}

func newServer(p serverParams) *Server {
	return NewServer(p.Hub, Options{
		SendBuffer:   p.Config.GatewaySendBuffer,
		PingInterval: p.Config.GatewayPingInterval,
	}, p.Logger)
}
