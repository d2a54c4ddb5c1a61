package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/polkiloo/storefront/internal/config"
)

// Module provides the configured bus driver and the event publisher.
var Module = fx.Options(
	fx.Provide(newBus),
	fx.Provide(NewPublisher),
	fx.Invoke(registerLifecycle),
)

type busParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newBus(p busParams) (Bus, error) {
	switch p.Config.EventBus {
	case config.BusMemory:
		return NewMemoryBus(), nil
	case config.BusRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     p.Config.RedisAddress,
			Password: p.Config.RedisPassword,
			DB:       p.Config.RedisDB,
		})
		return NewRedisBus(client, p.Config.EventBusPrefix, p.Logger), nil
	case config.BusKafka:
		return NewKafkaBus(KafkaConfig{
			Brokers:     p.Config.KafkaBrokers,
			TopicPrefix: p.Config.EventBusPrefix,
			GroupID:     "storefront-gateway-" + uuid.NewString(),
		}, p.Logger), nil
	default:
		return nil, fmt.Errorf("unknown event bus %q", p.Config.EventBus)
	}
}

func registerLifecycle(lc fx.Lifecycle, bus Bus) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return bus.Close()
		},
	})
}
