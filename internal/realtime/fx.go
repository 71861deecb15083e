package realtime

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("realtime",
	fx.Provide(provideHub),
	fx.Provide(func(h *Hub) Broadcaster { return h }),
	fx.Provide(func(h *Hub) Publisher { return h }),
)

func provideHub(lc fx.Lifecycle, log *zap.Logger) *Hub {
	hub := NewHub()
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			log.Named("realtime.hub").Info("closing realtime rooms")
			hub.Close()
			return nil
		},
	})
	return hub
}
