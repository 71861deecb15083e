package messaging

import (
	"github.com/smallbiznis/dealflow/internal/messaging/repository"
	"github.com/smallbiznis/dealflow/internal/messaging/service"
	"go.uber.org/fx"
)

var Module = fx.Module("messaging.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
