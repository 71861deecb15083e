package dealership

import (
	"github.com/smallbiznis/dealflow/internal/dealership/repository"
	"github.com/smallbiznis/dealflow/internal/dealership/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dealership.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
