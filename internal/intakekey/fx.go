package intakekey

import (
	"github.com/smallbiznis/dealflow/internal/intakekey/repository"
	"github.com/smallbiznis/dealflow/internal/intakekey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("intakekey.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
