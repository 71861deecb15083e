package auth

import (
	"github.com/smallbiznis/dealflow/internal/auth/service"
	"github.com/smallbiznis/dealflow/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(token.New),
	fx.Provide(service.New),
)
