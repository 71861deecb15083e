package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealflow/internal/clock"
	"github.com/smallbiznis/dealflow/internal/config"
	"github.com/smallbiznis/dealflow/internal/migration"
	"github.com/smallbiznis/dealflow/internal/observability"
	"github.com/smallbiznis/dealflow/internal/server"
	"github.com/smallbiznis/dealflow/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Schema and bootstrap data run before the listener starts.
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
