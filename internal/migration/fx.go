package migration

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealflow/internal/clock"
	"github.com/smallbiznis/dealflow/internal/config"
	"github.com/smallbiznis/dealflow/internal/ratelimit"
	"github.com/smallbiznis/dealflow/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	seedLockKey = "dealflow:lock:seed"
	seedLockTTL = time.Minute
)

type bootstrapParams struct {
	fx.In

	Conn   *gorm.DB
	Cfg    config.Config
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Locker *ratelimit.Locker `optional:"true"`
}

var Module = fx.Module("migrations",
	fx.Invoke(func(p bootstrapParams) error {
		if err := Run(p.Conn, p.Cfg.DBType); err != nil {
			return err
		}
		if !p.Cfg.Bootstrap.SeedDemoData {
			return seed.EnsureRoles(context.Background(), p.Conn)
		}

		ctx := context.Background()
		if p.Locker != nil {
			token, ok, err := p.Locker.TryLock(ctx, seedLockKey, seedLockTTL)
			if err != nil {
				return err
			}
			if !ok {
				p.Log.Info("another instance is seeding, skipping")
				return nil
			}
			defer func() { _ = p.Locker.Release(ctx, seedLockKey, token) }()
		}
		return seed.New(p.Conn, p.GenID, p.Clock, p.Log).Run(ctx)
	}),
)
