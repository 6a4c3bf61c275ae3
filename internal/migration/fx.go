package migration

import (
	"context"

	"github.com/influmarkt/influmarkt/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migration",
	fx.Invoke(register),
)

func register(lc fx.Lifecycle, cfg config.Config, gdb *gorm.DB, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			if cfg.DBType != "postgres" {
				log.Warn("skipping migrations for non-postgres database", zap.String("type", cfg.DBType))
				return nil
			}
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
			log.Info("migrations applied")
			return nil
		},
	})
}
