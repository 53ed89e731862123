package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/recovahq/recova/internal/config"
	"github.com/recovahq/recova/internal/seed"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		}

		if cfg.DefaultEnterpriseID != 0 {
			if err := seed.EnsureDefaultEnterpriseWithID(conn, cfg.DefaultEnterpriseID); err != nil {
				return err
			}
		} else {
			if err := seed.EnsureDefaultEnterprise(conn); err != nil {
				return err
			}
		}
		return seed.EnsureBootstrapToken(conn, cfg.BootstrapAdminToken)
	}),
)
