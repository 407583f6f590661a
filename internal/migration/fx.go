package migration

import (
	"context"

	"github.com/smallbiznis/invoicer/internal/config"
	companydomain "github.com/smallbiznis/invoicer/internal/company/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, company companydomain.Service, log *zap.Logger) error {
		if cfg.DBAutoMigrate {
			if err := Migrate(conn, cfg.DBType); err != nil {
				return err
			}
			log.Info("schema up to date", zap.String("dialect", cfg.DBType))
		}

		return company.Seed(context.Background(), companydomain.UpsertCompanyRequest{
			Name:    cfg.Company.Name,
			Address: cfg.Company.Address,
			Phone:   cfg.Company.Phone,
			Email:   cfg.Company.Email,
		})
	}),
)
