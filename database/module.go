package database

import (
	"context"

	"github.com/tech-arch1tect/onetime/config"
	"github.com/tech-arch1tect/onetime/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Options(
	fx.Provide(ProvideDatabaseFx),
)

type Params struct {
	fx.In
	Config    *config.Config
	ModelsOpt *ModelsOption    `optional:"true"`
	Logger    *logging.Service `optional:"true"`
}

func ProvideDatabaseFx(lc fx.Lifecycle, p Params) (*gorm.DB, error) {
	db, err := ProvideDatabase(*p.Config, p.ModelsOpt, p.Logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}
