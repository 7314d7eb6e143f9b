package token

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tech-arch1tect/onetime/config"
	"github.com/tech-arch1tect/onetime/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OptionalDB struct {
	fx.In
	DB *gorm.DB `optional:"true"`
}

type OptionalRegisterer struct {
	fx.In
	Registerer prometheus.Registerer `optional:"true"`
}

func ProvideStore(cfg *config.Config, logger *logging.Service, optDB OptionalDB) (Store, error) {
	if logger != nil {
		logger.Info("initializing token store",
			zap.String("store_type", cfg.Token.Store),
			zap.Bool("database_available", optDB.DB != nil))
	}

	switch cfg.Token.Store {
	case config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StoreDatabase:
		if optDB.DB == nil {
			return nil, fmt.Errorf("token store %q requires a database", cfg.Token.Store)
		}
		if cfg.Database.AutoMigrate {
			if err := optDB.DB.AutoMigrate(&Record{}); err != nil {
				return nil, fmt.Errorf("failed to migrate token records table: %w", err)
			}
		}
		return NewGormStore(optDB.DB, logger), nil
	default:
		if logger != nil {
			logger.Error("unsupported token store type",
				zap.String("store_type", cfg.Token.Store),
				zap.Strings("supported_types", []string{config.StoreDatabase, config.StoreMemory}))
		}
		return nil, fmt.Errorf("unsupported token store type: %s", cfg.Token.Store)
	}
}

func ProvideMetrics(cfg *config.Config, optReg OptionalRegisterer) (*Metrics, error) {
	if !cfg.Metrics.Enabled || optReg.Registerer == nil {
		return nil, nil
	}
	return NewMetrics(optReg.Registerer)
}

func ProvideTokenService(cfg *config.Config, store Store, logger *logging.Service, metrics *Metrics) (*Service, error) {
	return NewService(cfg, store, logger, WithMetrics(metrics))
}

func ProvideTokenServiceInterface(svc *Service) TokenService {
	return svc
}

func ProvideSweeper(cfg *config.Config, svc *Service, logger *logging.Service) *Sweeper {
	return NewSweeper(svc, cfg.Token.CleanupInterval, logger)
}

func RegisterLifecycle(lc fx.Lifecycle, cfg *config.Config, store Store, sweeper *Sweeper, logger *logging.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := store.EnsureExpiryIndex(ctx, ExpiresAtField, cfg.Token.CleanupAfterExpiry); err != nil {
				if logger != nil {
					logger.Error("failed to ensure token expiry index", zap.Error(err))
				}
				return err
			}
			sweeper.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sweeper.Stop()
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(ProvideStore),
	fx.Provide(ProvideMetrics),
	fx.Provide(ProvideTokenService),
	fx.Provide(ProvideTokenServiceInterface),
	fx.Provide(ProvideSweeper),
	fx.Invoke(RegisterLifecycle),
)
