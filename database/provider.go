package database

import (
	"fmt"
	"strings"
	"time"

	puregosqlite "github.com/glebarez/sqlite"
	"github.com/tech-arch1tect/onetime/config"
	"github.com/tech-arch1tect/onetime/services/logging"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type ModelsOption struct {
	models []any
}

func WithModels(models ...any) *ModelsOption {
	return &ModelsOption{models: models}
}

func ProvideDatabase(cfg config.Config, modelsOpt *ModelsOption, logger *logging.Service) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Database.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.DSN)
	case "sqlite-purego":
		dialector = puregosqlite.Open(cfg.Database.DSN)
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.Database.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, sqlite-purego, postgres, mysql)", cfg.Database.Driver)
	}

	if logger != nil {
		logger.Info("connecting to database", zap.String("driver", cfg.Database.Driver))
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(logger)})
	if err != nil {
		if logger != nil {
			logger.Error("failed to connect to database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if isMemoryDSN(cfg.Database.DSN) {
		// each pooled connection to an in-memory sqlite database is a separate database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access database pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if cfg.Database.AutoMigrate && modelsOpt != nil && len(modelsOpt.models) > 0 {
		if err := db.AutoMigrate(modelsOpt.models...); err != nil {
			if logger != nil {
				logger.Error("failed to auto-migrate models", zap.Error(err))
			}
			return nil, fmt.Errorf("failed to auto-migrate models: %w", err)
		}
		if logger != nil {
			logger.Debug("auto-migrated models", zap.Int("model_count", len(modelsOpt.models)))
		}
	}

	return db, nil
}

// newGormLogger routes gorm's slow-query and error output through zap.
func newGormLogger(logger *logging.Service) gormlogger.Interface {
	if logger == nil || logger.Logger() == nil {
		return gormlogger.Default.LogMode(gormlogger.Silent)
	}

	return gormlogger.New(
		zap.NewStdLog(logger.Logger().Named("gorm")),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
