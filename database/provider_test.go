package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/onetime/config"
	"github.com/tech-arch1tect/onetime/services/logging"
	"gorm.io/gorm"
)

func createTestConfig(driver, dsn string, autoMigrate bool) config.Config {
	return config.Config{
		Database: config.DatabaseConfig{
			Driver:      driver,
			DSN:         dsn,
			AutoMigrate: autoMigrate,
		},
	}
}

type TestModel struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:255"`
}

func TestWithModels(t *testing.T) {
	t.Run("with multiple models", func(t *testing.T) {
		model1 := TestModel{}
		model2 := &TestModel{}
		option := WithModels(model1, model2)

		require.NotNil(t, option)
		assert.Len(t, option.models, 2)
		assert.Equal(t, model1, option.models[0])
		assert.Equal(t, model2, option.models[1])
	})

	t.Run("with no models", func(t *testing.T) {
		option := WithModels()

		require.NotNil(t, option)
		assert.Empty(t, option.models)
	})
}

func TestProvideDatabase_SQLite(t *testing.T) {
	drivers := []string{"sqlite", "sqlite-purego"}

	for _, driver := range drivers {
		t.Run(driver+" in-memory", func(t *testing.T) {
			cfg := createTestConfig(driver, ":memory:", false)

			db, err := ProvideDatabase(cfg, nil, logging.NewNop())

			require.NoError(t, err)
			sqlDB, err := db.DB()
			require.NoError(t, err)
			defer sqlDB.Close()
			assert.NoError(t, sqlDB.Ping())
		})
	}

	t.Run("file-based", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")
		cfg := createTestConfig("sqlite", dbPath, false)

		db, err := ProvideDatabase(cfg, nil, nil)

		require.NoError(t, err)
		sqlDB, err := db.DB()
		require.NoError(t, err)
		defer sqlDB.Close()

		_, err = os.Stat(dbPath)
		assert.NoError(t, err)
	})

	t.Run("auto-migration enabled", func(t *testing.T) {
		cfg := createTestConfig("sqlite", ":memory:", true)

		db, err := ProvideDatabase(cfg, WithModels(&TestModel{}), logging.NewNop())

		require.NoError(t, err)
		assert.True(t, db.Migrator().HasTable(&TestModel{}))
	})

	t.Run("auto-migration disabled", func(t *testing.T) {
		cfg := createTestConfig("sqlite", ":memory:", false)

		db, err := ProvideDatabase(cfg, WithModels(&TestModel{}), nil)

		require.NoError(t, err)
		assert.False(t, db.Migrator().HasTable(&TestModel{}))
	})

	t.Run("invalid path", func(t *testing.T) {
		cfg := createTestConfig("sqlite", "/nonexistent/directory/test.db", false)

		db, err := ProvideDatabase(cfg, nil, nil)

		require.Error(t, err)
		assert.Nil(t, db)
		assert.Contains(t, err.Error(), "failed to connect to database")
	})
}

func TestProvideDatabase_UnsupportedDriver(t *testing.T) {
	for _, driver := range []string{"unsupported", ""} {
		t.Run("driver "+driver, func(t *testing.T) {
			cfg := createTestConfig(driver, "test", false)

			db, err := ProvideDatabase(cfg, nil, nil)

			require.Error(t, err)
			assert.Nil(t, db)
			assert.Contains(t, err.Error(), "unsupported database driver")
		})
	}
}

func TestProvideDatabase_AutoMigrationFailure(t *testing.T) {
	type InvalidChannelModel struct {
		ID      uint `gorm:"primaryKey"`
		Channel chan string
	}

	cfg := createTestConfig("sqlite", ":memory:", true)

	db, err := ProvideDatabase(cfg, WithModels(InvalidChannelModel{}), nil)

	require.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "failed to auto-migrate models")
}

func TestNewGormLogger(t *testing.T) {
	assert.NotNil(t, newGormLogger(nil))
	assert.NotNil(t, newGormLogger(&logging.Service{}))
	assert.NotNil(t, newGormLogger(logging.NewNop()))
}

func TestIsMemoryDSN(t *testing.T) {
	assert.True(t, isMemoryDSN(":memory:"))
	assert.True(t, isMemoryDSN("file::memory:?cache=shared"))
	assert.True(t, isMemoryDSN("file:test.db?mode=memory"))
	assert.False(t, isMemoryDSN("onetime.db"))
	assert.False(t, isMemoryDSN("host=localhost user=onetime dbname=onetime"))
}

func TestProvideDatabase_MemoryPoolSharesSchema(t *testing.T) {
	cfg := config.Config{
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
	}

	db, err := ProvideDatabase(cfg, WithModels(&TestModel{}), nil)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	err = db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&TestModel{Name: "pooled"}).Error
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&TestModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
