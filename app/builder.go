package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tech-arch1tect/onetime/config"
	"github.com/tech-arch1tect/onetime/database"
	"github.com/tech-arch1tect/onetime/internal/options"
	"github.com/tech-arch1tect/onetime/server"
	"github.com/tech-arch1tect/onetime/services/logging"
	"github.com/tech-arch1tect/onetime/services/qrcode"
	"github.com/tech-arch1tect/onetime/services/token"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type AppBuilder struct {
	config    *config.Config
	services  map[string]bool
	models    []any
	fxOptions []fx.Option
	errors    []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{
		services:  make(map[string]bool),
		models:    make([]any, 0),
		fxOptions: make([]fx.Option, 0),
		errors:    make([]error, 0),
	}
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.addError("config cannot be nil")
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.addError(fmt.Sprintf("failed to load config: %v", err))
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithDatabase(models ...any) *AppBuilder {
	b.services["database"] = true
	b.models = append(b.models, models...)
	return b
}

// WithTokens enables the one-time token service, QR rendering and the
// /tokens HTTP routes.
func (b *AppBuilder) WithTokens() *AppBuilder {
	b.services["tokens"] = true
	return b
}

func (b *AppBuilder) WithMetrics() *AppBuilder {
	b.services["metrics"] = true
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if b.config == nil && len(b.errors) == 0 {
		b.WithAutoConfig()
	}

	if err := b.validate(); err != nil {
		return nil, err
	}

	logger, err := b.createLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	services, err := b.buildServices(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build services: %w", err)
	}

	app := &App{
		config:   b.config,
		logger:   logger,
		services: services,
		db:       services.database,
	}

	fxOptions := b.buildFxOptions(services, logger)
	fxOptions = append(fxOptions, fx.Invoke(func(srv *server.Server) {
		app.server = srv
	}))
	if b.services["tokens"] {
		fxOptions = append(fxOptions, fx.Invoke(func(svc token.TokenService) {
			app.tokens = svc
		}))
	}

	app.fx = fx.New(fxOptions...)
	if err := app.fx.Err(); err != nil {
		return nil, fmt.Errorf("failed to assemble application: %w", err)
	}

	return app, nil
}

func (b *AppBuilder) addError(msg string) {
	b.errors = append(b.errors, fmt.Errorf("%s", msg))
}

func (b *AppBuilder) validate() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("configuration errors: %v", b.errors)
	}

	if b.config == nil {
		return fmt.Errorf("config is required")
	}

	if b.services["tokens"] && b.config.Token.Store == config.StoreDatabase {
		b.services["database"] = true
	}

	return nil
}

func (b *AppBuilder) createLogger() (*logging.Service, error) {
	if b.config == nil {
		return nil, fmt.Errorf("config required for logger creation")
	}

	return logging.NewService(logging.Config{
		Level:      logging.LogLevel(b.config.Log.Level),
		Format:     b.config.Log.Format,
		OutputPath: b.config.Log.Output,
	})
}

type ServiceContainer struct {
	database *gorm.DB
	registry *prometheus.Registry
}

func (b *AppBuilder) buildServices(logger *logging.Service) (*ServiceContainer, error) {
	services := &ServiceContainer{}

	if b.services["database"] {
		db, err := database.ProvideDatabase(*b.config, database.WithModels(b.models...), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		services.database = db
	}

	if b.services["metrics"] && b.config.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		services.registry = registry
	}

	return services, nil
}

func (b *AppBuilder) buildFxOptions(services *ServiceContainer, logger *logging.Service) []fx.Option {
	var options []fx.Option

	options = append(options,
		fx.Supply(b.config),
		fx.Supply(logger),
		fx.NopLogger,
	)

	if services.database != nil {
		db := services.database
		options = append(options,
			fx.Supply(db),
			fx.Invoke(func(lc fx.Lifecycle) {
				lc.Append(fx.Hook{
					OnStop: func(ctx context.Context) error {
						sqlDB, err := db.DB()
						if err != nil {
							return err
						}
						return sqlDB.Close()
					},
				})
			}),
		)
	}

	if services.registry != nil {
		registry := services.registry
		options = append(options,
			fx.Provide(func() prometheus.Registerer { return registry }),
			fx.Provide(func() prometheus.Gatherer { return registry }),
		)
	}

	options = append(options, server.NewProvider())

	if b.services["tokens"] {
		options = append(options,
			token.Module,
			qrcode.Module,
			server.TokenRoutes,
		)
	}

	if services.registry != nil {
		options = append(options, server.MetricsRoute)
	}

	options = append(options, b.fxOptions...)

	return options
}

// New builds an App from functional options. Without a config option the
// configuration is loaded from the environment.
func New(opts ...options.Option) (*App, error) {
	o := options.Apply(opts...)

	b := NewApp()
	if o.Config != nil {
		b.WithConfig(o.Config)
	}
	if o.EnableDatabase {
		b.WithDatabase(o.DatabaseModels...)
	}
	if o.EnableTokens {
		b.WithTokens()
	}
	if o.EnableMetrics {
		b.WithMetrics()
	}
	b.WithFxOptions(o.ExtraFxOptions...)

	return b.Build()
}
