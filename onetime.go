// Package onetime issues, validates and consumes short-lived one-time codes
// bound to an identity.
package onetime

import (
	"github.com/tech-arch1tect/onetime/app"
	"github.com/tech-arch1tect/onetime/config"
	"github.com/tech-arch1tect/onetime/internal/options"
	"go.uber.org/fx"
)

type App = app.App

func New(opts ...options.Option) (*App, error) {
	return app.New(opts...)
}

func WithConfig(cfg *config.Config) options.Option {
	return options.WithConfig(cfg)
}

func WithDatabase(models ...any) options.Option {
	return options.WithDatabase(models...)
}

func WithTokens() options.Option {
	return options.WithTokens()
}

func WithMetrics() options.Option {
	return options.WithMetrics()
}

func WithFxOptions(opts ...fx.Option) options.Option {
	return options.WithFxOptions(opts...)
}
