package options

import (
	"github.com/tech-arch1tect/onetime/config"
	"go.uber.org/fx"
)

type Options struct {
	Config         *config.Config
	EnableDatabase bool
	DatabaseModels []any
	EnableTokens   bool
	EnableMetrics  bool
	ExtraFxOptions []fx.Option
}

type Option func(*Options)

func Apply(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func WithConfig(cfg *config.Config) Option {
	return func(opts *Options) {
		opts.Config = cfg
	}
}

func WithDatabase(models ...any) Option {
	return func(opts *Options) {
		opts.EnableDatabase = true
		opts.DatabaseModels = append(opts.DatabaseModels, models...)
	}
}

func WithTokens() Option {
	return func(opts *Options) {
		opts.EnableTokens = true
	}
}

func WithMetrics() Option {
	return func(opts *Options) {
		opts.EnableMetrics = true
	}
}

func WithFxOptions(fxOpts ...fx.Option) Option {
	return func(opts *Options) {
		opts.ExtraFxOptions = append(opts.ExtraFxOptions, fxOpts...)
	}
}
