package server

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tech-arch1tect/onetime/config"
	"go.uber.org/fx"
)

func NewProvider() fx.Option {
	return fx.Options(
		fx.Provide(New),
		fx.Invoke(func(lc fx.Lifecycle, srv *Server) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					go func() {
						_ = srv.Start()
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return srv.Shutdown(ctx)
				},
			})
		}),
	)
}

var TokenRoutes = fx.Options(
	fx.Provide(NewTokenHandler),
	fx.Provide(NewTokenAPIDocs),
	fx.Invoke(func(h *TokenHandler, srv *Server) {
		h.Register(srv)
	}),
	fx.Invoke(RegisterDocs),
)

type MetricsParams struct {
	fx.In
	Config   *config.Config
	Server   *Server
	Gatherer prometheus.Gatherer `optional:"true"`
}

// RegisterMetrics exposes the gatherer at the configured path. It does nothing
// when metrics are disabled or no gatherer is available.
func RegisterMetrics(p MetricsParams) {
	if !p.Config.Metrics.Enabled || p.Gatherer == nil {
		return
	}
	handler := promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{})
	p.Server.Get(p.Config.Metrics.Path, echo.WrapHandler(handler))
}

var MetricsRoute = fx.Invoke(RegisterMetrics)
