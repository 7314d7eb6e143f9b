package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/tech-arch1tect/onetime/config"
	"github.com/tech-arch1tect/onetime/services/logging"
	"go.uber.org/zap"
)

type Server struct {
	echo   *echo.Echo
	cfg    *config.Config
	logger *logging.Service
}

func New(cfg *config.Config, logger *logging.Service) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	configureTrustedProxies(e, cfg.Server.TrustedProxies, logger)

	e.Use(middleware.Recover())
	if logger != nil {
		e.Use(logging.RequestLogger(logger, cfg.Metrics.Path))
	}

	return &Server{
		echo:   e,
		cfg:    cfg,
		logger: logger,
	}
}

// Start blocks until the listener is closed. A clean shutdown is not an error.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.cfg.Server.Host, s.cfg.Server.Port)

	if s.logger != nil {
		s.logger.Info("starting onetime server", zap.String("address", addr))
		s.logRoutes()
	}

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if s.logger != nil {
			s.logger.Error("server stopped unexpectedly", zap.Error(err))
		}
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.logger != nil {
		s.logger.Info("shutting down onetime server")
	}
	return s.echo.Shutdown(ctx)
}

func (s *Server) Get(path string, handler echo.HandlerFunc) {
	s.echo.GET(path, handler)
}

func (s *Server) Post(path string, handler echo.HandlerFunc) {
	s.echo.POST(path, handler)
}

func (s *Server) Put(path string, handler echo.HandlerFunc) {
	s.echo.PUT(path, handler)
}

func (s *Server) Delete(path string, handler echo.HandlerFunc) {
	s.echo.DELETE(path, handler)
}

func (s *Server) Patch(path string, handler echo.HandlerFunc) {
	s.echo.PATCH(path, handler)
}

func (s *Server) Group(prefix string) *echo.Group {
	return s.echo.Group(prefix)
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) logRoutes() {
	for _, r := range s.echo.Routes() {
		s.logger.Debug("route registered",
			zap.String("method", r.Method),
			zap.String("path", r.Path),
			zap.String("handler", shortenHandlerName(r.Name)))
	}
}

// configureTrustedProxies reads the client IP from X-Forwarded-For only when
// the request arrives from one of proxies. Without any valid entry the
// socket address is used.
func configureTrustedProxies(e *echo.Echo, proxies []string, logger *logging.Service) {
	var ranges []echo.TrustOption

	for _, proxy := range proxies {
		proxy = strings.TrimSpace(proxy)
		if proxy == "" {
			continue
		}

		ipNet, err := parseProxy(proxy)
		if err != nil {
			if logger != nil {
				logger.Warn("ignoring invalid trusted proxy", zap.String("proxy", proxy), zap.Error(err))
			}
			continue
		}
		ranges = append(ranges, echo.TrustIPRange(ipNet))
	}

	if len(ranges) == 0 {
		e.IPExtractor = echo.ExtractIPDirect()
		return
	}

	options := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	e.IPExtractor = echo.ExtractIPFromXFFHeader(append(options, ranges...)...)
}

func parseProxy(proxy string) (*net.IPNet, error) {
	if strings.Contains(proxy, "/") {
		_, ipNet, err := net.ParseCIDR(proxy)
		return ipNet, err
	}

	ip := net.ParseIP(proxy)
	if ip == nil {
		return nil, fmt.Errorf("invalid IP address: %s", proxy)
	}

	bits := 128
	if ip.To4() != nil {
		ip = ip.To4()
		bits = 32
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}

func shortenHandlerName(name string) string {
	if idx := strings.Index(name, "/"); idx != -1 {
		name = name[idx+1:]
	}
	if len(name) > 80 {
		name = name[:77] + "..."
	}
	return name
}
