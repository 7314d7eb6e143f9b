package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/onetime/server"
	"github.com/tech-arch1tect/onetime/services/logging"
	"github.com/tech-arch1tect/onetime/services/token"
	"github.com/tech-arch1tect/onetime/testutils"
	"go.uber.org/fx"
)

func createTestApp(t *testing.T) *App {
	t.Helper()
	cfg := testutils.GetTestConfig()
	logger := logging.NewNop()
	db := testutils.SetupTestDB(t)

	return &App{
		config:   cfg,
		logger:   logger,
		services: &ServiceContainer{database: db},
		db:       db,
		server:   server.New(cfg, logger),
	}
}

func TestApp_StartStop(t *testing.T) {
	t.Run("start and stop", func(t *testing.T) {
		started, stopped := false, false
		fxApp := fx.New(
			fx.NopLogger,
			fx.Invoke(func(lc fx.Lifecycle) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						started = true
						return nil
					},
					OnStop: func(ctx context.Context) error {
						stopped = true
						return nil
					},
				})
			}),
		)
		app := &App{fx: fxApp}

		require.NoError(t, app.Start())
		assert.True(t, started)

		app.Stop()
		assert.True(t, stopped)
	})

	t.Run("start error", func(t *testing.T) {
		fxApp := fx.New(
			fx.NopLogger,
			fx.Invoke(func() error {
				return assert.AnError
			}),
		)
		app := &App{fx: fxApp}

		assert.Error(t, app.Start())
		assert.Error(t, app.StartTest())
	})

	t.Run("stop errors are logged, not returned", func(t *testing.T) {
		fxApp := fx.New(
			fx.NopLogger,
			fx.Invoke(func(lc fx.Lifecycle) {
				lc.Append(fx.Hook{
					OnStop: func(ctx context.Context) error {
						return assert.AnError
					},
				})
			}),
		)

		withLogger := &App{fx: fxApp, logger: logging.NewNop()}
		require.NoError(t, withLogger.StartTest())
		withLogger.StopTest()

		withoutLogger := &App{fx: fxApp}
		withoutLogger.Stop()
	})

	t.Run("stop honours timeout", func(t *testing.T) {
		fxApp := fx.New(
			fx.NopLogger,
			fx.Invoke(func(lc fx.Lifecycle) {
				lc.Append(fx.Hook{
					OnStop: func(ctx context.Context) error {
						select {
						case <-ctx.Done():
							return ctx.Err()
						case <-time.After(5 * time.Second):
							return nil
						}
					},
				})
			}),
		)
		app := &App{fx: fxApp}
		require.NoError(t, app.StartTest())

		begin := time.Now()
		app.StopTest()
		assert.Less(t, time.Since(begin), 5*time.Second)
	})
}

func TestApp_Accessors(t *testing.T) {
	app := createTestApp(t)

	assert.Equal(t, app.db, app.Database())
	assert.Equal(t, app.db, app.DB())
	assert.Equal(t, app.logger, app.Logger())
	assert.Equal(t, app.config, app.Config())
	assert.Equal(t, app.server, app.OnetimeServer())
	assert.Equal(t, app.server.Echo(), app.Server())
	assert.Nil(t, app.Tokens())

	svc, err := token.NewService(app.config, token.NewMemoryStore(), nil)
	require.NoError(t, err)
	app.tokens = svc
	assert.Equal(t, token.TokenService(svc), app.Tokens())
}

func TestApp_NilServer(t *testing.T) {
	app := &App{logger: logging.NewNop()}
	assert.Nil(t, app.Server())

	called := false
	app.RegisterRoutes(func(*echo.Echo) { called = true })
	assert.False(t, called)

	handler := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	app.Get("/x", handler)
	app.Post("/x", handler)
	app.Put("/x", handler)
	app.Delete("/x", handler)
	app.Patch("/x", handler)
}

func TestApp_Routes(t *testing.T) {
	app := createTestApp(t)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, c.Request().Method)
	}

	register := map[string]func(string, echo.HandlerFunc, ...echo.MiddlewareFunc){
		http.MethodGet:    app.Get,
		http.MethodPost:   app.Post,
		http.MethodPut:    app.Put,
		http.MethodDelete: app.Delete,
		http.MethodPatch:  app.Patch,
	}

	for method, fn := range register {
		fn("/route", handler)

		req := httptest.NewRequest(method, "/route", nil)
		rec := httptest.NewRecorder()
		app.Server().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, method)
		assert.Equal(t, method, rec.Body.String())
	}

	var registered *echo.Echo
	app.RegisterRoutes(func(e *echo.Echo) { registered = e })
	assert.Equal(t, app.Server(), registered)
}
