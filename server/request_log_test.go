package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/onetime/services/logging"
	"github.com/tech-arch1tect/onetime/testutils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedServer(t *testing.T) (*Server, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	srv := New(testutils.GetTestConfig(), logging.NewFromZap(zap.New(core)))
	return srv, recorded
}

func serve(srv *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

func TestRequestLogging_SkipsMetricsPath(t *testing.T) {
	srv, recorded := newObservedServer(t)
	srv.Get("/metrics", func(c echo.Context) error {
		return c.String(http.StatusOK, "# metrics")
	})
	srv.Get("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	require.Equal(t, http.StatusOK, serve(srv, http.MethodGet, "/metrics").Code)
	assert.Zero(t, recorded.Len())

	require.Equal(t, http.StatusOK, serve(srv, http.MethodGet, "/healthz").Code)
	logs := recorded.FilterMessage("request").All()
	require.Len(t, logs, 1)
	assert.Equal(t, "/healthz", logs[0].ContextMap()["path"])
}

func TestRequestLogging_DropsQueryString(t *testing.T) {
	srv, recorded := newObservedServer(t)
	srv.Get("/tokens/qr", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	require.Equal(t, http.StatusOK, serve(srv, http.MethodGet, "/tokens/qr?data=%2Fverify%2F482913%2Flogin%3A42").Code)

	logs := recorded.All()
	require.Len(t, logs, 1)
	fields := logs[0].ContextMap()
	assert.Equal(t, "/tokens/qr", fields["path"])
	for key, value := range fields {
		if s, ok := value.(string); ok {
			assert.NotContains(t, s, "482913", "field %s", key)
		}
	}
}

func TestRequestLogging_LevelFollowsStatus(t *testing.T) {
	srv, recorded := newObservedServer(t)
	srv.Get("/boom", func(c echo.Context) error {
		return errors.New("storage unavailable")
	})

	tests := []struct {
		target  string
		status  int
		message string
		level   zapcore.Level
	}{
		{"/missing", http.StatusNotFound, "client error", zapcore.WarnLevel},
		{"/boom", http.StatusInternalServerError, "server error", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			require.Equal(t, tt.status, serve(srv, http.MethodGet, tt.target).Code)

			logs := recorded.TakeAll()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.message, logs[0].Message)
			assert.Equal(t, tt.level, logs[0].Level)
			assert.EqualValues(t, tt.status, logs[0].ContextMap()["status"])
		})
	}
}
