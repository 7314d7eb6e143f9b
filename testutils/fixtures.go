package testutils

import (
	"time"

	"github.com/tech-arch1tect/onetime/config"
)

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "Test App",
			URL:  "http://localhost:8080",
		},
		Server: config.ServerConfig{
			Host: "localhost",
			Port: "0",
		},
		Log: config.LogConfig{
			Level:  "debug",
			Format: "console",
			Output: "stdout",
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
		Token: config.TokenConfig{
			Store:              config.StoreMemory,
			DefaultValidity:    5 * time.Minute,
			DefaultDigits:      6,
			HashAlgorithm:      "sha512",
			CleanupAfterExpiry: time.Hour,
			CleanupInterval:    0,
			QRURLPrefix:        "/verify/",
			QRSize:             128,
		},
		Metrics: config.MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

var TestIdentities = struct {
	PasswordReset     []string
	EmailVerification []string
	Login             []string
}{
	PasswordReset:     []string{"password-reset", "user@example.com"},
	EmailVerification: []string{"email-verification", "user@example.com"},
	Login:             []string{"login", "42"},
}

// FixedClock returns a clock frozen at start that moves only when advance is called.
func FixedClock(start time.Time) (now func() time.Time, advance func(time.Duration)) {
	current := start
	now = func() time.Time { return current }
	advance = func(d time.Duration) { current = current.Add(d) }
	return now, advance
}
