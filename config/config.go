package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `envPrefix:"APP_" yaml:"app"`
	Server   ServerConfig   `envPrefix:"SERVER_" yaml:"server"`
	Log      LogConfig      `envPrefix:"LOG_" yaml:"log"`
	Database DatabaseConfig `envPrefix:"DATABASE_" yaml:"database"`
	Token    TokenConfig    `envPrefix:"TOKEN_" yaml:"token"`
	Metrics  MetricsConfig  `envPrefix:"METRICS_" yaml:"metrics"`
}

type AppConfig struct {
	Name string `env:"NAME" envDefault:"onetime" yaml:"name"`
	URL  string `env:"URL" envDefault:"http://localhost:8080" yaml:"url"`
}

type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080" yaml:"port"`
	Host string `env:"HOST" envDefault:"localhost" yaml:"host"`
	// TrustedProxies lists IPs or CIDRs whose X-Forwarded-For header is honoured.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:"," yaml:"trusted_proxies"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info" yaml:"level"`
	Format string `env:"FORMAT" envDefault:"json" yaml:"format"`
	Output string `env:"OUTPUT" envDefault:"stdout" yaml:"output"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite" yaml:"driver"`
	DSN         string `env:"DSN" envDefault:"onetime.db" yaml:"dsn"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true" yaml:"auto_migrate"`
}

type TokenConfig struct {
	// Store selects the storage backend: "database" or "memory".
	Store              string        `env:"STORE" envDefault:"database" yaml:"store"`
	DefaultValidity    time.Duration `env:"DEFAULT_VALIDITY" envDefault:"5m" yaml:"default_validity"`
	DefaultDigits      int           `env:"DEFAULT_DIGITS" envDefault:"6" yaml:"default_digits"`
	HashAlgorithm      string        `env:"HASH_ALGORITHM" envDefault:"sha512" yaml:"hash_algorithm"`
	CleanupAfterExpiry time.Duration `env:"CLEANUP_AFTER_EXPIRY" envDefault:"24h" yaml:"cleanup_after_expiry"`
	CleanupInterval    time.Duration `env:"CLEANUP_INTERVAL" envDefault:"10m" yaml:"cleanup_interval"`
	QRURLPrefix        string        `env:"QR_URL_PREFIX" envDefault:"/verify/" yaml:"qr_url_prefix"`
	QRSize             int           `env:"QR_SIZE" envDefault:"256" yaml:"qr_size"`
}

type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true" yaml:"enabled"`
	Path    string `env:"PATH" envDefault:"/metrics" yaml:"path"`
}

const (
	StoreDatabase = "database"
	StoreMemory   = "memory"
)

var supportedHashAlgorithms = map[string]bool{
	"sha512":   true,
	"sha3-512": true,
}

// LoadConfig reads .env, then the environment, then the optional YAML file
// named by CONFIG_FILE. Values present in the file take precedence.
func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return err
		}
	}

	if c, ok := cfg.(*Config); ok {
		if err := validateConfig(c); err != nil {
			return err
		}
	}

	return nil
}

// LoadFile decodes a YAML document over cfg. Keys missing from the file
// leave the existing values untouched.
func LoadFile(path string, cfg any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func validateConfig(cfg *Config) error {
	return validateTokenConfig(&cfg.Token)
}

func validateTokenConfig(cfg *TokenConfig) error {
	switch cfg.Store {
	case StoreDatabase, StoreMemory:
	default:
		return fmt.Errorf("token store must be: %s or %s", StoreDatabase, StoreMemory)
	}

	if cfg.DefaultValidity <= 0 {
		return fmt.Errorf("token default validity must be positive")
	}

	if cfg.DefaultDigits < 0 || cfg.DefaultDigits > 64 {
		return fmt.Errorf("token default digits must be between 0 and 64")
	}

	if !supportedHashAlgorithms[cfg.HashAlgorithm] {
		return fmt.Errorf("token hash algorithm must be: sha512 or sha3-512")
	}

	if cfg.CleanupAfterExpiry < 0 {
		return fmt.Errorf("token cleanup grace period cannot be negative")
	}

	return nil
}
