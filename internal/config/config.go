// Package config loads application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingToken is returned when a GitHub-backed command runs without a token.
var ErrMissingToken = errors.New("GITHUB_TOKEN environment variable is not set")

// DefaultEnvFile is read when present; real environment variables win over it.
const DefaultEnvFile = ".env"

// Config holds application configuration.
type Config struct {
	GitHub   GitHubConfig   `mapstructure:"github"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Insights InsightsConfig `mapstructure:"insights"`
	Export   ExportConfig   `mapstructure:"export"`
	Backfill BackfillConfig `mapstructure:"backfill"`
}

// GitHubConfig holds API credentials.
type GitHubConfig struct {
	Token string `mapstructure:"token"`
}

// LoggingConfig contains logger preferences.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// ServerConfig contains HTTP server options.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// PostgresConfig describes the events cache database.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// InsightsConfig tunes the derivations.
type InsightsConfig struct {
	StaleAfter time.Duration `mapstructure:"stale_after"`
	PageSize   int           `mapstructure:"page_size"`
	MaxVisible int           `mapstructure:"max_visible"`
	BotsFile   string        `mapstructure:"bots_file"`
	Lookback   time.Duration `mapstructure:"lookback"`
}

// ExportConfig bounds how often exports may run.
type ExportConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// BackfillConfig bounds the events backfill job.
type BackfillConfig struct {
	Days     int `mapstructure:"days"`
	MaxPages int `mapstructure:"max_pages"`
}

// NewConfig loads configuration from envFile (if it exists) and the environment.
func NewConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if envMap, err := godotenv.Read(envFile); err == nil {
			for k, val := range envMap {
				if _, exists := os.LookupEnv(k); !exists {
					_ = os.Setenv(k, val)
				}
			}
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)

	v.SetDefault("insights.stale_after", 30*24*time.Hour)
	v.SetDefault("insights.page_size", 15)
	v.SetDefault("insights.max_visible", 10)
	v.SetDefault("insights.bots_file", "")
	v.SetDefault("insights.lookback", 90*24*time.Hour)

	v.SetDefault("export.limit", 10)
	v.SetDefault("export.window", time.Minute)

	v.SetDefault("backfill.days", 30)
	v.SetDefault("backfill.max_pages", 10)
}

func bindEnvs(v *viper.Viper) {
	// Keys with a conventional env name that does not follow the dotted layout.
	_ = v.BindEnv("github.token", "GITHUB_TOKEN")
	_ = v.BindEnv("postgres.dsn", "DATABASE_URL")

	keys := []string{
		"logging.level",
		"server.host",
		"server.port",
		"server.shutdown_timeout",
		"server.request_timeout",
		"insights.stale_after",
		"insights.page_size",
		"insights.max_visible",
		"insights.bots_file",
		"insights.lookback",
		"export.limit",
		"export.window",
		"backfill.days",
		"backfill.max_pages",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

// Validate checks values that have no sensible fallback.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Insights.PageSize <= 0 {
		return errors.New("insights.page_size must be positive")
	}
	if c.Insights.MaxVisible <= 0 {
		return errors.New("insights.max_visible must be positive")
	}
	if c.Insights.StaleAfter <= 0 {
		return errors.New("insights.stale_after must be positive")
	}
	if c.Export.Limit <= 0 || c.Export.Window <= 0 {
		return errors.New("export.limit and export.window must be positive")
	}
	if c.Backfill.Days <= 0 || c.Backfill.MaxPages <= 0 {
		return errors.New("backfill.days and backfill.max_pages must be positive")
	}
	return nil
}

// RequireToken returns ErrMissingToken when no GitHub token is configured.
func (c Config) RequireToken() (string, error) {
	if strings.TrimSpace(c.GitHub.Token) == "" {
		return "", ErrMissingToken
	}
	return c.GitHub.Token, nil
}

// RequireDSN returns an error when no database is configured.
func (c Config) RequireDSN() (string, error) {
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		return "", errors.New("DATABASE_URL environment variable is not set")
	}
	return c.Postgres.DSN, nil
}

// ServerAddr returns host:port for HTTP server binding.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
