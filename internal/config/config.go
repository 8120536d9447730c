package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds environment-driven configuration.
type Config struct {
	HTTP  HTTPConfig
	MySQL MySQLConfig
	Track TrackConfig
	Log   LogConfig
}

// HTTPConfig holds the presentation-boundary HTTP server settings.
type HTTPConfig struct {
	Addr string `env:"HTTP_ADDR" env-default:":8080"`
}

// MySQLConfig holds the entry store connection settings.
type MySQLConfig struct {
	// DSN example: user:pass@tcp(host:3306)/dbname?parseTime=true&multiStatements=true
	DSN string `env:"MYSQL_DSN" env-required:"true"`
}

// TrackConfig holds totals-bucketing settings.
type TrackConfig struct {
	// Timezone is the calendar used for today/week/month bucketing,
	// e.g. UTC (default) or Europe/Berlin.
	Timezone string `env:"TRACK_TZ" env-default:"UTC"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `env:"LOG_LEVEL" env-default:"info"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
