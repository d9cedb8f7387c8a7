// Package config loads runtime configuration from an optional YAML file
// and KINPOINT_* environment variables, with environment taking
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable the app reads at startup.
type Config struct {
	// DataDir is where the database, secrets and logs live.
	DataDir string

	// DBFile and SecretsFile are filenames inside DataDir.
	DBFile      string
	SecretsFile string

	// APIURL is the remote base URL. Empty means use whatever the
	// secret store already holds from a previous login.
	APIURL string

	// HTTPTimeout bounds every remote request.
	HTTPTimeout time.Duration

	// TrackInterval and TrackDistance tune the background tracker.
	TrackInterval time.Duration
	TrackDistance float64

	// LogFile is the rotating log filename inside DataDir, used by the
	// track daemon. Empty disables file logging.
	LogFile string
}

// Load reads config.yaml from the data directory (if present) and
// applies KINPOINT_* environment overrides.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("db_file", "kinpoint.db")
	v.SetDefault("secrets_file", "secrets.json")
	v.SetDefault("api_url", "")
	v.SetDefault("http_timeout", "15s")
	v.SetDefault("track_interval", "15m")
	v.SetDefault("track_distance", 500.0)
	v.SetDefault("log_file", "kinpoint.log")

	v.SetEnvPrefix("KINPOINT")
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(v.GetString("data_dir"))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		DataDir:       v.GetString("data_dir"),
		DBFile:        v.GetString("db_file"),
		SecretsFile:   v.GetString("secrets_file"),
		APIURL:        v.GetString("api_url"),
		HTTPTimeout:   v.GetDuration("http_timeout"),
		TrackInterval: v.GetDuration("track_interval"),
		TrackDistance: v.GetFloat64("track_distance"),
		LogFile:       v.GetString("log_file"),
	}

	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}
	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("http timeout must be positive, got %s", cfg.HTTPTimeout)
	}
	if cfg.TrackInterval <= 0 {
		return nil, fmt.Errorf("track interval must be positive, got %s", cfg.TrackInterval)
	}

	return cfg, nil
}

// DBPath returns the absolute database path.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, c.DBFile)
}

// SecretsPath returns the absolute secret-store path.
func (c *Config) SecretsPath() string {
	return filepath.Join(c.DataDir, c.SecretsFile)
}

// LogPath returns the absolute log path, or empty when file logging is
// disabled.
func (c *Config) LogPath() string {
	if c.LogFile == "" {
		return ""
	}
	return filepath.Join(c.DataDir, c.LogFile)
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return ".kinpoint"
		}
		return filepath.Join(home, ".kinpoint")
	}
	return filepath.Join(base, "kinpoint")
}
