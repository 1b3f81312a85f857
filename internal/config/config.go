// Package config provides configuration for the langfuse service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/rezaarrazi-sqe/langfuse/internal/webhookurl"
)

// EnvPrefix prefixes every environment variable. Nested keys use a double
// underscore, e.g. LANGFUSE_SERVER__HTTP_PORT.
const EnvPrefix = "LANGFUSE_"

// Config holds the service configuration.
type Config struct {
	Server           ServerConfig           `koanf:"server" validate:"required"`
	Database         DatabaseConfig         `koanf:"database" validate:"required"`
	Observations     ObservationsConfig     `koanf:"observations" validate:"required"`
	RemoteExperiment RemoteExperimentConfig `koanf:"remote_experiment"`
	Storage          StorageConfig          `koanf:"storage"`
	Log              LogConfig              `koanf:"log"`
	NewRelic         NewRelicConfig         `koanf:"newrelic"`
}

type ServerConfig struct {
	HTTPPort        int           `koanf:"http_port" validate:"required,min=1,max=65535"`
	InternalPort    int           `koanf:"internal_port" validate:"required,min=1,max=65535"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required"`
}

type DatabaseConfig struct {
	SQLiteDSN   string `koanf:"sqlite_dsn" validate:"required"`
	PostgresURL string `koanf:"postgres_url"`
}

// ObservationsConfig controls the observation lookup.
type ObservationsConfig struct {
	// PrimaryEnabled routes lookups to the Postgres event store first.
	PrimaryEnabled bool `koanf:"primary_enabled"`
	TruncateChars  int  `koanf:"truncate_chars" validate:"min=1"`
	CompactChars   int  `koanf:"compact_chars" validate:"min=1"`
}

// RemoteExperimentConfig supplies the host/port used by path-only webhook entry.
type RemoteExperimentConfig struct {
	BaseHost    string        `koanf:"base_host"`
	BasePort    string        `koanf:"base_port" validate:"omitempty,numeric"`
	CatalogPath string        `koanf:"catalog_path"`
	Timeout     time.Duration `koanf:"timeout"`
}

type StorageConfig struct {
	S3 S3Config `koanf:"s3"`
}

// S3Config points at an S3-compatible bucket for CSV exports. Empty Bucket disables uploads.
type S3Config struct {
	Endpoint  string `koanf:"endpoint" validate:"omitempty,url"`
	Region    string `koanf:"region"`
	Bucket    string `koanf:"bucket"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
}

// Enabled reports whether exports can be uploaded.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Pretty bool   `koanf:"pretty"`
}

type NewRelicConfig struct {
	AppName    string `koanf:"app_name"`
	LicenseKey string `koanf:"license_key"`
}

// Enabled reports whether APM reporting is configured.
func (c NewRelicConfig) Enabled() bool {
	return c.LicenseKey != ""
}

var defaults = map[string]any{
	"server.http_port":           8080,
	"server.internal_port":       9091,
	"server.shutdown_timeout":    10 * time.Second,
	"database.sqlite_dsn":        "file:langfuse.db?cache=shared&mode=rwc",
	"observations.truncate_chars": 1000,
	"observations.compact_chars":  200,
	"remote_experiment.timeout":  30 * time.Second,
	"storage.s3.region":          "us-east-1",
	"log.level":                  "info",
	"newrelic.app_name":          "langfuse",
}

// Load reads .env (when present) and LANGFUSE_* environment variables on top
// of the defaults, then validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")
	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// catalogFile is the YAML layout of the remote experiment endpoint catalog.
type catalogFile struct {
	Endpoints []webhookurl.Endpoint `yaml:"endpoints"`
}

// LoadCatalog reads the endpoint catalog. An empty path yields no endpoints.
func LoadCatalog(path string) ([]webhookurl.Endpoint, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read endpoint catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse endpoint catalog: %w", err)
	}
	for i, e := range f.Endpoints {
		if strings.TrimSpace(e.Path) == "" {
			return nil, fmt.Errorf("endpoint catalog entry %d: path is required", i)
		}
	}
	return f.Endpoints, nil
}

// WebhookDefaults builds the path-mode defaults from config and catalog.
func (c *Config) WebhookDefaults(endpoints []webhookurl.Endpoint) webhookurl.Defaults {
	return webhookurl.Defaults{
		Host:      c.RemoteExperiment.BaseHost,
		Port:      c.RemoteExperiment.BasePort,
		Endpoints: endpoints,
	}
}
