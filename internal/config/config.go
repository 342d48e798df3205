// Package config loads and validates application configuration from YAML files
// and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Identity      IdentityConfig      `yaml:"identity"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Table         TableConfig         `yaml:"table"`
	Session       SessionConfig       `yaml:"session"`
	Store         StoreConfig         `yaml:"store"`
	Bulk          BulkConfig          `yaml:"bulk"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig describes HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	HandlerTimeout  time.Duration `yaml:"handler_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORS            CORSConfig    `yaml:"cors"`
}

// CORSConfig describes Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// IdentityConfig describes bearer token verification and the role policy.
// Tokens are verified with SigningKey (HMAC) when set, otherwise against the
// keys published at JWKSURL.
type IdentityConfig struct {
	Enabled            bool              `yaml:"enabled"`
	Issuer             string            `yaml:"issuer"`
	Audience           string            `yaml:"audience"`
	SigningKey         string            `yaml:"signing_key"`
	JWKSURL            string            `yaml:"jwks_url"`
	JWKSCacheTTL       time.Duration     `yaml:"jwks_cache_ttl"`
	Algorithms         []string          `yaml:"algorithms"`
	ClaimPaths         map[string]string `yaml:"claim_paths"`
	PolicyFile         string            `yaml:"policy_file"`
	CapabilityCacheTTL time.Duration     `yaml:"capability_cache_ttl"`
}

// CatalogConfig describes where to find table catalog files.
type CatalogConfig struct {
	Directories []string `yaml:"directories"`
}

// TableConfig holds engine-wide defaults for table instances.
type TableConfig struct {
	ColumnPolicy string `yaml:"column_policy"`
}

// SessionConfig bounds the lifetime and number of live table instances.
type SessionConfig struct {
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	AbsoluteTimeout time.Duration `yaml:"absolute_timeout"`
	MaxSessions     int           `yaml:"max_sessions"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
}

// StoreConfig selects the row store backend.
type StoreConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
	Seed     bool   `yaml:"seed"`
}

// BulkConfig describes bulk action settings.
type BulkConfig struct {
	Idempotency IdempotencyConfig `yaml:"idempotency"`
}

// IdempotencyConfig describes idempotency store settings.
type IdempotencyConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Driver     string        `yaml:"driver"`
	Addr       string        `yaml:"addr"`
	DB         int           `yaml:"db"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// ObservabilityConfig describes logging, tracing, and metrics settings.
type ObservabilityConfig struct {
	LogLevel string        `yaml:"log_level"`
	Tracing  TracingConfig `yaml:"tracing"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// TracingConfig describes distributed tracing settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// MetricsConfig describes Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			HandlerTimeout:  25 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORS: CORSConfig{
				AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type",
					"X-Correlation-Id", "X-Idempotency-Key"},
				MaxAge: 86400,
			},
		},
		Identity: IdentityConfig{
			Enabled:      true,
			JWKSCacheTTL: 1 * time.Hour,
			Algorithms:   []string{"RS256"},
			ClaimPaths: map[string]string{
				"subject_id": "sub",
				"tenant_id":  "tenant_id",
				"email":      "email",
				"roles":      "roles",
			},
			CapabilityCacheTTL: 5 * time.Minute,
		},
		Catalog: CatalogConfig{
			Directories: []string{"/catalogs"},
		},
		Table: TableConfig{
			ColumnPolicy: "lenient",
		},
		Session: SessionConfig{
			IdleTimeout:     15 * time.Minute,
			AbsoluteTimeout: 8 * time.Hour,
			MaxSessions:     1000,
			SweepInterval:   time.Minute,
		},
		Store: StoreConfig{
			Driver:   "memory",
			MaxConns: 10,
			Seed:     true,
		},
		Bulk: BulkConfig{
			Idempotency: IdempotencyConfig{
				Enabled:    true,
				Driver:     "memory",
				DefaultTTL: 24 * time.Hour,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			Tracing: TracingConfig{
				Exporter:     "otlp",
				SamplingRate: 0.1,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// Load reads a YAML config file, applies environment variable overrides,
// and validates required fields. A .env file next to the config file is
// loaded first; ${VAR} references in the YAML are expanded.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if c.Identity.Enabled {
		if c.Identity.Issuer == "" {
			errs = append(errs, "identity.issuer is required")
		}
		if c.Identity.Audience == "" {
			errs = append(errs, "identity.audience is required")
		}
		if c.Identity.SigningKey == "" && c.Identity.JWKSURL == "" {
			errs = append(errs, "identity.signing_key or identity.jwks_url is required")
		}
	}

	if len(c.Catalog.Directories) == 0 {
		errs = append(errs, "catalog.directories must list at least one directory")
	}

	switch c.Table.ColumnPolicy {
	case "strict", "lenient":
	default:
		errs = append(errs, fmt.Sprintf("table.column_policy %q must be strict or lenient", c.Table.ColumnPolicy))
	}

	if c.Session.IdleTimeout <= 0 {
		errs = append(errs, "session.idle_timeout must be positive")
	}
	if c.Session.AbsoluteTimeout < c.Session.IdleTimeout {
		errs = append(errs, "session.absolute_timeout must not be shorter than session.idle_timeout")
	}
	if c.Session.MaxSessions < 0 {
		errs = append(errs, "session.max_sessions must not be negative")
	}

	switch c.Store.Driver {
	case "memory":
	case "postgres":
		if c.Store.DSN == "" {
			errs = append(errs, "store.dsn is required for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be memory or postgres", c.Store.Driver))
	}

	if idem := c.Bulk.Idempotency; idem.Enabled {
		switch idem.Driver {
		case "memory":
		case "redis":
			if idem.Addr == "" {
				errs = append(errs, "bulk.idempotency.addr is required for the redis driver")
			}
		default:
			errs = append(errs, fmt.Sprintf("bulk.idempotency.driver %q must be memory or redis", idem.Driver))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// applyEnvOverrides reads TABULA_* environment variables and overrides config
// values. Only the most commonly overridden fields are supported.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TABULA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TABULA_IDENTITY_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Identity.Enabled = enabled
		}
	}
	if v := os.Getenv("TABULA_IDENTITY_ISSUER"); v != "" {
		cfg.Identity.Issuer = v
	}
	if v := os.Getenv("TABULA_IDENTITY_AUDIENCE"); v != "" {
		cfg.Identity.Audience = v
	}
	if v := os.Getenv("TABULA_IDENTITY_SIGNING_KEY"); v != "" {
		cfg.Identity.SigningKey = v
	}
	if v := os.Getenv("TABULA_TABLE_COLUMN_POLICY"); v != "" {
		cfg.Table.ColumnPolicy = v
	}
	if v := os.Getenv("TABULA_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("TABULA_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("TABULA_BULK_IDEMPOTENCY_ADDR"); v != "" {
		cfg.Bulk.Idempotency.Addr = v
	}
	if v := os.Getenv("TABULA_OBSERVABILITY_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
}
