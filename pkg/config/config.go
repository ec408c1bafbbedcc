package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for rowgate.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, signing keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Auth configuration
	Auth AuthConfig `yaml:"auth"`

	// Engine metadata database (users, grants, filter definitions, audit log)
	Database DatabaseConfig `yaml:"database"`

	// Browsable datasources, keyed by the database name clients reference
	Sources []SourceConfig `yaml:"sources"`

	// Datasource connection pool settings
	Pool PoolConfig `yaml:"pool"`

	// Export row ceilings and batching
	Export ExportConfig `yaml:"export"`

	// Dashboard metrics cache
	Cache CacheConfig `yaml:"cache"`

	// Browse page size. Fixed at 50 in the product UI, configurable for tests.
	PageSize int `yaml:"page_size" env:"PAGE_SIZE" env-default:"50"`

	// MigrationsPath is the directory containing SQL migration files.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
}

// AuthConfig holds session-token verification settings.
type AuthConfig struct {
	// SigningKey verifies bearer tokens issued by the session service.
	// Secret - environment only.
	SigningKey string `yaml:"-" env:"AUTH_SIGNING_KEY"`

	// EnableVerification controls whether bearer tokens are validated.
	// Set to false only for local development.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`
}

// DatabaseConfig holds the engine's own PostgreSQL configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"rowgate"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"rowgate"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// SourceConfig describes one browsable datasource. Passwords are looked
// up from the environment variable named by PasswordEnv so that YAML
// files stay secret-free.
type SourceConfig struct {
	Name        string `yaml:"name"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Database    string `yaml:"database"`
	SSLMode     string `yaml:"ssl_mode"`
	PasswordEnv string `yaml:"password_env"`
}

// ConnectionString returns a PostgreSQL connection string for the source,
// resolving the password from the configured environment variable.
func (s *SourceConfig) ConnectionString() string {
	sslMode := s.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		s.Host, s.Port, s.User, os.Getenv(s.PasswordEnv), s.Database, sslMode,
	)
}

// PoolConfig holds per-datasource connection pool settings.
// Exports hold one pooled connection for their full duration, so the pool
// cap and export concurrency must be sized together.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" env:"SOURCE_POOL_MAX_CONNS" env-default:"5"`
	MinConns int32 `yaml:"min_conns" env:"SOURCE_POOL_MIN_CONNS" env-default:"0"`
}

// ExportConfig holds export row ceilings. These are deployment policy,
// not invariants: the standard ceiling applies to non-elevated roles, the
// elevated ceiling is the absolute cap, and the warn threshold drives the
// pre-flight confirmation prompt.
type ExportConfig struct {
	MaxRowsStandard int `yaml:"max_rows_standard" env:"EXPORT_MAX_ROWS_STANDARD" env-default:"10000"`
	MaxRowsElevated int `yaml:"max_rows_elevated" env:"EXPORT_MAX_ROWS_ELEVATED" env-default:"50000"`
	WarnThreshold   int `yaml:"warn_threshold" env:"EXPORT_WARN_THRESHOLD" env-default:"2000"`
	BatchSize       int `yaml:"batch_size" env:"EXPORT_BATCH_SIZE" env-default:"1000"`
}

// MaxRowsForRole returns the export ceiling for the given role.
func (c *ExportConfig) MaxRowsForRole(elevated bool) int {
	if elevated {
		return c.MaxRowsElevated
	}
	return c.MaxRowsStandard
}

// CacheConfig holds dashboard metrics cache settings.
type CacheConfig struct {
	Capacity   int           `yaml:"capacity" env:"CACHE_CAPACITY" env-default:"100"`
	CurrentTTL time.Duration `yaml:"current_ttl" env:"CACHE_CURRENT_TTL" env-default:"1h"`
	ClosedTTL  time.Duration `yaml:"closed_ttl" env:"CACHE_CLOSED_TTL" env-default:"168h"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads configuration from an explicit path (for tests).
func LoadFromFile(path, version string) (*Config, error) {
	cfg := &Config{Version: version}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.EnableVerification && c.Auth.SigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY must be set when auth verification is enabled")
	}
	if c.Export.MaxRowsStandard > c.Export.MaxRowsElevated {
		return fmt.Errorf("export max_rows_standard (%d) cannot exceed max_rows_elevated (%d)",
			c.Export.MaxRowsStandard, c.Export.MaxRowsElevated)
	}
	if c.Export.BatchSize <= 0 {
		return fmt.Errorf("export batch_size must be positive")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive")
	}
	names := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("every source needs a name")
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate source name %q", s.Name)
		}
		names[s.Name] = true
	}
	return nil
}

// Source returns the datasource configuration for the given name.
func (c *Config) Source(name string) (*SourceConfig, bool) {
	for i := range c.Sources {
		if c.Sources[i].Name == name {
			return &c.Sources[i], true
		}
	}
	return nil, false
}
