// Package config defines all configuration structures for the MatSource
// platform.  No I/O or parsing logic lives here — only plain data types and
// validation.
package config

import (
	"fmt"
	"time"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the material
// store.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// DSN renders the configuration as a PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// RedisConfig holds Redis connection parameters for the provider-result
// cache.  An empty Addr disables caching entirely.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// ProvidersConfig holds endpoints and credentials for the external data
// providers.  Base URLs are configurable so tests can point adapters at
// httptest servers.
type ProvidersConfig struct {
	PubChemBaseURL    string        `mapstructure:"pubchem_base_url"`
	MatProjectBaseURL string        `mapstructure:"matproject_base_url"`
	MatProjectAPIKey  string        `mapstructure:"matproject_api_key"`
	MatWebBaseURL     string        `mapstructure:"matweb_base_url"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	NegativeCacheTTL  time.Duration `mapstructure:"negative_cache_ttl"`
}

// IntelligenceConfig holds AI completion service parameters.  An empty
// APIKey disables every AI step; search still works with degraded richness.
type IntelligenceConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// SearchConfig holds tunables of the retrieval pipeline.
type SearchConfig struct {
	MaxResults        int           `mapstructure:"max_results"`
	MaxExpansionTerms int           `mapstructure:"max_expansion_terms"`
	MaxLocalTerms     int           `mapstructure:"max_local_terms"`
	ExcludedTermTTL   time.Duration `mapstructure:"excluded_term_ttl"`
	DeriveConcurrency int           `mapstructure:"derive_concurrency"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// Config is the root configuration structure.  Every infrastructure
// component and the search service read their settings from the relevant
// sub-struct.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Providers    ProvidersConfig    `mapstructure:"providers"`
	Intelligence IntelligenceConfig `mapstructure:"intelligence"`
	Search       SearchConfig       `mapstructure:"search"`
	Log          LogConfig          `mapstructure:"log"`
}

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
	}

	if c.Search.MaxResults < 1 {
		return fmt.Errorf("config: search.max_results must be >= 1, got %d", c.Search.MaxResults)
	}
	if c.Search.MaxExpansionTerms < 0 {
		return fmt.Errorf("config: search.max_expansion_terms must be >= 0, got %d", c.Search.MaxExpansionTerms)
	}
	if c.Search.MaxLocalTerms < 1 {
		return fmt.Errorf("config: search.max_local_terms must be >= 1, got %d", c.Search.MaxLocalTerms)
	}
	if c.Search.ExcludedTermTTL <= 0 {
		return fmt.Errorf("config: search.excluded_term_ttl must be positive, got %s", c.Search.ExcludedTermTTL)
	}

	if c.Providers.RequestTimeout <= 0 {
		return fmt.Errorf("config: providers.request_timeout must be positive, got %s", c.Providers.RequestTimeout)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
