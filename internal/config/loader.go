package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for all platform settings.
const envPrefix = "MATSOURCE"

// newViper builds a pre-configured Viper instance: YAML file type,
// MATSOURCE_ env prefix, automatic env binding, and a key replacer mapping
// "." to "_" so that "database.host" resolves to "MATSOURCE_DATABASE_HOST".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Viper only consults the environment for keys it already knows about,
	// so every key must be registered for env-only loading to work.
	for _, key := range configKeys {
		v.SetDefault(key, nil)
	}
	return v
}

// configKeys lists every settable configuration key.  Keep in sync with the
// mapstructure tags in config.go.
var configKeys = []string{
	"server.port", "server.read_timeout", "server.write_timeout",
	"server.idle_timeout", "server.shutdown_timeout",
	"database.host", "database.port", "database.user", "database.password",
	"database.db_name", "database.ssl_mode", "database.max_conns",
	"database.min_conns", "database.conn_max_lifetime", "database.migration_path",
	"redis.addr", "redis.password", "redis.db", "redis.pool_size",
	"redis.dial_timeout", "redis.read_timeout", "redis.write_timeout",
	"redis.key_prefix",
	"providers.pubchem_base_url", "providers.matproject_base_url",
	"providers.matproject_api_key", "providers.matweb_base_url",
	"providers.request_timeout", "providers.cache_ttl",
	"providers.negative_cache_ttl",
	"intelligence.api_key", "intelligence.base_url", "intelligence.model",
	"intelligence.max_tokens", "intelligence.temperature", "intelligence.timeout",
	"search.max_results", "search.max_expansion_terms", "search.max_local_terms",
	"search.excluded_term_ttl", "search.derive_concurrency",
	"log.level", "log.format", "log.output_paths",
}

// Load reads the YAML file at configPath, merges MATSOURCE_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from MATSOURCE_* environment
// variables with no config file, the preferred strategy for containerised
// deployments.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// MustLoad wraps Load and panics on any error.  Intended for main() where a
// config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
