package config

import "time"

// ApplyDefaults fills every zero-valued field of cfg with its platform
// default.  Explicitly configured values are never overwritten.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// External fan-out plus AI derivation can be slow; the write
		// timeout bounds the whole request.
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 16
	}
	if cfg.Database.MinConns == 0 {
		cfg.Database.MinConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "migrations"
	}

	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 8
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = 3 * time.Second
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "matsource:"
	}

	if cfg.Providers.PubChemBaseURL == "" {
		cfg.Providers.PubChemBaseURL = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"
	}
	if cfg.Providers.MatProjectBaseURL == "" {
		cfg.Providers.MatProjectBaseURL = "https://api.materialsproject.org"
	}
	if cfg.Providers.MatWebBaseURL == "" {
		cfg.Providers.MatWebBaseURL = "https://www.matweb.com"
	}
	if cfg.Providers.RequestTimeout == 0 {
		cfg.Providers.RequestTimeout = 10 * time.Second
	}
	if cfg.Providers.CacheTTL == 0 {
		cfg.Providers.CacheTTL = 24 * time.Hour
	}
	if cfg.Providers.NegativeCacheTTL == 0 {
		cfg.Providers.NegativeCacheTTL = 15 * time.Minute
	}

	if cfg.Intelligence.Model == "" {
		cfg.Intelligence.Model = "gpt-4o-mini"
	}
	if cfg.Intelligence.MaxTokens == 0 {
		cfg.Intelligence.MaxTokens = 1024
	}
	if cfg.Intelligence.Temperature == 0 {
		cfg.Intelligence.Temperature = 0.3
	}
	if cfg.Intelligence.Timeout == 0 {
		cfg.Intelligence.Timeout = 30 * time.Second
	}

	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 20
	}
	if cfg.Search.MaxExpansionTerms == 0 {
		cfg.Search.MaxExpansionTerms = 15
	}
	if cfg.Search.MaxLocalTerms == 0 {
		cfg.Search.MaxLocalTerms = 10
	}
	if cfg.Search.ExcludedTermTTL == 0 {
		cfg.Search.ExcludedTermTTL = 5 * time.Minute
	}
	if cfg.Search.DeriveConcurrency == 0 {
		cfg.Search.DeriveConcurrency = 4
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stdout"}
	}
}

// NewDefaultConfig returns a Config populated entirely from defaults, with
// placeholder database identity suitable for local development.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Database.Host = "localhost"
	cfg.Database.User = "matsource"
	cfg.Database.DBName = "matsource"
	ApplyDefaults(cfg)
	return cfg
}
