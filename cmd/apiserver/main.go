// Command apiserver runs the MatSource material search API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matsource/matsource/internal/application/search"
	"github.com/matsource/matsource/internal/config"
	domain "github.com/matsource/matsource/internal/domain/material"
	"github.com/matsource/matsource/internal/infrastructure/database/postgres"
	"github.com/matsource/matsource/internal/infrastructure/database/postgres/repositories"
	"github.com/matsource/matsource/internal/infrastructure/database/redis"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
	"github.com/matsource/matsource/internal/infrastructure/monitoring/prometheus"
	"github.com/matsource/matsource/internal/infrastructure/providers"
	"github.com/matsource/matsource/internal/intelligence"
	httpserver "github.com/matsource/matsource/internal/interfaces/http"
	"github.com/matsource/matsource/internal/interfaces/http/handlers"
	"github.com/matsource/matsource/internal/interfaces/http/middleware"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to configuration file (env-only when empty)")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.OutputPaths,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	logger.Info("starting matsource api server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited with error", logging.Err(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

func run(cfg *config.Config, logger logging.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "matsource",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	metrics := prometheus.NewAppMetrics(collector)

	// Material store.
	if cfg.Database.MigrationPath != "" {
		if err := postgres.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationPath); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}
	conn, err := postgres.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer conn.Close()
	repo := repositories.NewMaterialRepository(conn.Pool(), metrics, logger)

	// Provider cache; an empty Redis address runs cacheless.
	cache := redis.NewNopCache()
	checkers := []handlers.HealthChecker{&postgresHealthAdapter{conn: conn}}
	if cfg.Redis.Addr != "" {
		client, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer client.Close()
		var opts []redis.CacheOption
		if cfg.Redis.KeyPrefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.KeyPrefix))
		}
		if cfg.Providers.CacheTTL > 0 {
			opts = append(opts, redis.WithDefaultTTL(cfg.Providers.CacheTTL))
		}
		if cfg.Providers.NegativeCacheTTL > 0 {
			opts = append(opts, redis.WithNullCacheTTL(cfg.Providers.NegativeCacheTTL))
		}
		opts = append(opts, redis.WithMetrics(metrics, "provider"))
		cache = redis.NewRedisCache(client, logger, opts...)
		checkers = append(checkers, &redisHealthAdapter{client: client})
	} else {
		logger.Warn("redis address not configured; provider caching disabled")
	}

	// AI completion service; an empty API key degrades every AI step.
	completer := intelligence.NewCompleter(cfg.Intelligence, logger)
	intel := intelligence.NewService(completer, cfg.Search.MaxExpansionTerms, metrics, logger)

	// External providers.
	pubchem := providers.NewPubChemClient(cfg.Providers, cache, metrics, logger)
	matproject := providers.NewMatProjectClient(cfg.Providers, cache, metrics, logger)
	matweb := providers.NewMatWebClient(cfg.Providers, cache, metrics, logger)

	excluded := domain.NewExcludedTerms(repo.ExcludedTerms, cfg.Search.ExcludedTermTTL, logger)

	searchSvc := search.NewService(repo, intel, pubchem, matproject, matweb,
		excluded, cfg.Search, metrics, logger)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		SearchHandler: handlers.NewSearchHandler(searchSvc, logger),
		HealthHandler: handlers.NewHealthHandler(version, metrics, checkers...),
		Logger:        logger,
		Metrics:       metrics,
		Collector:     collector,
		CORS:          middleware.DefaultCORSConfig(),
		Logging:       middleware.DefaultLoggingConfig(),
	})

	srv := httpserver.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	return srv.Stop(shutdownCtx)
}
