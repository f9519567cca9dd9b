package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cloo-solutions/buscador/internal/config"
	"github.com/cloo-solutions/buscador/internal/customsearch"
	"github.com/cloo-solutions/buscador/internal/database"
	"github.com/cloo-solutions/buscador/internal/metrics"
	"github.com/cloo-solutions/buscador/internal/repository"
	"github.com/cloo-solutions/buscador/internal/service"
	"github.com/cloo-solutions/buscador/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger builds the process logger and installs it as the global one.
func NewLogger(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	logger := zerolog.New(w).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

type BootstrapOptions struct {
	Logger zerolog.Logger
	// Registry receives the collectors. A fresh registry is used when nil.
	Registry *prometheus.Registry
	// Migrate applies pending migrations when a database is configured.
	Migrate bool
	// SkipStorage leaves the report archive disabled even if S3 is configured.
	SkipStorage bool
}

// App holds the long-lived dependencies shared by the server and the
// command line workflows.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
	Session  *service.Session
	Pool     *pgxpool.Pool
	Archiver *storage.S3Client
}

// Bootstrap connects the optional search log and report archive and builds
// the session. Callers must Close the returned App.
func Bootstrap(ctx context.Context, cfg *config.Config, opts BootstrapOptions) (*App, error) {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	logger := opts.Logger
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(reg),
	}

	searcher := customsearch.NewClient(customsearch.Config{
		BaseURL:     cfg.SearchBaseURL,
		Credentials: cfg.Credentials,
		HTTPClient:  &http.Client{Timeout: cfg.HTTPTimeout},
		Metrics:     app.Metrics,
		Logger:      &logger,
	})

	var searchLog service.SearchLogRepository
	if cfg.HasDatabase() {
		if opts.Migrate {
			if err := database.Migrate(cfg.DatabaseURL); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, Logger: &logger})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		app.Pool = pool
		searchLog = repository.NewSearchLogRepository(pool)
		logger.Info().Msg("search log enabled")
	}

	if cfg.HasS3() && !opts.SkipStorage {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		app.Archiver = s3Client
		logger.Info().Str("bucket", cfg.S3Bucket).Msg("report archive enabled")
	}

	app.Session = service.NewSession(service.SessionConfig{
		Credentials:      cfg.Credentials,
		Searcher:         searcher,
		Workers:          cfg.BatchWorkers,
		RateLimitRPS:     cfg.BatchRateLimitRPS,
		Metrics:          app.Metrics,
		Logger:           &logger,
		SearchLog:        searchLog,
		SearchLogTimeout: cfg.SearchLogTimeout,
	})
	return app, nil
}

func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}
