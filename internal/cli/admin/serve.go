package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/buscador/internal/api/handlers"
	"github.com/cloo-solutions/buscador/internal/cli"
	"github.com/cloo-solutions/buscador/internal/config"
	"github.com/cloo-solutions/buscador/internal/jobs"
	"github.com/cloo-solutions/buscador/internal/server"
	"github.com/cloo-solutions/buscador/internal/telemetry"
	"github.com/cloo-solutions/buscador/internal/web"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const janitorInterval = time.Minute

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long:  "Start the buscador web interface and JSON API on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := cli.NewLogger(os.Stderr, cfg.Debug)

	shutdownTelemetry := telemetry.Init(telemetry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Debug:       cfg.Debug,
	})
	defer shutdownTelemetry()

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")

	app, err := cli.Bootstrap(ctx, cfg, cli.BootstrapOptions{
		Logger:  logger,
		Migrate: !noMigrate,
	})
	if err != nil {
		return err
	}
	defer app.Close()

	trackerCfg := jobs.TrackerConfig{
		Runner:  app.Session,
		TTL:     cfg.JobTTL,
		Metrics: app.Metrics,
		Logger:  &logger,
	}
	if app.Archiver != nil {
		trackerCfg.Archiver = app.Archiver
	}
	tracker := jobs.NewTracker(trackerCfg)

	janitor := jobs.NewJanitor(tracker, janitorInterval, &logger)
	go janitor.Run(ctx)

	pages, err := web.NewPages()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	router := server.NewRouter(server.RouterConfig{
		SearchHandler: handlers.NewSearchHandler(app.Session, pages),
		BatchHandler: handlers.NewBatchHandler(handlers.BatchHandlerConfig{
			Parser:         app.Session,
			Tracker:        tracker,
			Pages:          pages,
			MaxUploadBytes: cfg.MaxUploadBytes,
		}),
		Metrics:        app.Metrics,
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	janitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := tracker.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("batch jobs did not stop in time")
	}

	logger.Info().Msg("server exited")
	return nil
}
