package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/rezaarrazi-sqe/langfuse/internal/adapter/blob"
	"github.com/rezaarrazi-sqe/langfuse/internal/adapter/experiment"
	"github.com/rezaarrazi-sqe/langfuse/internal/config"
	"github.com/rezaarrazi-sqe/langfuse/internal/logger"
	"github.com/rezaarrazi-sqe/langfuse/internal/repository"
	"github.com/rezaarrazi-sqe/langfuse/internal/service"
	handler "github.com/rezaarrazi-sqe/langfuse/internal/transport/http"
	"github.com/rezaarrazi-sqe/langfuse/policy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("langfuse stopped with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx := context.Background()

	log.Info().
		Int("http_port", cfg.Server.HTTPPort).
		Int("internal_port", cfg.Server.InternalPort).
		Bool("primary_observations", cfg.Observations.PrimaryEnabled).
		Msg("starting langfuse")

	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled() {
		app, err := newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
		)
		if err != nil {
			return fmt.Errorf("init newrelic: %w", err)
		}
		defer app.Shutdown(cfg.Server.ShutdownTimeout)
		nrApp = app
	}

	endpoints, err := config.LoadCatalog(cfg.RemoteExperiment.CatalogPath)
	if err != nil {
		return err
	}

	db, err := repository.NewSQLiteStore(cfg.Database.SQLiteDSN)
	if err != nil {
		return fmt.Errorf("init sqlite store: %w", err)
	}
	defer db.Close()

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		return fmt.Errorf("init policy engine: %w", err)
	}

	deps := service.Deps{
		Store:     db,
		Trigger:   experiment.NewClient(cfg.RemoteExperiment.Timeout),
		Policy:    policyEngine,
		Config:    cfg,
		Endpoints: endpoints,
		Logger:    log,
	}

	// Interface fields stay nil unless the backend is configured.
	if cfg.Database.PostgresURL != "" {
		events, err := repository.NewPostgresEventStore(ctx, cfg.Database.PostgresURL, repository.PostgresOptions{
			Logger:   log,
			NewRelic: nrApp != nil,
		})
		if err != nil {
			return fmt.Errorf("init postgres event store: %w", err)
		}
		defer events.Close()
		deps.Events = events
	}

	uploader, err := blob.NewS3Uploader(cfg.Storage.S3)
	if err != nil {
		return fmt.Errorf("init s3 uploader: %w", err)
	}
	if uploader != nil {
		if err := uploader.EnsureBucket(ctx); err != nil {
			log.Warn().Err(err).Str("bucket", uploader.Bucket()).Msg("ensure export bucket failed; uploads may fail")
		}
		deps.Uploader = uploader
	}

	svc := service.New(deps)

	externalServer := handler.NewExternalServer(svc, log, nrApp)
	internalServer := handler.NewInternalServer(log)

	errCh := make(chan error, 2)
	start := func(name string, e *echo.Echo, port int) {
		addr := fmt.Sprintf(":%d", port)
		log.Info().Str("server", name).Str("addr", addr).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s server: %w", name, err)
		}
	}
	go start("external", externalServer, cfg.Server.HTTPPort)
	go start("internal", internalServer, cfg.Server.InternalPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := externalServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown external server gracefully")
	}
	if err := internalServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown internal server gracefully")
	}

	log.Info().Msg("langfuse stopped")
	return runErr
}
