package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"po-pipeline/internal/catalog"
	"po-pipeline/internal/config"
	"po-pipeline/internal/database"
	"po-pipeline/internal/handler"
	"po-pipeline/internal/repository"
	"po-pipeline/internal/router"
	"po-pipeline/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"run", "start"},
		Short:   "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().
		Str("transition_policy", string(cfg.Pipeline.TransitionPolicy)).
		Msg("starting purchase order API server")

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialise database: %w", err)
	}
	defer pool.Close()

	validator, err := newCatalogValidator(ctx, cfg.Catalog, cfg.S3, logger)
	if err != nil {
		return fmt.Errorf("failed to initialise catalogue validator: %w", err)
	}
	if validator != nil {
		defer validator.Close()
	}

	repo := repository.NewPurchaseOrderRepository(pool, logger)
	svc := service.NewPurchaseOrderService(repo, cfg.Pipeline.TransitionPolicy, validator, logger)
	poHandler := handler.NewPurchaseOrderHandler(svc, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := router.New(router.Options{
		PurchaseOrders: poHandler,
		APIKey:         cfg.Auth.APIKey,
		Logger:         logger,
		Registry:       registry,
	})

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info().Msg("context cancelled, starting graceful shutdown")

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server gracefully")
		if closeErr := server.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close server")
		}
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info().Msg("server shutdown completed")
	return nil
}

// newCatalogValidator returns nil when the catalogue is disabled. S3 is tried
// first when enabled and local files are the fallback.
func newCatalogValidator(ctx context.Context, cfg config.CatalogConfig, s3cfg config.S3Config, logger zerolog.Logger) (catalog.Validator, error) {
	if !cfg.Enabled {
		logger.Info().Msg("catalogue validation disabled")
		return nil, nil
	}

	fileLoader := catalog.NewFileLoader(logger)

	var s3Loader catalog.Loader
	if s3cfg.Enabled {
		l, err := catalog.NewS3Loader(ctx, s3cfg.Bucket, s3cfg.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			s3Loader = l
		}
	} else {
		logger.Info().Msg("using local file system for catalogue files (S3 disabled)")
	}

	loader := catalog.NewFallbackLoader(s3Loader, fileLoader, s3cfg.Prefix, s3cfg.Enabled, logger)

	return catalog.NewValidator(ctx, &catalog.ValidatorConfig{
		FilePaths:     cfg.FilePaths,
		MinMatchCount: cfg.MinMatchCount,
	}, loader, logger)
}
