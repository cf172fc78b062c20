package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"promo-engine/internal/config"
	"promo-engine/internal/docstore"
	"promo-engine/internal/handler"
	"promo-engine/internal/model"
	"promo-engine/internal/notify"
	"promo-engine/internal/promo"
	"promo-engine/internal/repository"
	"promo-engine/internal/router"
	"promo-engine/internal/service"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().
		Str("backend", cfg.Store.Backend).
		Str("strategy", cfg.Redemption.Strategy).
		Msg("starting promo-engine API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the document store
	store, err := docstore.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open document store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close document store")
		}
	}()

	// Initialize repositories
	defaults := model.CommissionSplit{
		TotalPercent: cfg.Commission.TotalPercent,
		EarlyPercent: cfg.Commission.EarlyPercent,
	}
	catalogRepo := repository.NewCatalogRepository(store, logger)
	ledgerRepo := repository.NewLedgerRepository(store, logger)
	settingsRepo := repository.NewSettingsRepository(store, defaults, logger)

	// Initialize notification delivery
	dispatcher := notify.NewDispatcher(newNotifier(cfg.Notify, logger), cfg.Notify.Workers, cfg.Notify.Timeout, logger)

	// Initialize services
	promoService := service.NewPromoService(
		catalogRepo,
		ledgerRepo,
		settingsRepo,
		promo.NewValidator(logger),
		promo.NewProcessor(logger),
		dispatcher,
		service.Options{
			Strategy:   cfg.Redemption.Strategy,
			MaxRetries: cfg.Redemption.MaxRetries,
		},
		logger,
	)

	// Initialize HTTP handlers and router
	promoHandler := handler.NewPromoHandler(promoService, logger)
	mux := router.New(promoHandler, cfg.Auth.APIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		// Drain notifications queued by the last redemptions
		if err := dispatcher.Close(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("notifications still pending at shutdown")
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

func newNotifier(cfg config.NotifyConfig, logger zerolog.Logger) notify.Notifier {
	if cfg.WebhookURL == "" {
		logger.Info().Msg("no notification webhook configured, notifications are logged only")
		return notify.NewLogNotifier(logger)
	}
	return notify.NewWebhookNotifier(cfg.WebhookURL, &http.Client{Timeout: cfg.Timeout}, logger)
}
