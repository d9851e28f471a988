package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/scheduled-pros/cmd/mainconfig"
	"github.com/wolfman30/scheduled-pros/internal/api/router"
	"github.com/wolfman30/scheduled-pros/internal/app/bootstrap"
	"github.com/wolfman30/scheduled-pros/internal/audit"
	"github.com/wolfman30/scheduled-pros/internal/booking"
	"github.com/wolfman30/scheduled-pros/internal/bookingapi"
	appconfig "github.com/wolfman30/scheduled-pros/internal/config"
	"github.com/wolfman30/scheduled-pros/internal/events"
	httpmiddleware "github.com/wolfman30/scheduled-pros/internal/http/middleware"
	"github.com/wolfman30/scheduled-pros/internal/leads"
	"github.com/wolfman30/scheduled-pros/internal/session"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting scheduled-pros booking API",
		"env", cfg.Env,
		"port", cfg.Port,
		"session_backend", cfg.SessionBackend,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	backend, err := bootstrap.BuildBackend(cfg, redisClient, logger)
	if err != nil {
		logger.Error("failed to build booking backend", "error", err)
		os.Exit(1)
	}

	metricsHandler, bookingMetrics := setupMetrics(prometheus.NewRegistry())

	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		defer pool.Close()
	}
	auditDB := openAuditDB(cfg.DatabaseURL, logger)
	if auditDB != nil {
		defer auditDB.Close()
	}

	receiptStore := bootstrap.BuildReceiptStore(cfg, &awsCfg, logger)
	sinkOpts := []events.SinkOption{events.WithReceipts(receiptStore)}
	var attemptLog *audit.AttemptLog
	if auditDB != nil {
		attemptLog = audit.NewAttemptLog(auditDB)
		sinkOpts = append(sinkOpts, events.WithAttemptRecorder(attemptLog))
	}
	if pool != nil {
		outbox := events.NewOutboxStore(pool)
		sinkOpts = append(sinkOpts, events.WithOutbox(outbox))

		handler := buildDeliveryHandler(cfg, &awsCfg, pool, bookingMetrics, logger)
		deliverer := events.NewDeliverer(outbox, handler, logger).
			WithInterval(cfg.OutboxPollInterval).
			WithMaxAttempts(cfg.OutboxMaxAttempts)
		go deliverer.Start(ctx)
	}
	sink := events.NewSink(logger, sinkOpts...)

	salonZone, err := cfg.BookingLocation()
	if err != nil {
		logger.Error("invalid booking timezone", "error", err)
		os.Exit(1)
	}

	store, err := bootstrap.BuildSessionStore(cfg, redisClient, &awsCfg, logger)
	if err != nil {
		logger.Error("failed to build session store", "error", err)
		os.Exit(1)
	}
	sessions := session.NewManager(store, booking.Dependencies{
		Catalog:  backend.Catalog,
		Slots:    backend.Client,
		Creator:  backend.Creator,
		Events:   sink,
		Observer: bookingMetrics,
		Logger:   logger,
		Timeout:  cfg.BookingRequestTimeout,
		Location: salonZone,
	}, logger,
		session.WithTTL(cfg.SessionTTL),
		session.WithGauge(bookingMetrics),
	)
	go sessions.Run(ctx, time.Minute)

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Run(ctx, 5*time.Minute)

	// Initialize handlers
	bookingHandler := bookingapi.NewHandler(bookingapi.Config{
		Sessions:     sessions,
		Catalog:      backend.Catalog,
		Receipts:     receiptStore,
		Signer:       bootstrap.BuildShareSigner(cfg, logger),
		ShareBaseURL: cfg.ShareBaseURL(),
		WaitTimeout:  cfg.BookingRequestTimeout,
		Origins:      httpmiddleware.NewOriginPolicy(cfg.CORSAllowedOrigins),
		Logger:       logger,
	})
	var attemptsHandler *bookingapi.AttemptsHandler
	if attemptLog != nil {
		attemptsHandler = bookingapi.NewAttemptsHandler(attemptLog, logger)
	}

	var catalogAdmin *bookingapi.CatalogAdminHandler
	if backend.Cache != nil {
		catalogAdmin = bookingapi.NewCatalogAdminHandler(backend.Cache, logger)
	}

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		BookingHandler:     bookingHandler,
		QuotesHandler:      leads.NewHandler(backend.Client, logger),
		AttemptsHandler:    attemptsHandler,
		CatalogAdmin:       catalogAdmin,
		MetricsHandler:     metricsHandler,
		RateLimiter:        limiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		OperatorJWTSecret:  cfg.OperatorJWTSecret,
		HealthChecks:       healthChecks(redisClient, pool, auditDB),
	})

	// Create HTTP server. WriteTimeout stays unset because watch streams are
	// long-lived; slow readers are bounded by ReadHeaderTimeout.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	sessions.Close()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
