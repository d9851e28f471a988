package main

import (
	"context"
	"database/sql"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/scheduled-pros/internal/api/router"
	"github.com/wolfman30/scheduled-pros/internal/app/bootstrap"
	appconfig "github.com/wolfman30/scheduled-pros/internal/config"
	"github.com/wolfman30/scheduled-pros/internal/events"
	"github.com/wolfman30/scheduled-pros/internal/notify"
	"github.com/wolfman30/scheduled-pros/internal/observability/metrics"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

func setupMetrics(reg *prometheus.Registry) (http.Handler, *metrics.BookingMetrics) {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bookingMetrics := metrics.NewBookingMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), bookingMetrics
}

// connectPostgresPool returns nil when no database is configured or it is
// unreachable; the outbox is then disabled.
func connectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres not reachable; booking events disabled", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// openAuditDB opens the database/sql handle used by the attempt log.
func openAuditDB(databaseURL string, logger *logging.Logger) *sql.DB {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		logger.Error("failed to open audit database", "error", err)
		return nil
	}
	return db
}

// buildDeliveryHandler publishes to SQS when a queue is configured. Without
// one, confirmations are sent in-process.
func buildDeliveryHandler(cfg *appconfig.Config, awsCfg *aws.Config, pool *pgxpool.Pool, observer notify.ConfirmationObserver, logger *logging.Logger) events.DeliveryHandler {
	if cfg.BookingEventsQueueURL != "" && awsCfg != nil {
		logger.Info("booking events published to SQS", "queue_url", cfg.BookingEventsQueueURL)
		return events.NewSQSPublisher(sqs.NewFromConfig(*awsCfg), cfg.BookingEventsQueueURL)
	}
	var dedupe notify.Deduper
	if pool != nil {
		dedupe = events.NewProcessedStore(pool)
	}
	logger.Info("booking events delivered in-process")
	return notify.NewConsumer(bootstrap.BuildDispatcher(cfg, awsCfg, logger), dedupe, observer, logger)
}

func healthChecks(rdb *redis.Client, pool *pgxpool.Pool, db *sql.DB) map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	if db != nil {
		checks["audit_db"] = db.PingContext
	}
	return checks
}
