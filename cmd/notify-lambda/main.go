package main

import (
	"context"
	"os"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/scheduled-pros/cmd/mainconfig"
	"github.com/wolfman30/scheduled-pros/internal/app/bootstrap"
	appconfig "github.com/wolfman30/scheduled-pros/internal/config"
	"github.com/wolfman30/scheduled-pros/internal/events"
	"github.com/wolfman30/scheduled-pros/internal/notify"
	"github.com/wolfman30/scheduled-pros/internal/observability/metrics"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

// envelopeHandler is the part of notify.Consumer the worker needs.
type envelopeHandler interface {
	HandleEnvelope(ctx context.Context, env events.Envelope) error
}

func main() {
	ctx := context.Background()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	var dedupe notify.Deduper
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		dedupe = events.NewProcessedStore(pool)
	} else {
		logger.Warn("DATABASE_URL not set; redelivered events may notify twice")
	}

	dispatcher := bootstrap.BuildDispatcher(cfg, &awsCfg, logger)
	bookingMetrics := metrics.NewBookingMetrics(prometheus.NewRegistry())
	consumer := notify.NewConsumer(dispatcher, dedupe, bookingMetrics, logger)

	lambda.Start(func(ctx context.Context, evt lambdaevents.SQSEvent) (lambdaevents.SQSEventResponse, error) {
		return handle(ctx, consumer, logger, evt), nil
	})
}

// handle processes a batch and reports only the failed records, so SQS
// redelivers those and deletes the rest.
func handle(ctx context.Context, consumer envelopeHandler, logger *logging.Logger, evt lambdaevents.SQSEvent) lambdaevents.SQSEventResponse {
	var resp lambdaevents.SQSEventResponse
	for _, record := range evt.Records {
		env, err := events.ParseEnvelope(record.Body)
		if err != nil {
			// Malformed bodies never succeed; let them drop instead of looping.
			logger.Error("notify: discarding malformed message", "error", err, "message_id", record.MessageId)
			continue
		}
		if err := consumer.HandleEnvelope(ctx, env); err != nil {
			logger.Error("notify: delivery failed", "error", err, "message_id", record.MessageId, "event_id", env.EventID)
			resp.BatchItemFailures = append(resp.BatchItemFailures, lambdaevents.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return resp
}
