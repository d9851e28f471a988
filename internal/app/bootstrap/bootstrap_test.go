package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"

	appconfig "github.com/wolfman30/scheduled-pros/internal/config"
	"github.com/wolfman30/scheduled-pros/internal/notify"
	"github.com/wolfman30/scheduled-pros/internal/publicapi"
	"github.com/wolfman30/scheduled-pros/internal/receipts"
	"github.com/wolfman30/scheduled-pros/internal/session"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client without address")
	}
}

func TestBuildRedisClientVerifies(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true)
	if client == nil {
		t.Fatalf("expected client for live redis")
	}
	defer client.Close()

	mr.Close()
	if client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client when ping fails")
	}
}

func TestBuildSessionStoreBackends(t *testing.T) {
	logger := logging.New("error")

	store, err := BuildSessionStore(&appconfig.Config{SessionTTL: time.Hour}, nil, nil, logger)
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	if _, ok := store.(*session.MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}

	if _, err := BuildSessionStore(&appconfig.Config{SessionBackend: appconfig.SessionBackendRedis}, nil, nil, logger); err == nil {
		t.Fatalf("expected error for redis backend without client")
	}

	mr := miniredis.RunT(t)
	rdb := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger, false)
	defer rdb.Close()
	store, err = BuildSessionStore(&appconfig.Config{SessionBackend: appconfig.SessionBackendRedis, SessionTTL: time.Hour}, rdb, nil, logger)
	if err != nil {
		t.Fatalf("redis backend: %v", err)
	}
	if _, ok := store.(*session.RedisStore); !ok {
		t.Fatalf("expected redis store, got %T", store)
	}

	awsCfg := aws.Config{Region: "us-east-1"}
	store, err = BuildSessionStore(&appconfig.Config{SessionBackend: appconfig.SessionBackendDynamoDB, SessionTable: "sessions"}, nil, &awsCfg, logger)
	if err != nil {
		t.Fatalf("dynamodb backend: %v", err)
	}
	if _, ok := store.(*session.DynamoStore); !ok {
		t.Fatalf("expected dynamo store, got %T", store)
	}

	if _, err := BuildSessionStore(&appconfig.Config{SessionBackend: "etcd"}, nil, nil, logger); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestBuildReceiptStoreFallsBackToMemory(t *testing.T) {
	if _, ok := BuildReceiptStore(&appconfig.Config{}, nil, nil).(*receipts.MemoryStore); !ok {
		t.Fatalf("expected memory receipts without bucket")
	}
	awsCfg := aws.Config{Region: "us-east-1"}
	if _, ok := BuildReceiptStore(&appconfig.Config{ReceiptsBucket: "receipts"}, &awsCfg, logging.New("error")).(*receipts.S3Store); !ok {
		t.Fatalf("expected S3 receipts with bucket")
	}
}

func TestBuildShareSigner(t *testing.T) {
	if BuildShareSigner(&appconfig.Config{}, nil) != nil {
		t.Fatalf("expected nil signer without secret")
	}
	if BuildShareSigner(&appconfig.Config{ShareTokenSecret: "s3cret"}, nil) == nil {
		t.Fatalf("expected signer with secret")
	}
}

func TestBuildBackendSelectsCreatorAndCache(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{PublicAPIBaseURL: "http://localhost:3000", BookingCreateEndpoint: publicapi.EndpointAppointments}

	backend, err := BuildBackend(cfg, nil, logger)
	if err != nil {
		t.Fatalf("build backend: %v", err)
	}
	if _, ok := backend.Creator.(publicapi.AppointmentsCreator); !ok {
		t.Fatalf("expected appointments creator, got %T", backend.Creator)
	}
	if _, ok := backend.Catalog.(*publicapi.Client); !ok {
		t.Fatalf("expected uncached catalog without redis, got %T", backend.Catalog)
	}

	mr := miniredis.RunT(t)
	rdb := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger, false)
	defer rdb.Close()
	backend, err = BuildBackend(cfg, rdb, logger)
	if err != nil {
		t.Fatalf("build backend: %v", err)
	}
	if _, ok := backend.Catalog.(*publicapi.CatalogCache); !ok {
		t.Fatalf("expected cached catalog, got %T", backend.Catalog)
	}
	if backend.Cache == nil {
		t.Fatal("expected cache handle for invalidation")
	}

	cfg.BookingCreateEndpoint = "fax"
	if _, err := BuildBackend(cfg, nil, logger); err == nil {
		t.Fatalf("expected error for unknown create endpoint")
	}
}

func TestBuildSendersFallBackToStubs(t *testing.T) {
	logger := logging.New("error")

	email, provider := BuildEmailSender(&appconfig.Config{}, nil, logger)
	if provider != "stub" {
		t.Fatalf("expected stub email provider, got %s", provider)
	}
	if _, ok := email.(*notify.StubEmailSender); !ok {
		t.Fatalf("expected stub email sender, got %T", email)
	}

	email, provider = BuildEmailSender(&appconfig.Config{SendGridAPIKey: "SG.test", SendGridFromEmail: "hi@example.com"}, nil, logger)
	if provider != "sendgrid" {
		t.Fatalf("expected sendgrid provider, got %s", provider)
	}
	if _, ok := email.(*notify.SendGridSender); !ok {
		t.Fatalf("expected sendgrid sender, got %T", email)
	}

	awsCfg := aws.Config{Region: "us-east-1"}
	_, provider = BuildEmailSender(&appconfig.Config{SESFromEmail: "hi@example.com"}, &awsCfg, logger)
	if provider != "ses" {
		t.Fatalf("expected ses provider, got %s", provider)
	}

	_, provider = BuildSMSSender(&appconfig.Config{}, logger)
	if provider != "stub" {
		t.Fatalf("expected stub sms provider, got %s", provider)
	}
	_, provider = BuildSMSSender(&appconfig.Config{TwilioAccountSID: "AC1", TwilioAuthToken: "tok", TwilioFromNumber: "+15550000000"}, logger)
	if provider != "twilio" {
		t.Fatalf("expected twilio provider, got %s", provider)
	}

	if BuildDispatcher(&appconfig.Config{}, nil, logger) == nil {
		t.Fatalf("expected dispatcher")
	}
}
