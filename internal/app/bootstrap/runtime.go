// Package bootstrap builds the runtime collaborators shared by the binaries
// from configuration.
package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/scheduled-pros/internal/config"
	"github.com/wolfman30/scheduled-pros/internal/receipts"
	"github.com/wolfman30/scheduled-pros/internal/session"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildSessionStore selects the snapshot store named by SESSION_BACKEND.
// The redis backend needs a live client; dynamodb needs AWS config.
func BuildSessionStore(cfg *appconfig.Config, redisClient *redis.Client, awsCfg *aws.Config, logger *logging.Logger) (session.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.SessionBackend {
	case "", appconfig.SessionBackendMemory:
		logger.Info("booking sessions kept in memory", "ttl", cfg.SessionTTL)
		return session.NewMemoryStore(cfg.SessionTTL), nil
	case appconfig.SessionBackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("bootstrap: session backend redis requires REDIS_ADDR")
		}
		logger.Info("booking sessions stored in redis", "ttl", cfg.SessionTTL)
		return session.NewRedisStore(redisClient, cfg.SessionTTL), nil
	case appconfig.SessionBackendDynamoDB:
		if awsCfg == nil {
			return nil, fmt.Errorf("bootstrap: session backend dynamodb requires AWS config")
		}
		logger.Info("booking sessions stored in dynamodb", "table", cfg.SessionTable, "ttl", cfg.SessionTTL)
		return session.NewDynamoStore(dynamodb.NewFromConfig(*awsCfg), cfg.SessionTable, cfg.SessionTTL), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown session backend %q", cfg.SessionBackend)
	}
}

// BuildReceiptStore uses S3 when a bucket is configured and memory otherwise.
func BuildReceiptStore(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) receipts.Store {
	if cfg == nil || strings.TrimSpace(cfg.ReceiptsBucket) == "" || awsCfg == nil {
		return receipts.NewMemoryStore()
	}
	return receipts.NewS3Store(s3.NewFromConfig(*awsCfg), cfg.ReceiptsBucket, logger)
}

// BuildShareSigner returns nil when share links are not configured.
func BuildShareSigner(cfg *appconfig.Config, logger *logging.Logger) *receipts.ShareSigner {
	if cfg == nil || cfg.ShareTokenSecret == "" {
		return nil
	}
	signer, err := receipts.NewShareSigner(cfg.ShareTokenSecret, cfg.ShareTokenTTL)
	if err != nil {
		if logger != nil {
			logger.Warn("share links disabled", "error", err)
		}
		return nil
	}
	return signer
}
