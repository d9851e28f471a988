package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	// Zone data for containers without /usr/share/zoneinfo.
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Booking backend
	PublicAPIBaseURL      string
	BookingRequestTimeout time.Duration
	BookingCreateEndpoint string
	CatalogCacheTTL       time.Duration
	// BookingTimezone is the IANA zone used to decide which dates are past.
	BookingTimezone string

	// Sessions
	SessionBackend string
	SessionTTL     time.Duration
	SessionTable   string
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool

	DatabaseURL        string
	OutboxPollInterval time.Duration
	OutboxMaxAttempts  int

	AWSRegion             string
	AWSAccessKeyID        string
	AWSSecretAccessKey    string
	AWSEndpointOverride   string
	BookingEventsQueueURL string
	ReceiptsBucket        string

	// Share links
	ShareTokenSecret string
	ShareTokenTTL    time.Duration
	PublicBaseURL    string

	// SendGrid Email Configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	OperatorJWTSecret  string
}

// Session backends.
const (
	SessionBackendMemory   = "memory"
	SessionBackendRedis    = "redis"
	SessionBackendDynamoDB = "dynamodb"
)

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	requestTimeout := min(max(getEnvAsDuration("BOOKING_REQUEST_TIMEOUT", 20*time.Second), 15*time.Second), 30*time.Second)

	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		PublicAPIBaseURL:      strings.TrimRight(getEnv("PUBLIC_API_BASE_URL", "http://localhost:3000"), "/"),
		BookingRequestTimeout: requestTimeout,
		BookingCreateEndpoint: strings.ToLower(strings.TrimSpace(getEnv("BOOKING_CREATE_ENDPOINT", "public"))),
		CatalogCacheTTL:       getEnvAsDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		BookingTimezone:       getEnv("BOOKING_TIMEZONE", "UTC"),

		SessionBackend: strings.ToLower(strings.TrimSpace(getEnv("SESSION_BACKEND", SessionBackendMemory))),
		SessionTTL:     max(getEnvAsDuration("SESSION_TTL", 2*time.Hour), requestTimeout),
		SessionTable:   getEnv("SESSION_TABLE", "booking_sessions"),
		RedisAddr:      getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),

		DatabaseURL:        getEnv("DATABASE_URL", ""),
		OutboxPollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxMaxAttempts:  getEnvAsInt("OUTBOX_MAX_ATTEMPTS", 10),

		AWSRegion:             getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:        getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride:   getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		BookingEventsQueueURL: getEnv("BOOKING_EVENTS_QUEUE_URL", ""),
		ReceiptsBucket:        getEnv("RECEIPTS_BUCKET", ""),

		ShareTokenSecret: getEnv("SHARE_TOKEN_SECRET", ""),
		ShareTokenTTL:    getEnvAsDuration("SHARE_TOKEN_TTL", 7*24*time.Hour),
		PublicBaseURL:    strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Scheduled Pros"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
		OperatorJWTSecret:  getEnv("OPERATOR_JWT_SECRET", ""),
	}
}

// BookingLocation resolves BookingTimezone.
func (c *Config) BookingLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(c.BookingTimezone))
	if err != nil {
		return nil, fmt.Errorf("config: BOOKING_TIMEZONE %q: %w", c.BookingTimezone, err)
	}
	return loc, nil
}

// ShareBaseURL is the prefix share tokens are appended to.
func (c *Config) ShareBaseURL() string {
	if c.PublicBaseURL == "" {
		return "/v1/share/"
	}
	return c.PublicBaseURL + "/v1/share/"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
