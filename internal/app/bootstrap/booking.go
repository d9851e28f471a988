package bootstrap

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/scheduled-pros/internal/booking"
	appconfig "github.com/wolfman30/scheduled-pros/internal/config"
	"github.com/wolfman30/scheduled-pros/internal/publicapi"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

// Backend groups the collaborators backed by the public booking API.
type Backend struct {
	Client  *publicapi.Client
	Catalog booking.Catalog
	Creator booking.AppointmentCreator
	// Cache is nil when Redis is not configured.
	Cache *publicapi.CatalogCache
}

// BuildBackend wires the public API client, the cached catalog and the
// appointment creator selected by BOOKING_CREATE_ENDPOINT.
func BuildBackend(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) (Backend, error) {
	if cfg == nil {
		return Backend{}, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	client := publicapi.NewClient(cfg.PublicAPIBaseURL, logger,
		publicapi.WithTimeout(cfg.BookingRequestTimeout),
	)
	creator, err := publicapi.NewCreator(client, cfg.BookingCreateEndpoint)
	if err != nil {
		return Backend{}, fmt.Errorf("bootstrap: %w", err)
	}

	backend := Backend{Client: client, Catalog: client, Creator: creator}
	if redisClient != nil {
		backend.Cache = publicapi.NewCatalogCache(client, redisClient, cfg.CatalogCacheTTL, logger)
		backend.Catalog = backend.Cache
		logger.Info("catalog cache enabled", "ttl", cfg.CatalogCacheTTL)
	}
	return backend, nil
}
