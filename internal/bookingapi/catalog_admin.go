package bookingapi

import (
	"context"
	"net/http"

	"github.com/wolfman30/scheduled-pros/internal/tenancy"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

// CatalogInvalidator drops a tenant's cached service and stylist lists.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context, clientID string) error
}

// CatalogAdminHandler lets salon staff publish catalog edits immediately
// instead of waiting for the cache TTL.
type CatalogAdminHandler struct {
	cache  CatalogInvalidator
	logger *logging.Logger
}

func NewCatalogAdminHandler(cache CatalogInvalidator, logger *logging.Logger) *CatalogAdminHandler {
	if cache == nil {
		panic("bookingapi: catalog invalidator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CatalogAdminHandler{cache: cache, logger: logger}
}

// Invalidate handles DELETE /catalog/cache.
func (h *CatalogAdminHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	clientID, _ := tenancy.ClientIDFromContext(r.Context())
	if err := h.cache.Invalidate(r.Context(), clientID); err != nil {
		h.logger.Error("catalog cache invalidation failed", "error", err, "client_id", clientID)
		writeMessage(w, http.StatusInternalServerError, "could not clear catalog cache")
		return
	}
	h.logger.Info("catalog cache invalidated", "client_id", clientID)
	w.WriteHeader(http.StatusNoContent)
}
