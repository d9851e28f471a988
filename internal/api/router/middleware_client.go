package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/scheduled-pros/internal/tenancy"
)

// requireClientID places the {clientID} path segment in context. Booking
// routes never fall back to a default tenant.
func requireClientID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := strings.TrimSpace(chi.URLParam(r, "clientID"))
		if clientID == "" {
			http.Error(w, "missing client id", http.StatusBadRequest)
			return
		}
		ctx := tenancy.WithClientID(r.Context(), clientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIDFromRequest exposes the client id for local handlers.
func clientIDFromRequest(r *http.Request) (string, bool) {
	return tenancy.ClientIDFromContext(r.Context())
}
