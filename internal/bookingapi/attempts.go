package bookingapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/wolfman30/scheduled-pros/internal/audit"
	"github.com/wolfman30/scheduled-pros/internal/tenancy"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

const (
	defaultAttemptLimit = 50
	maxAttemptLimit     = 500
)

// AttemptQuerier reads the booking attempt log.
type AttemptQuerier interface {
	Query(ctx context.Context, filter audit.Filter) ([]audit.AttemptRecord, error)
}

// AttemptsHandler serves the operator view of creation attempts.
type AttemptsHandler struct {
	attempts AttemptQuerier
	logger   *logging.Logger
}

func NewAttemptsHandler(attempts AttemptQuerier, logger *logging.Logger) *AttemptsHandler {
	if attempts == nil {
		panic("bookingapi: attempt querier required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AttemptsHandler{attempts: attempts, logger: logger}
}

// List handles GET /attempts?session_id=&outcome=&since=&limit=.
func (h *AttemptsHandler) List(w http.ResponseWriter, r *http.Request) {
	clientID, _ := tenancy.ClientIDFromContext(r.Context())
	q := r.URL.Query()
	filter := audit.Filter{
		ClientID:  clientID,
		SessionID: q.Get("session_id"),
		Outcome:   q.Get("outcome"),
		Limit:     defaultAttemptLimit,
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		filter.Since = since
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeMessage(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = min(n, maxAttemptLimit)
	}

	records, err := h.attempts.Query(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query booking attempts", "error", err, "client_id", clientID)
		writeMessage(w, http.StatusInternalServerError, "failed to load attempts")
		return
	}
	if records == nil {
		records = []audit.AttemptRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": records})
}
