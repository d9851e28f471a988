package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/scheduled-pros/internal/booking"
	"github.com/wolfman30/scheduled-pros/internal/publicapi"
	"github.com/wolfman30/scheduled-pros/internal/tenancy"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

// LeadSubmitter forwards a lead to the booking backend.
type LeadSubmitter interface {
	SubmitLead(ctx context.Context, clientID string, req publicapi.LeadRequest) (publicapi.LeadResponse, error)
}

const defaultAck = "Thanks! We'll be in touch with your quote soon."

// Handler handles HTTP requests for quotes.
type Handler struct {
	submitter LeadSubmitter
	logger    *logging.Logger
}

// NewHandler creates a new quotes handler.
func NewHandler(submitter LeadSubmitter, logger *logging.Logger) *Handler {
	if submitter == nil {
		panic("leads: submitter required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{submitter: submitter, logger: logger}
}

// QuoteResponse is returned on success.
type QuoteResponse struct {
	Message string `json:"message"`
}

// Submit validates a quote and forwards it. It returns the backend's
// acknowledgement, FieldErrors, or the collaborator error.
func (h *Handler) Submit(ctx context.Context, clientID string, req QuoteRequest) (QuoteResponse, error) {
	if clientID == "" {
		return QuoteResponse{}, ErrMissingClientID
	}
	req = req.Normalize()
	if errs := req.Validate(); errs != nil {
		return QuoteResponse{}, errs
	}
	resp, err := h.submitter.SubmitLead(ctx, clientID, req.toLead())
	if err != nil {
		h.logger.Error("failed to submit lead", "error", err, "client_id", clientID)
		return QuoteResponse{}, err
	}
	msg := resp.Message
	if msg == "" {
		msg = defaultAck
	}
	h.logger.Info("lead submitted", "client_id", clientID, "contact_method", req.ContactMethod)
	return QuoteResponse{Message: msg}, nil
}

// CreateQuote handles POST /v1/clients/{clientID}/quotes.
func (h *Handler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode quote request", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	clientID, _ := tenancy.ClientIDFromContext(r.Context())
	resp, err := h.Submit(r.Context(), clientID, req)

	var fieldErrs booking.FieldErrors
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, resp)
	case errors.Is(err, ErrMissingClientID):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing client context"})
	case errors.As(err, &fieldErrs):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": fieldErrs})
	case publicapi.IsUnavailable(err):
		w.Header().Set("Retry-After", "30")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Quote requests are temporarily unavailable. Please try again shortly."})
	default:
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "We couldn't send your quote request. Please try again."})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
