// Package bookingapi exposes the booking workflow over HTTP for the booking
// page. Every route is scoped to the tenant in the request context.
package bookingapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/scheduled-pros/internal/booking"
	"github.com/wolfman30/scheduled-pros/internal/receipts"
	"github.com/wolfman30/scheduled-pros/internal/tenancy"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

// Sessions creates and looks up flows for a tenant.
type Sessions interface {
	Create(ctx context.Context, clientID string) (*booking.Flow, error)
	Get(ctx context.Context, clientID, sessionID string) (*booking.Flow, error)
}

// Config wires a Handler.
type Config struct {
	Sessions Sessions
	Catalog  booking.Catalog
	Receipts receipts.Store
	// Signer is optional; without it share links are disabled.
	Signer *receipts.ShareSigner
	// ShareBaseURL prefixes share tokens, e.g. https://book.example.com/share/.
	ShareBaseURL string
	// WaitTimeout bounds how long a request waits for a fetch or creation.
	WaitTimeout time.Duration
	// Origins gates the watch stream; nil accepts every origin.
	Origins OriginChecker
	Logger  *logging.Logger
}

// OriginChecker decides whether a browser page may open a watch stream.
type OriginChecker interface {
	AllowsRequest(r *http.Request) bool
}

// Handler serves the booking session routes.
type Handler struct {
	sessions     Sessions
	catalog      booking.Catalog
	receipts     receipts.Store
	signer       *receipts.ShareSigner
	shareBaseURL string
	wait         time.Duration
	origins      OriginChecker
	logger       *logging.Logger
}

func NewHandler(cfg Config) *Handler {
	if cfg.Sessions == nil || cfg.Catalog == nil {
		panic("bookingapi: sessions and catalog are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Receipts == nil {
		cfg.Receipts = receipts.NewMemoryStore()
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = booking.DefaultRequestTimeout
	}
	return &Handler{
		sessions:     cfg.Sessions,
		catalog:      cfg.Catalog,
		receipts:     cfg.Receipts,
		signer:       cfg.Signer,
		shareBaseURL: cfg.ShareBaseURL,
		wait:         cfg.WaitTimeout,
		origins:      cfg.Origins,
		logger:       cfg.Logger,
	}
}

// Routes mounts the tenant-scoped routes. The caller places the client id
// in context.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/services", h.ListServices)
	r.Get("/stylists", h.ListStylists)
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Patch("/details", h.UpdateDetails)
		r.Put("/date", h.SelectDate)
		r.Put("/slot", h.SelectSlot)
		r.Post("/continue", h.Continue)
		r.Post("/back", h.Back)
		r.Put("/payment-method", h.SetPaymentMethod)
		r.Post("/submit", h.Submit)
		r.Post("/payment-status", h.RecordPayment)
		r.Get("/confirmation", h.GetConfirmation)
		r.Post("/confirmation/retry", h.Retry)
		r.Get("/confirmation/print", h.PrintConfirmation)
		r.Post("/confirmation/share", h.ShareConfirmation)
		r.Post("/reset", h.Reset)
		r.Get("/watch", h.Watch)
	})
}

func clientID(r *http.Request) string {
	id, _ := tenancy.ClientIDFromContext(r.Context())
	return id
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// await blocks until done closes, the wait budget is spent or the caller
// goes away. The outcome is read from the flow state either way.
func (h *Handler) await(ctx context.Context, done <-chan struct{}) {
	if done == nil {
		return
	}
	timer := time.NewTimer(h.wait)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
	case <-ctx.Done():
	}
}

func wantsWait(r *http.Request) bool {
	v := strings.ToLower(r.URL.Query().Get("wait"))
	return v == "true" || v == "1"
}

func (h *Handler) flow(w http.ResponseWriter, r *http.Request) (*booking.Flow, bool) {
	flow, err := h.sessions.Get(r.Context(), clientID(r), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, h.logger, err)
		return nil, false
	}
	return flow, true
}

func (h *Handler) writeState(w http.ResponseWriter, status int, flow *booking.Flow) {
	writeJSON(w, status, newStateResponse(flow.State(), flow.Notifications()))
}

// ListServices handles GET /services.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.catalog.ListServices(r.Context(), clientID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]serviceResponse, 0, len(services))
	for _, s := range services {
		out = append(out, newServiceResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": out})
}

// ListStylists handles GET /stylists. The any-available option is listed first.
func (h *Handler) ListStylists(w http.ResponseWriter, r *http.Request) {
	stylists, err := h.catalog.ListStylists(r.Context(), clientID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]stylistResponse, 0, len(stylists)+1)
	out = append(out, stylistResponse{ID: booking.AnyStylist, Name: "Any available"})
	for _, s := range stylists {
		out = append(out, stylistResponse{ID: s.ID, Name: s.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"stylists": out})
}

// CreateSession handles POST /sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	flow, err := h.sessions.Create(r.Context(), clientID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": flow.ID(),
		"state":      newStateResponse(flow.State(), nil),
	})
}

// GetSession handles GET /sessions/{sessionID}. Pending notifications are
// delivered once.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	h.writeState(w, http.StatusOK, flow)
}

// UpdateDetails handles PATCH .../details.
func (h *Handler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	var req detailsRequest
	if err := decode(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := flow.ApplyDetails(r.Context(), req.update()); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeState(w, http.StatusOK, flow)
}

// SelectDate handles PUT .../date and waits for that date's slots.
func (h *Handler) SelectDate(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	var req dateRequest
	if err := decode(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := booking.ParseDate(req.Date)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	done, err := flow.SelectDate(r.Context(), date)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.await(r.Context(), done)
	h.writeState(w, http.StatusOK, flow)
}

// SelectSlot handles PUT .../slot. The value is the 24h token.
func (h *Handler) SelectSlot(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	var req slotRequest
	if err := decode(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := flow.SelectSlot(req.TimeSlot); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeState(w, http.StatusOK, flow)
}

// Continue handles POST .../continue.
func (h *Handler) Continue(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	if err := flow.Continue(); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeState(w, http.StatusOK, flow)
}

// Back handles POST .../back.
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	if err := flow.Back(); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeState(w, http.StatusOK, flow)
}

// SetPaymentMethod handles PUT .../payment-method.
func (h *Handler) SetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	var req paymentMethodRequest
	if err := decode(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	method, err := booking.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		writeError(w, h.logger, booking.FieldErrors{booking.FieldPaymentMethod: "Please choose a payment method"})
		return
	}
	if err := flow.SetPaymentMethod(method); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeState(w, http.StatusOK, flow)
}

// Submit handles POST .../submit. With ?wait=true it returns after the
// creation attempt settles.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	done, err := flow.Submit(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if wantsWait(r) {
		h.await(r.Context(), done)
	}
	h.writeState(w, http.StatusAccepted, flow)
}

// RecordPayment handles POST .../payment-status for online payments.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	var req paymentStatusRequest
	if err := decode(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status := booking.PaymentStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	switch status {
	case booking.PaymentPending, booking.PaymentCompleted, booking.PaymentFailed:
	default:
		writeMessage(w, http.StatusBadRequest, "status must be PENDING, COMPLETED or FAILED")
		return
	}
	done, err := flow.RecordPayment(r.Context(), status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if wantsWait(r) {
		h.await(r.Context(), done)
	}
	h.writeState(w, http.StatusOK, flow)
}

// GetConfirmation handles GET .../confirmation. Rendering it triggers
// creation the first time.
func (h *Handler) GetConfirmation(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	done, err := flow.EnterConfirmation(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if wantsWait(r) {
		h.await(r.Context(), done)
	}
	h.writeState(w, http.StatusOK, flow)
}

// Retry handles POST .../confirmation/retry.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	done, err := flow.Retry(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if wantsWait(r) {
		h.await(r.Context(), done)
	}
	h.writeState(w, http.StatusAccepted, flow)
}

// PrintConfirmation handles GET .../confirmation/print.
func (h *Handler) PrintConfirmation(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	view, err := flow.View()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "confirmation-"+view.ConfirmationNumber+".txt"))
	_, _ = w.Write([]byte(receipts.RenderText(view)))
}

// ShareConfirmation handles POST .../confirmation/share.
func (h *Handler) ShareConfirmation(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil {
		writeMessage(w, http.StatusNotImplemented, "sharing is not enabled")
		return
	}
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	view, err := flow.View()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.receipts.Put(r.Context(), flow.ClientID(), view); err != nil {
		writeError(w, h.logger, err)
		return
	}
	token, expires, err := h.signer.Sign(flow.ClientID(), view.ConfirmationNumber)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{URL: h.shareBaseURL + token, Token: token, ExpiresAt: expires})
}

// SharedConfirmation handles GET /v1/share/{token}. It is public and
// read-only; ?format=text returns the printable receipt.
func (h *Handler) SharedConfirmation(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil {
		writeMessage(w, http.StatusNotFound, "confirmation not found")
		return
	}
	claims, err := h.signer.Verify(chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	view, err := h.receipts.Get(r.Context(), claims.ClientID, claims.Subject)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(receipts.RenderText(view)))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Reset handles POST .../reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	flow.Reset()
	h.writeState(w, http.StatusOK, flow)
}
