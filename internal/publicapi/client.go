// Package publicapi is the HTTP client for the Scheduled Pros backend that
// owns services, availability and appointment records.
package publicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/scheduled-pros/internal/booking"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

const (
	// MinRequestTimeout and MaxRequestTimeout bound the configurable
	// per-call timeout.
	MinRequestTimeout = 15 * time.Second
	MaxRequestTimeout = 30 * time.Second

	maxErrorBody = 300
)

// ClampTimeout returns d forced into [MinRequestTimeout, MaxRequestTimeout].
// Zero selects booking.DefaultRequestTimeout.
func ClampTimeout(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return booking.DefaultRequestTimeout
	case d < MinRequestTimeout:
		return MinRequestTimeout
	case d > MaxRequestTimeout:
		return MaxRequestTimeout
	default:
		return d
	}
}

// Client calls the tenant-scoped public endpoints. Every method takes the
// tenant id explicitly.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logging.Logger
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-call timeout, clamped to the allowed range.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = ClampTimeout(d) }
}

// NewClient constructs a client for the backend at baseURL.
func NewClient(baseURL string, logger *logging.Logger, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		panic("publicapi: base url required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: booking.DefaultRequestTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
		tracer:     otel.Tracer("scheduledpros.internal.publicapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func clientPath(clientID, suffix string) string {
	return fmt.Sprintf("/api/public/client/%s/%s", url.PathEscape(clientID), suffix)
}

// ListServices returns the tenant's bookable services.
func (c *Client) ListServices(ctx context.Context, clientID string) ([]booking.Service, error) {
	var raw []serviceDTO
	if err := c.doJSON(ctx, clientID, http.MethodGet, clientPath(clientID, "services"), nil, &raw); err != nil {
		return nil, fmt.Errorf("publicapi: list services: %w", err)
	}
	out := make([]booking.Service, 0, len(raw))
	for _, s := range raw {
		if s.ID == "" {
			continue
		}
		out = append(out, s.toDomain())
	}
	return out, nil
}

// ListStylists returns the tenant's professionals.
func (c *Client) ListStylists(ctx context.Context, clientID string) ([]booking.Stylist, error) {
	var raw []stylistDTO
	if err := c.doJSON(ctx, clientID, http.MethodGet, clientPath(clientID, "stylists"), nil, &raw); err != nil {
		return nil, fmt.Errorf("publicapi: list stylists: %w", err)
	}
	out := make([]booking.Stylist, 0, len(raw))
	for _, s := range raw {
		if s.ID == "" {
			continue
		}
		out = append(out, booking.Stylist{ID: string(s.ID), Name: strings.TrimSpace(s.Name)})
	}
	return out, nil
}

// AvailableSlots returns the 24-hour start tokens for date. An empty result
// is a valid answer meaning no availability is configured.
func (c *Client) AvailableSlots(ctx context.Context, clientID string, date booking.Date) ([]string, error) {
	if !date.Valid() {
		return nil, fmt.Errorf("publicapi: available slots: %w", booking.ErrInvalidDate)
	}
	q := url.Values{}
	q.Set("date", date.String())
	path := clientPath(clientID, "available-slots") + "?" + q.Encode()

	var slots []string
	if err := c.doJSON(ctx, clientID, http.MethodGet, path, nil, &slots); err != nil {
		return nil, fmt.Errorf("publicapi: available slots: %w", err)
	}
	if slots == nil {
		slots = []string{}
	}
	return slots, nil
}

// SubmitLead posts a quote request.
func (c *Client) SubmitLead(ctx context.Context, clientID string, req LeadRequest) (LeadResponse, error) {
	var resp LeadResponse
	path := clientPath(clientID, "submit-lead")
	if err := c.doJSON(ctx, clientID, http.MethodPost, path, req, &resp); err != nil {
		return LeadResponse{}, fmt.Errorf("publicapi: submit lead: %w", err)
	}
	if resp.Error != "" {
		return LeadResponse{}, fmt.Errorf("publicapi: submit lead: %w", &APIError{Status: http.StatusOK, Path: path, Message: resp.Error})
	}
	return resp, nil
}

// CreateAppointment posts the merged booking to /api/appointments.
func (c *Client) CreateAppointment(ctx context.Context, clientID string, sub booking.Submission) (booking.Appointment, error) {
	var resp appointmentsResponse
	if err := c.doJSON(ctx, clientID, http.MethodPost, "/api/appointments", newAppointmentsRequest(clientID, sub), &resp); err != nil {
		return booking.Appointment{}, fmt.Errorf("publicapi: create appointment: %w", err)
	}
	if resp.Appointment == nil {
		return booking.Appointment{}, fmt.Errorf("publicapi: create appointment: %w: missing appointment", ErrInvalidResponse)
	}
	appt, err := resp.Appointment.toDomain(sub)
	if err != nil {
		return booking.Appointment{}, fmt.Errorf("publicapi: create appointment: %w", err)
	}
	appt.Confirmations = resp.Confirmations
	return appt, nil
}

// Book posts a public cash booking.
func (c *Client) Book(ctx context.Context, clientID string, sub booking.Submission) (booking.Appointment, error) {
	var resp appointmentDTO
	if err := c.doJSON(ctx, clientID, http.MethodPost, clientPath(clientID, "book"), newBookRequest(sub), &resp); err != nil {
		return booking.Appointment{}, fmt.Errorf("publicapi: book: %w", err)
	}
	appt, err := resp.toDomain(sub)
	if err != nil {
		return booking.Appointment{}, fmt.Errorf("publicapi: book: %w", err)
	}
	return appt, nil
}

func (c *Client) doJSON(ctx context.Context, clientID, method, path string, body, out any) error {
	ctx, span := c.tracer.Start(ctx, "publicapi."+strings.ToLower(method),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("scheduledpros.client_id", clientID),
			attribute.String("http.route", path),
		),
	)
	defer span.End()

	err := c.do(ctx, method, path, body, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Path: path, Message: errorMessage(respBody)}
		c.logger.Warn("public API non-2xx response", "status", resp.StatusCode, "path", path, "message", apiErr.Message)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return fmt.Errorf("%w: empty body", ErrInvalidResponse)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// errorMessage extracts {"error": "..."} or {"message": "..."} from an error
// body, falling back to a truncated raw body.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return msg
}

// IsUnavailable reports whether err is a transport failure or a 5xx, as
// opposed to a request the backend rejected.
func IsUnavailable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return err != nil && !errors.Is(err, ErrInvalidResponse)
}
