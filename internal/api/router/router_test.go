package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/scheduled-pros/internal/audit"
	"github.com/wolfman30/scheduled-pros/internal/booking"
	"github.com/wolfman30/scheduled-pros/internal/bookingapi"
	httpmiddleware "github.com/wolfman30/scheduled-pros/internal/http/middleware"
	"github.com/wolfman30/scheduled-pros/internal/leads"
	"github.com/wolfman30/scheduled-pros/internal/publicapi"
	"github.com/wolfman30/scheduled-pros/internal/session"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

const operatorSecret = "operator-secret"

type stubCatalog struct{}

func (stubCatalog) ListServices(_ context.Context, clientID string) ([]booking.Service, error) {
	return []booking.Service{{ID: "svc-" + clientID, Name: "Cut", Price: decimal.NewFromInt(40), DurationMinutes: 30}}, nil
}

func (stubCatalog) ListStylists(context.Context, string) ([]booking.Stylist, error) {
	return nil, nil
}

type stubSlots struct{}

func (stubSlots) AvailableSlots(context.Context, string, booking.Date) ([]string, error) {
	return []string{"10:00"}, nil
}

type stubCreator struct{}

func (stubCreator) CreateAppointment(context.Context, string, booking.Submission) (booking.Appointment, error) {
	return booking.Appointment{}, errors.New("not used")
}

type stubLeads struct{ clientID string }

func (s *stubLeads) SubmitLead(_ context.Context, clientID string, _ publicapi.LeadRequest) (publicapi.LeadResponse, error) {
	s.clientID = clientID
	return publicapi.LeadResponse{Message: "Thanks"}, nil
}

type stubInvalidator struct{ cleared []string }

func (s *stubInvalidator) Invalidate(_ context.Context, clientID string) error {
	s.cleared = append(s.cleared, clientID)
	return nil
}

type stubAttempts struct{}

func (stubAttempts) Query(_ context.Context, f audit.Filter) ([]audit.AttemptRecord, error) {
	return []audit.AttemptRecord{{ID: "a1", ClientID: f.ClientID, Outcome: "created"}}, nil
}

var testInvalidator = &stubInvalidator{}

func newTestRouter(t *testing.T, checks map[string]HealthCheck) (http.Handler, *stubLeads) {
	t.Helper()

	logger := logging.Default()
	deps := booking.Dependencies{Catalog: stubCatalog{}, Slots: stubSlots{}, Creator: stubCreator{}}
	manager := session.NewManager(session.NewMemoryStore(time.Hour), deps, logger)
	t.Cleanup(manager.Close)

	quotes := &stubLeads{}
	cfg := &Config{
		Logger: logger,
		BookingHandler: bookingapi.NewHandler(bookingapi.Config{
			Sessions: manager,
			Catalog:  stubCatalog{},
			Logger:   logger,
		}),
		QuotesHandler:     leads.NewHandler(quotes, logger),
		AttemptsHandler:   bookingapi.NewAttemptsHandler(stubAttempts{}, logger),
		CatalogAdmin:      bookingapi.NewCatalogAdminHandler(testInvalidator, logger),
		RateLimiter:       httpmiddleware.NewRateLimiter(100, 100),
		OperatorJWTSecret: operatorSecret,
		HealthChecks:      checks,
	}
	return New(cfg), quotes
}

func TestRouterHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterHealthReportsFailingDependency(t *testing.T) {
	router, _ := newTestRouter(t, map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["redis"] != "connection refused" {
		t.Errorf("expected redis failure in body, got %v", resp)
	}
}

func TestRouterServicesAreTenantScoped(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/clients/salon-9/services", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Services []struct {
			ID string `json:"id"`
		} `json:"services"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Services) != 1 || resp.Services[0].ID != "svc-salon-9" {
		t.Fatalf("expected tenant catalog, got %+v", resp.Services)
	}
}

func TestRouterSessionLifecycle(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/clients/salon-1/sessions", nil))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	var created struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/clients/salon-1/sessions/"+created.SessionID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/clients/salon-2/sessions/"+created.SessionID, nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 across tenants, got %d", rr.Code)
	}
}

func TestRouterQuotesEndpoint(t *testing.T) {
	router, quotes := newTestRouter(t, nil)

	payload := leads.QuoteRequest{
		Name:            "Router Test",
		Email:           "router@example.com",
		Phone:           "+12223334444",
		ServiceInterest: "Balayage",
		ContactMethod:   "email",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/clients/salon-1/quotes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
	if quotes.clientID != "salon-1" {
		t.Fatalf("expected lead for salon-1, got %q", quotes.clientID)
	}
}

func TestRouterAttemptsRequireOperatorToken(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/clients/salon-1/attempts", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, httpmiddleware.OperatorClaims{
		ClientID: "salon-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(operatorSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/clients/salon-1/attempts", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/clients/salon-2/attempts", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another tenant, got %d", rr.Code)
	}
}

func TestRouterCatalogCacheBustRequiresOperator(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	testInvalidator.cleared = nil

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/v1/clients/salon-1/catalog/cache", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, httpmiddleware.OperatorClaims{
		ClientID: "*",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(operatorSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodDelete, "/v1/clients/salon-1/catalog/cache", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(testInvalidator.cleared) != 1 || testInvalidator.cleared[0] != "salon-1" {
		t.Fatalf("expected salon-1 cache cleared, got %v", testInvalidator.cleared)
	}
}

func TestRequireClientIDPassesThrough(t *testing.T) {
	r := chi.NewRouter()
	r.With(requireClientID).Get("/v1/clients/{clientID}/ping", func(w http.ResponseWriter, r *http.Request) {
		clientID, ok := clientIDFromRequest(r)
		if !ok || clientID != "salon-abc" {
			t.Fatalf("expected client id propagated, got %s / %v", clientID, ok)
		}
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/clients/salon-abc/ping", nil))

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected downstream status, got %d", rr.Code)
	}
}

func TestRequireClientIDRejectsBlank(t *testing.T) {
	r := chi.NewRouter()
	r.With(requireClientID).Get("/v1/clients/{clientID}/ping", func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run")
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/clients/%20/ping", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank client, got %d", rr.Code)
	}
}
