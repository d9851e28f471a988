package bookingapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/scheduled-pros/internal/audit"
	"github.com/wolfman30/scheduled-pros/internal/tenancy"
)

type fakeAttempts struct {
	filter  audit.Filter
	records []audit.AttemptRecord
	err     error
}

func (f *fakeAttempts) Query(_ context.Context, filter audit.Filter) ([]audit.AttemptRecord, error) {
	f.filter = filter
	return f.records, f.err
}

func listAttempts(h *AttemptsHandler, query string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/attempts"+query, nil)
	req = req.WithContext(tenancy.WithClientID(req.Context(), "salon-1"))
	rec := httptest.NewRecorder()
	h.List(rec, req)
	return rec
}

func TestAttemptsListAppliesFilter(t *testing.T) {
	fake := &fakeAttempts{records: []audit.AttemptRecord{{ID: "a1", ClientID: "salon-1", Outcome: "created"}}}
	h := NewAttemptsHandler(fake, nil)

	rec := listAttempts(h, "?outcome=failed&limit=1000&since=2025-12-01T00:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "salon-1", fake.filter.ClientID)
	assert.Equal(t, "failed", fake.filter.Outcome)
	assert.Equal(t, maxAttemptLimit, fake.filter.Limit)
	assert.False(t, fake.filter.Since.IsZero())

	var out struct {
		Attempts []audit.AttemptRecord `json:"attempts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Attempts, 1)
}

func TestAttemptsListValidation(t *testing.T) {
	h := NewAttemptsHandler(&fakeAttempts{}, nil)
	assert.Equal(t, http.StatusBadRequest, listAttempts(h, "?limit=-1").Code)
	assert.Equal(t, http.StatusBadRequest, listAttempts(h, "?since=yesterday").Code)

	rec := listAttempts(h, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"attempts":[]}`, rec.Body.String())
}

func TestAttemptsListStoreError(t *testing.T) {
	h := NewAttemptsHandler(&fakeAttempts{err: errors.New("db down")}, nil)
	assert.Equal(t, http.StatusInternalServerError, listAttempts(h, "").Code)
}

type fakeInvalidator struct {
	clientID string
	err      error
}

func (f *fakeInvalidator) Invalidate(_ context.Context, clientID string) error {
	f.clientID = clientID
	return f.err
}

func TestCatalogAdminInvalidate(t *testing.T) {
	fake := &fakeInvalidator{}
	h := NewCatalogAdminHandler(fake, nil)

	req := httptest.NewRequest(http.MethodDelete, "/catalog/cache", nil)
	req = req.WithContext(tenancy.WithClientID(req.Context(), "salon-1"))
	rec := httptest.NewRecorder()
	h.Invalidate(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "salon-1", fake.clientID)

	fake.err = errors.New("redis down")
	rec = httptest.NewRecorder()
	h.Invalidate(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
