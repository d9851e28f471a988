package booking

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var errBackendDown = errors.New("backend down")

type stubCatalog struct {
	services []Service
	stylists []Stylist
	err      error
}

func (c *stubCatalog) ListServices(context.Context, string) ([]Service, error) {
	return c.services, c.err
}

func (c *stubCatalog) ListStylists(context.Context, string) ([]Stylist, error) {
	return c.stylists, c.err
}

func testCatalog() *stubCatalog {
	return &stubCatalog{
		services: []Service{
			{ID: "svc-cut", Name: "Haircut", Price: decimal.RequireFromString("45"), DurationMinutes: 30},
			{ID: "svc-color", Name: "Color", Price: decimal.RequireFromString("120.5"), DurationMinutes: 90},
		},
		stylists: []Stylist{{ID: "sty-1", Name: "Jordan"}},
	}
}

// gatedFetcher returns one pending call per request; tests release each
// call with a result of their choosing.
type gatedFetcher struct {
	mu    sync.Mutex
	calls map[Date][]chan fetchResult
	seen  chan Date
}

type fetchResult struct {
	tokens []string
	err    error
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{calls: map[Date][]chan fetchResult{}, seen: make(chan Date, 16)}
}

func (g *gatedFetcher) AvailableSlots(ctx context.Context, _ string, date Date) ([]string, error) {
	ch := make(chan fetchResult, 1)
	g.mu.Lock()
	g.calls[date] = append(g.calls[date], ch)
	g.mu.Unlock()
	g.seen <- date
	select {
	case res := <-ch:
		return res.tokens, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedFetcher) release(t *testing.T, date Date, tokens []string, err error) {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	pending := g.calls[date]
	if len(pending) == 0 {
		t.Fatalf("no pending fetch for %s", date)
	}
	pending[0] <- fetchResult{tokens: tokens, err: err}
	g.calls[date] = pending[1:]
}

func (g *gatedFetcher) waitCall(t *testing.T) Date {
	t.Helper()
	select {
	case d := <-g.seen:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("fetch was not issued")
		return Date{}
	}
}

// staticFetcher answers immediately.
type staticFetcher struct {
	tokens map[Date][]string
	err    error
	calls  atomic.Int32
}

func (s *staticFetcher) AvailableSlots(_ context.Context, _ string, date Date) ([]string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.tokens[date], nil
}

// recordingCreator records every request and answers from a script. When
// gate is set each call blocks until a value is sent on it.
type recordingCreator struct {
	mu      sync.Mutex
	subs    []Submission
	clients []string
	results []error
	gate    chan struct{}
	started chan struct{}
}

func (c *recordingCreator) CreateAppointment(ctx context.Context, clientID string, sub Submission) (Appointment, error) {
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.clients = append(c.clients, clientID)
	n := len(c.subs)
	var err error
	if n <= len(c.results) {
		err = c.results[n-1]
	}
	gate, started := c.gate, c.started
	c.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return Appointment{}, ctx.Err()
		}
	}
	if err != nil {
		return Appointment{}, err
	}
	date, _ := ParseDate(sub.Date)
	return Appointment{
		ID:            "APT-1001",
		ServiceID:     sub.ServiceID,
		StylistID:     sub.StylistID,
		CustomerName:  sub.ClientName,
		CustomerEmail: sub.ClientEmail,
		CustomerPhone: sub.ClientPhone,
		Date:          date,
		Start:         Tag(sub.StartTime),
		Notes:         sub.SpecialRequests,
		PaymentMethod: sub.PaymentMethod,
	}, nil
}

func (c *recordingCreator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

type recordingSink struct {
	mu       sync.Mutex
	attempts []Attempt
	created  []Created
}

func (s *recordingSink) BookingAttempted(_ context.Context, a Attempt) {
	s.mu.Lock()
	s.attempts = append(s.attempts, a)
	s.mu.Unlock()
}

func (s *recordingSink) BookingCreated(_ context.Context, c Created) {
	s.mu.Lock()
	s.created = append(s.created, c)
	s.mu.Unlock()
}

func (s *recordingSink) createdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

type countingObserver struct {
	mu      sync.Mutex
	slots   map[string]int
	submits map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{slots: map[string]int{}, submits: map[string]int{}}
}

func (o *countingObserver) ObserveSlotFetch(outcome string) {
	o.mu.Lock()
	o.slots[outcome]++
	o.mu.Unlock()
}

func (o *countingObserver) ObserveSubmission(outcome string, _ float64) {
	o.mu.Lock()
	o.submits[outcome]++
	o.mu.Unlock()
}

func (o *countingObserver) slotCount(outcome string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.slots[outcome]
}

func (o *countingObserver) submitCount(outcome string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.submits[outcome]
}

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func waitDone(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

// fixedNow pins "today" to 2025-12-20 in UTC.
func fixedNow() time.Time {
	return time.Date(2025, time.December, 20, 15, 0, 0, 0, time.UTC)
}
