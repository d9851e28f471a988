package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/scheduled-pros/internal/booking"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

// Gauge receives the number of live sessions.
type Gauge interface {
	SetActiveSessions(n int)
}

type entry struct {
	flow *booking.Flow
	stop chan struct{}
	done chan struct{}
}

// Manager owns the live flows of this process. Each flow is persisted to the
// store after every change, and restored from it on first access after a
// restart.
type Manager struct {
	store  Store
	deps   booking.Dependencies
	ttl    time.Duration
	logger *logging.Logger
	gauge  Gauge
	now    func() time.Time

	mu   sync.Mutex
	live map[string]*entry
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTTL sets the idle expiry.
func WithTTL(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

// WithGauge reports the live session count to g.
func WithGauge(g Gauge) ManagerOption {
	return func(m *Manager) { m.gauge = g }
}

// WithClock overrides the clock used for expiry.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a manager. deps are shared by every flow.
func NewManager(store Store, deps booking.Dependencies, logger *logging.Logger, opts ...ManagerOption) *Manager {
	if store == nil {
		panic("session: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if deps.Logger == nil {
		deps.Logger = logger
	}
	m := &Manager{
		store:  store,
		deps:   deps,
		ttl:    DefaultTTL,
		logger: logger,
		now:    time.Now,
		live:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new flow for clientID.
func (m *Manager) Create(ctx context.Context, clientID string) (*booking.Flow, error) {
	if clientID == "" {
		return nil, errors.New("session: client id required")
	}
	flow := booking.NewFlow(uuid.NewString(), clientID, m.deps)
	if err := m.store.Save(ctx, flow.Snapshot()); err != nil {
		return nil, err
	}
	m.track(flow)
	m.logger.Info("booking session started", "client_id", clientID, "session_id", flow.ID())
	return flow, nil
}

// Get returns the flow for sessionID. A session owned by another tenant is
// reported as not found.
func (m *Manager) Get(ctx context.Context, clientID, sessionID string) (*booking.Flow, error) {
	m.mu.Lock()
	e, ok := m.live[sessionID]
	m.mu.Unlock()
	if ok {
		if e.flow.ClientID() != clientID {
			return nil, ErrSessionNotFound
		}
		return e.flow, nil
	}

	snap, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if snap.ClientID != clientID {
		return nil, ErrSessionNotFound
	}
	flow, err := booking.RestoreFlow(ctx, snap, m.deps)
	if err != nil {
		return nil, fmt.Errorf("session: restore %s: %w", sessionID, err)
	}

	m.mu.Lock()
	if existing, ok := m.live[sessionID]; ok {
		m.mu.Unlock()
		return existing.flow, nil
	}
	m.mu.Unlock()
	m.track(flow)
	m.logger.Info("booking session restored", "client_id", clientID, "session_id", sessionID, "step", snap.Step)
	return flow, nil
}

// Delete drops a session from memory and from the store.
func (m *Manager) Delete(ctx context.Context, clientID, sessionID string) error {
	if _, err := m.Get(ctx, clientID, sessionID); err != nil {
		return err
	}
	m.untrack(sessionID)
	return m.store.Delete(ctx, sessionID)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Sweep evicts flows idle for longer than the TTL. Their snapshots stay in
// the store until its own expiry. Flows with a creation request in flight are
// kept until it settles.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.ttl)
	m.mu.Lock()
	candidates := make(map[string]*booking.Flow, len(m.live))
	for id, e := range m.live {
		candidates[id] = e.flow
	}
	m.mu.Unlock()

	var stale []string
	for id, flow := range candidates {
		if !flow.UpdatedAt().Before(cutoff) {
			continue
		}
		if flow.CreationPending() {
			m.logger.Debug("idle booking session kept while creating", "client_id", flow.ClientID(), "session_id", id)
			continue
		}
		stale = append(stale, id)
	}
	for _, id := range stale {
		m.untrack(id)
	}
	if len(stale) > 0 {
		m.logger.Debug("idle booking sessions evicted", "count", len(stale))
	}
	return len(stale)
}

// Run sweeps periodically until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close stops every persister after a final save.
func (m *Manager) Close() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.live))
	for id := range m.live {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.untrack(id)
	}
}

func (m *Manager) track(flow *booking.Flow) {
	e := &entry{flow: flow, stop: make(chan struct{}), done: make(chan struct{})}
	m.mu.Lock()
	m.live[flow.ID()] = e
	n := len(m.live)
	m.mu.Unlock()
	m.report(n)
	go m.persist(e)
}

func (m *Manager) untrack(id string) {
	m.mu.Lock()
	e, ok := m.live[id]
	delete(m.live, id)
	n := len(m.live)
	m.mu.Unlock()
	if !ok {
		return
	}
	close(e.stop)
	<-e.done
	m.report(n)
}

// persist saves a snapshot after every change signal. Signals coalesce, so a
// burst of edits produces at most one queued save.
func (m *Manager) persist(e *entry) {
	defer close(e.done)
	changes, cancel := e.flow.Watch()
	defer cancel()
	for {
		select {
		case <-e.stop:
			m.save(e.flow)
			return
		case <-changes:
			m.save(e.flow)
		}
	}
}

func (m *Manager) save(flow *booking.Flow) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.Save(ctx, flow.Snapshot()); err != nil {
		m.logger.Error("failed to persist booking session", "client_id", flow.ClientID(), "session_id", flow.ID(), "error", err)
	}
}

func (m *Manager) report(n int) {
	if m.gauge != nil {
		m.gauge.SetActiveSessions(n)
	}
}
