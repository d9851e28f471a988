// Package session keeps live booking flows and persists their snapshots so
// a restarted process can resume drafts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wolfman30/scheduled-pros/internal/booking"
)

// ErrSessionNotFound is returned for unknown, expired or foreign sessions.
var ErrSessionNotFound = errors.New("session: not found")

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 2 * time.Hour

// Store persists flow snapshots.
type Store interface {
	Save(ctx context.Context, snap booking.FlowSnapshot) error
	Load(ctx context.Context, sessionID string) (booking.FlowSnapshot, error)
	Delete(ctx context.Context, sessionID string) error
}

func encodeSnapshot(snap booking.FlowSnapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("session: encode snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (booking.FlowSnapshot, error) {
	var snap booking.FlowSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return booking.FlowSnapshot{}, fmt.Errorf("session: decode snapshot: %w", err)
	}
	return snap, nil
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore keeps snapshots in process. Used for development and tests.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{items: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, snap booking.FlowSnapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[snap.ID] = memoryEntry{data: data, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (booking.FlowSnapshot, error) {
	s.mu.Lock()
	entry, ok := s.items[sessionID]
	if ok && s.now().After(entry.expiresAt) {
		delete(s.items, sessionID)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return booking.FlowSnapshot{}, ErrSessionNotFound
	}
	return decodeSnapshot(entry.data)
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, sessionID)
	return nil
}
