package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

// SlotFetcher returns the 24-hour start tokens available on date.
type SlotFetcher interface {
	AvailableSlots(ctx context.Context, clientID string, date Date) ([]string, error)
}

// SlotState is the lifecycle of the slot set for the selected date.
type SlotState string

const (
	SlotIdle    SlotState = "idle"
	SlotLoading SlotState = "loading"
	SlotReady   SlotState = "ready"
	SlotEmpty   SlotState = "empty"
	SlotError   SlotState = "error"
)

// Copy shown for the two non-ready terminal states. They must stay distinct.
const (
	MessageNoAvailability  = "No availability configured for this date."
	MessageSlotFetchFailed = "Unable to load available times. Please try again."
)

// DefaultRequestTimeout bounds every collaborator call made by the workflow.
const DefaultRequestTimeout = 20 * time.Second

// SlotSnapshot is a point-in-time copy of the resolver state.
type SlotSnapshot struct {
	Date    Date
	State   SlotState
	Slots   []TimeOfDay
	Message string
}

// Set returns the selectable slots, empty unless the state is ready.
func (s SlotSnapshot) Set() SlotSet {
	if s.State != SlotReady {
		return SlotSet{Date: s.Date}
	}
	return SlotSet{Date: s.Date, Slots: s.Slots}
}

// SlotResolver fetches slots for the selected date. Only the result for the
// most recent selection is ever applied; late results for superseded dates
// are dropped.
type SlotResolver struct {
	clientID string
	fetcher  SlotFetcher
	timeout  time.Duration
	observer Observer
	logger   *logging.Logger
	onChange func()

	mu         sync.Mutex
	generation uint64
	current    SlotSnapshot
}

// SlotResolverOption configures a SlotResolver.
type SlotResolverOption func(*SlotResolver)

// WithSlotTimeout overrides the per-fetch timeout.
func WithSlotTimeout(d time.Duration) SlotResolverOption {
	return func(r *SlotResolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithSlotObserver reports fetch outcomes to o.
func WithSlotObserver(o Observer) SlotResolverOption {
	return func(r *SlotResolver) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithSlotLogger sets the resolver logger.
func WithSlotLogger(l *logging.Logger) SlotResolverOption {
	return func(r *SlotResolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithSlotChangeHook calls fn after every applied state change.
func WithSlotChangeHook(fn func()) SlotResolverOption {
	return func(r *SlotResolver) { r.onChange = fn }
}

// NewSlotResolver creates a resolver bound to one tenant.
func NewSlotResolver(clientID string, fetcher SlotFetcher, opts ...SlotResolverOption) *SlotResolver {
	if fetcher == nil {
		panic("booking: slot fetcher required")
	}
	r := &SlotResolver{
		clientID: clientID,
		fetcher:  fetcher,
		timeout:  DefaultRequestTimeout,
		observer: nopObserver{},
		logger:   logging.Default(),
		current:  SlotSnapshot{State: SlotIdle},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Select starts a fetch for date and supersedes any fetch still in flight.
// The returned channel is closed once this selection has settled, whether
// its result was applied or discarded.
func (r *SlotResolver) Select(ctx context.Context, date Date) <-chan struct{} {
	done := make(chan struct{})
	if date.IsZero() {
		r.Clear()
		close(done)
		return done
	}

	r.mu.Lock()
	r.generation++
	gen := r.generation
	r.current = SlotSnapshot{Date: date, State: SlotLoading}
	r.mu.Unlock()
	r.changed()

	// The fetch outlives the caller's request; only supersession cancels it.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	go func() {
		defer close(done)
		defer cancel()

		tokens, err := r.fetcher.AvailableSlots(fetchCtx, r.clientID, date)
		next, outcome := r.settle(date, tokens, err)

		r.mu.Lock()
		if gen != r.generation {
			r.mu.Unlock()
			r.observer.ObserveSlotFetch(SlotOutcomeDiscarded)
			r.logger.Debug("stale slot fetch discarded", "client_id", r.clientID, "date", date.String())
			return
		}
		r.current = next
		r.mu.Unlock()

		r.observer.ObserveSlotFetch(outcome)
		if err != nil {
			r.logger.Warn("slot fetch failed", "client_id", r.clientID, "date", date.String(), "error", err)
		}
		r.changed()
	}()
	return done
}

func (r *SlotResolver) settle(date Date, tokens []string, err error) (SlotSnapshot, string) {
	if err != nil {
		return SlotSnapshot{Date: date, State: SlotError, Message: MessageSlotFetchFailed}, SlotOutcomeError
	}
	if len(tokens) == 0 {
		return SlotSnapshot{Date: date, State: SlotEmpty, Message: MessageNoAvailability}, SlotOutcomeEmpty
	}

	seen := make(map[TimeOfDay]struct{}, len(tokens))
	slots := make([]TimeOfDay, 0, len(tokens))
	for _, tok := range tokens {
		t, perr := ParseTimeOfDay(tok, Format24h)
		if perr != nil {
			r.logger.Warn("ignoring unrecognized slot token", "client_id", r.clientID, "token", tok)
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		slots = append(slots, t)
	}
	if len(slots) == 0 {
		return SlotSnapshot{Date: date, State: SlotError, Message: MessageSlotFetchFailed}, SlotOutcomeError
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return SlotSnapshot{Date: date, State: SlotReady, Slots: slots}, SlotOutcomeReady
}

// Current returns a copy of the applied state.
func (r *SlotResolver) Current() SlotSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.current
	snap.Slots = append([]TimeOfDay(nil), r.current.Slots...)
	return snap
}

// Clear returns the resolver to idle and drops any in-flight result.
func (r *SlotResolver) Clear() {
	r.mu.Lock()
	r.generation++
	r.current = SlotSnapshot{State: SlotIdle}
	r.mu.Unlock()
	r.changed()
}

// Restore installs a previously captured snapshot without fetching.
func (r *SlotResolver) Restore(snap SlotSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	if snap.State == "" {
		snap.State = SlotIdle
	}
	snap.Slots = append([]TimeOfDay(nil), snap.Slots...)
	r.current = snap
}

func (r *SlotResolver) changed() {
	if r.onChange != nil {
		r.onChange()
	}
}
