package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidTransition is returned when an event is not allowed in the
// current confirmation state.
var ErrInvalidTransition = errors.New("booking: invalid confirmation transition")

// ConfirmationState is the state of the confirmation screen.
type ConfirmationState string

const (
	// StateAwaitingPayment holds ONLINE bookings until the processor
	// reports the payment as completed.
	StateAwaitingPayment ConfirmationState = "awaiting-payment"
	StatePendingCreation ConfirmationState = "pending-creation"
	StateCreating        ConfirmationState = "creating"
	StateCreated         ConfirmationState = "created"
	StateFailed          ConfirmationState = "failed"
)

// ConfirmationEvent drives Transition.
type ConfirmationEvent string

const (
	EventPaymentCompleted ConfirmationEvent = "payment-completed"
	EventTrigger          ConfirmationEvent = "trigger"
	EventRetry            ConfirmationEvent = "retry"
	EventSucceeded        ConfirmationEvent = "succeeded"
	EventFailed           ConfirmationEvent = "failed"
)

var confirmationTransitions = map[ConfirmationState]map[ConfirmationEvent]ConfirmationState{
	StateAwaitingPayment: {EventPaymentCompleted: StatePendingCreation},
	StatePendingCreation: {EventTrigger: StateCreating},
	StateCreating:        {EventSucceeded: StateCreated, EventFailed: StateFailed},
	StateFailed:          {EventRetry: StateCreating},
}

// Transition is the single transition function of the confirmation state
// machine. created is terminal; failed is recoverable through retry.
func Transition(from ConfirmationState, ev ConfirmationEvent) (ConfirmationState, error) {
	if next, ok := confirmationTransitions[from][ev]; ok {
		return next, nil
	}
	return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, from)
}

// Terminal reports whether no further transition is possible.
func (s ConfirmationState) Terminal() bool {
	return s == StateCreated
}

// InitialConfirmationState picks the entry state: creation may start right
// away for cash bookings and for online bookings whose payment completed.
func InitialConfirmationState(method PaymentMethod, status PaymentStatus) ConfirmationState {
	if method == PaymentCash || status == PaymentCompleted {
		return StatePendingCreation
	}
	return StateAwaitingPayment
}

const (
	messageCreationFailed      = "We couldn't create your appointment. Please try again."
	messageCreationInterrupted = "Your booking request was interrupted. Please try again."
)

// ConfirmationSnapshot is a serializable copy of a Confirmation.
type ConfirmationSnapshot struct {
	State         ConfirmationState `json:"state"`
	Submission    Submission        `json:"submission"`
	PaymentStatus PaymentStatus     `json:"payment_status,omitempty"`
	Appointment   *Appointment      `json:"appointment,omitempty"`
	LastError     string            `json:"last_error,omitempty"`
	Attempts      int               `json:"attempts"`
}

// SettledFunc is called after every creation attempt settles.
type SettledFunc func(ctx context.Context, appt Appointment, err error)

// Confirmation owns appointment creation for one frozen submission.
type Confirmation struct {
	clientID   string
	submission Submission
	submitter  *Submitter
	onSettled  SettledFunc
	onChange   func()

	mu            sync.Mutex
	state         ConfirmationState
	paymentStatus PaymentStatus
	appointment   *Appointment
	lastError     string
	attempts      int
	abandoned     bool
	settled       chan struct{}
}

// ConfirmationOption configures a Confirmation.
type ConfirmationOption func(*Confirmation)

// OnSettled registers fn to run after each attempt.
func OnSettled(fn SettledFunc) ConfirmationOption {
	return func(c *Confirmation) { c.onSettled = fn }
}

// OnConfirmationChange registers fn to run after each state change.
func OnConfirmationChange(fn func()) ConfirmationOption {
	return func(c *Confirmation) { c.onChange = fn }
}

// NewConfirmation creates the confirmation for a frozen submission.
func NewConfirmation(clientID string, sub Submission, status PaymentStatus, submitter *Submitter, opts ...ConfirmationOption) *Confirmation {
	if submitter == nil {
		panic("booking: submitter required")
	}
	if status == "" && sub.PaymentMethod == PaymentOnline {
		status = PaymentPending
	}
	c := &Confirmation{
		clientID:      clientID,
		submission:    sub,
		submitter:     submitter,
		state:         InitialConfirmationState(sub.PaymentMethod, status),
		paymentStatus: status,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RestoreConfirmation rebuilds a Confirmation from a snapshot. An attempt
// that was in flight when the snapshot was taken cannot be resumed and is
// restored as failed so the user can retry.
func RestoreConfirmation(clientID string, snap ConfirmationSnapshot, submitter *Submitter, opts ...ConfirmationOption) *Confirmation {
	c := NewConfirmation(clientID, snap.Submission, snap.PaymentStatus, submitter, opts...)
	c.attempts = snap.Attempts
	c.lastError = snap.LastError
	if snap.Appointment != nil {
		appt := *snap.Appointment
		c.appointment = &appt
	}
	switch snap.State {
	case StateCreating:
		c.state = StateFailed
		c.lastError = messageCreationInterrupted
	case "":
	default:
		c.state = snap.State
	}
	return c
}

// Enter is called every time the confirmation is shown. The first call in
// pending-creation starts creation; every other call is a no-op. The returned
// channel closes when the current attempt settles, or is already closed when
// nothing is in flight.
func (c *Confirmation) Enter(ctx context.Context) <-chan struct{} {
	c.mu.Lock()
	if c.abandoned || c.state != StatePendingCreation || c.appointment != nil {
		ch := c.waitLocked()
		c.mu.Unlock()
		return ch
	}
	done, err := c.startLocked(ctx, EventTrigger)
	c.mu.Unlock()
	if err != nil {
		return closedChan()
	}
	c.changed()
	return done
}

// Retry re-attempts creation from the failed state.
func (c *Confirmation) Retry(ctx context.Context) (<-chan struct{}, error) {
	c.mu.Lock()
	if c.abandoned {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: confirmation abandoned", ErrInvalidTransition)
	}
	done, err := c.startLocked(ctx, EventRetry)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	c.changed()
	return done, nil
}

// RecordPayment stores the processor-reported status. COMPLETED releases an
// online booking into pending-creation.
func (c *Confirmation) RecordPayment(status PaymentStatus) error {
	c.mu.Lock()
	if c.abandoned {
		c.mu.Unlock()
		return fmt.Errorf("%w: confirmation abandoned", ErrInvalidTransition)
	}
	c.paymentStatus = status
	if status == PaymentCompleted && c.state == StateAwaitingPayment {
		c.state, _ = Transition(c.state, EventPaymentCompleted)
	}
	c.mu.Unlock()
	c.changed()
	return nil
}

// Abandon detaches the confirmation; late results are dropped.
func (c *Confirmation) Abandon() {
	c.mu.Lock()
	c.abandoned = true
	c.mu.Unlock()
}

// State returns the current state.
func (c *Confirmation) State() ConfirmationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the confirmation.
func (c *Confirmation) Snapshot() ConfirmationSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := ConfirmationSnapshot{
		State:         c.state,
		Submission:    c.submission,
		PaymentStatus: c.paymentStatus,
		LastError:     c.lastError,
		Attempts:      c.attempts,
	}
	if c.appointment != nil {
		appt := *c.appointment
		snap.Appointment = &appt
	}
	return snap
}

func (c *Confirmation) startLocked(ctx context.Context, ev ConfirmationEvent) (<-chan struct{}, error) {
	next, err := Transition(c.state, ev)
	if err != nil {
		return nil, err
	}
	c.state = next
	c.attempts++
	c.lastError = ""
	done := make(chan struct{})
	c.settled = done
	go c.run(context.WithoutCancel(ctx), c.submission, done)
	return done, nil
}

func (c *Confirmation) run(ctx context.Context, sub Submission, done chan struct{}) {
	defer close(done)

	appt, err := c.submitter.Submit(ctx, c.clientID, sub)

	c.mu.Lock()
	if c.abandoned {
		c.mu.Unlock()
		return
	}
	ev := EventSucceeded
	if err != nil {
		ev = EventFailed
		c.lastError = messageCreationFailed
	} else {
		c.appointment = &appt
	}
	c.state, _ = Transition(c.state, ev)
	c.mu.Unlock()

	if c.onSettled != nil {
		c.onSettled(ctx, appt, err)
	}
	c.changed()
}

func (c *Confirmation) waitLocked() <-chan struct{} {
	if c.settled != nil {
		return c.settled
	}
	return closedChan()
}

func (c *Confirmation) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
