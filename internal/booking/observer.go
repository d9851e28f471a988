package booking

import "context"

// Slot fetch outcomes reported to an Observer.
const (
	SlotOutcomeReady     = "ready"
	SlotOutcomeEmpty     = "empty"
	SlotOutcomeError     = "error"
	SlotOutcomeDiscarded = "discarded"
)

// Submission outcomes reported to an Observer.
const (
	SubmitOutcomeSuccess    = "success"
	SubmitOutcomeFailure    = "failure"
	SubmitOutcomeSuppressed = "suppressed"
)

// Observer receives workflow measurements. The metrics package provides the
// Prometheus implementation.
type Observer interface {
	ObserveSlotFetch(outcome string)
	ObserveSubmission(outcome string, seconds float64)
}

type nopObserver struct{}

func (nopObserver) ObserveSlotFetch(string) {}
func (nopObserver) ObserveSubmission(string, float64) {}

// Attempt describes one creation request, successful or not.
type Attempt struct {
	ClientID      string
	SessionID     string
	AppointmentID string
	PaymentMethod PaymentMethod
	Outcome       string
	Error         string
	InvalidFields []string
}

// Created is published once per successfully created appointment.
type Created struct {
	ClientID    string
	SessionID   string
	Appointment Appointment
	Submission  Submission
	View        View
}

// EventSink records workflow side effects outside the flow itself, such as
// an audit trail or an event outbox.
type EventSink interface {
	BookingAttempted(ctx context.Context, a Attempt)
	BookingCreated(ctx context.Context, c Created)
}

type nopSink struct{}

func (nopSink) BookingAttempted(context.Context, Attempt) {}
func (nopSink) BookingCreated(context.Context, Created) {}
