package booking

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	// ErrSubmissionInFlight is returned when Submit is called while another
	// submission for the same flow has not settled. No request is issued.
	ErrSubmissionInFlight = errors.New("booking: submission already in flight")

	// ErrMissingAppointmentID is returned when the backend reports success
	// without an identifier usable as a confirmation number.
	ErrMissingAppointmentID = errors.New("booking: created appointment has no id")
)

var bookingTracer = otel.Tracer("scheduledpros.internal.booking")

// AppointmentCreator performs exactly one creation request per call.
type AppointmentCreator interface {
	CreateAppointment(ctx context.Context, clientID string, sub Submission) (Appointment, error)
}

// Submitter sends a merged submission and reports the outcome to the user.
// At most one request is in flight at a time.
type Submitter struct {
	creator  AppointmentCreator
	notifier Notifier
	observer Observer
	timeout  time.Duration
	now      func() time.Time

	inFlight atomic.Bool
}

// SubmitterOption configures a Submitter.
type SubmitterOption func(*Submitter)

// WithSubmitTimeout overrides the request timeout.
func WithSubmitTimeout(d time.Duration) SubmitterOption {
	return func(s *Submitter) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSubmitObserver reports outcomes and latency to o.
func WithSubmitObserver(o Observer) SubmitterOption {
	return func(s *Submitter) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithSubmitClock overrides the clock used for notification timestamps.
func WithSubmitClock(now func() time.Time) SubmitterOption {
	return func(s *Submitter) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSubmitter creates a Submitter. A nil notifier discards notifications.
func NewSubmitter(creator AppointmentCreator, notifier Notifier, opts ...SubmitterOption) *Submitter {
	if creator == nil {
		panic("booking: appointment creator required")
	}
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, Notification) {})
	}
	s := &Submitter{
		creator:  creator,
		notifier: notifier,
		observer: nopObserver{},
		timeout:  DefaultRequestTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InFlight reports whether a submission is currently outstanding.
func (s *Submitter) InFlight() bool {
	return s.inFlight.Load()
}

// Submit issues the creation request. A repeat call while one is outstanding
// returns ErrSubmissionInFlight without touching the network.
func (s *Submitter) Submit(ctx context.Context, clientID string, sub Submission) (Appointment, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.observer.ObserveSubmission(SubmitOutcomeSuppressed, 0)
		return Appointment{}, ErrSubmissionInFlight
	}
	defer s.inFlight.Store(false)

	ctx, span := bookingTracer.Start(ctx, "booking.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("scheduledpros.client_id", clientID),
		attribute.String("scheduledpros.payment_method", string(sub.PaymentMethod)),
		attribute.String("scheduledpros.date", sub.Date),
	)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.now()
	appt, err := s.creator.CreateAppointment(ctx, clientID, sub)
	if err == nil && appt.ID == "" {
		err = ErrMissingAppointmentID
	}
	elapsed := s.now().Sub(start).Seconds()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create appointment failed")
		s.observer.ObserveSubmission(SubmitOutcomeFailure, elapsed)
		s.notifier.Notify(ctx, Notification{
			Kind:    NotificationFailure,
			Title:   "Booking failed",
			Message: "We couldn't book your appointment. Your details are saved, please try again.",
			At:      s.now().UTC(),
		})
		return Appointment{}, fmt.Errorf("booking: create appointment: %w", err)
	}

	span.SetAttributes(attribute.String("scheduledpros.appointment_id", appt.ID))
	s.observer.ObserveSubmission(SubmitOutcomeSuccess, elapsed)
	s.notifier.Notify(ctx, Notification{
		Kind:    NotificationSuccess,
		Title:   "Booking confirmed",
		Message: successMessage(sub, appt),
		At:      s.now().UTC(),
	})
	return appt, nil
}

func successMessage(sub Submission, appt Appointment) string {
	when := sub.StartTime
	if t, err := sub.StartTimeOfDay(); err == nil {
		when = t.Format12()
	}
	return fmt.Sprintf("Your appointment on %s at %s is booked. Confirmation #%s", sub.Date, when, appt.ID)
}
