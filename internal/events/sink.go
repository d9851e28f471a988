package events

import (
	"context"

	"github.com/wolfman30/scheduled-pros/internal/booking"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

// Appender stores canonical events for later delivery.
type Appender interface {
	Append(ctx context.Context, clientID string, evt CanonicalEvent, opts ...EnvelopeOption) (Envelope, error)
}

// AttemptRecorder persists one row per creation attempt.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, a booking.Attempt) error
}

// ReceiptWriter keeps the confirmation view for print and share.
type ReceiptWriter interface {
	Put(ctx context.Context, clientID string, v booking.View) error
}

// Sink fans booking side effects out to the outbox, the audit log and the
// receipt store. Any of them may be nil. Failures are logged and never
// surface to the flow.
type Sink struct {
	outbox   Appender
	attempts AttemptRecorder
	receipts ReceiptWriter
	logger   *logging.Logger
}

type SinkOption func(*Sink)

func WithOutbox(a Appender) SinkOption { return func(s *Sink) { s.outbox = a } }

func WithAttemptRecorder(r AttemptRecorder) SinkOption { return func(s *Sink) { s.attempts = r } }

func WithReceipts(w ReceiptWriter) SinkOption { return func(s *Sink) { s.receipts = w } }

func NewSink(logger *logging.Logger, opts ...SinkOption) *Sink {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Sink{logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

var _ booking.EventSink = (*Sink)(nil)

func (s *Sink) BookingAttempted(ctx context.Context, a booking.Attempt) {
	if s.attempts == nil {
		return
	}
	if err := s.attempts.RecordAttempt(ctx, a); err != nil {
		s.logger.Warn("failed to record booking attempt", "error", err, "client_id", a.ClientID, "session_id", a.SessionID, "outcome", a.Outcome)
	}
}

func (s *Sink) BookingCreated(ctx context.Context, c booking.Created) {
	if s.receipts != nil && c.View.ConfirmationNumber != "" {
		if err := s.receipts.Put(ctx, c.ClientID, c.View); err != nil {
			s.logger.Warn("failed to store receipt", "error", err, "client_id", c.ClientID, "appointment_id", c.Appointment.ID)
		}
	}
	if s.outbox == nil {
		return
	}
	evt := NewBookingCreatedV1(c, nowFunc())
	env, err := s.outbox.Append(ctx, c.ClientID, evt)
	if err != nil {
		s.logger.Error("failed to append booking event", "error", err, "client_id", c.ClientID, "appointment_id", c.Appointment.ID)
		return
	}
	s.logger.Info("booking event queued", "event_id", env.EventID, "client_id", c.ClientID, "appointment_id", c.Appointment.ID)
}
