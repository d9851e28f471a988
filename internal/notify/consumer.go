package notify

import (
	"context"
	"fmt"

	"github.com/wolfman30/scheduled-pros/internal/events"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

// Deduper remembers which envelopes a consumer has handled.
type Deduper interface {
	AlreadyProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
}

// ConfirmationObserver counts confirmation deliveries per channel.
type ConfirmationObserver interface {
	ObserveConfirmation(channel, status string)
}

// Consumer turns booking events into customer confirmations. It serves both
// the queue worker and in-process outbox delivery.
type Consumer struct {
	dispatcher *Dispatcher
	dedupe     Deduper
	observer   ConfirmationObserver
	logger     *logging.Logger
}

// NewConsumer creates a consumer. dedupe and observer may be nil.
func NewConsumer(dispatcher *Dispatcher, dedupe Deduper, observer ConfirmationObserver, logger *logging.Logger) *Consumer {
	if dispatcher == nil {
		panic("notify: dispatcher required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Consumer{dispatcher: dispatcher, dedupe: dedupe, observer: observer, logger: logger}
}

var _ events.DeliveryHandler = (*Consumer)(nil)

// Handle lets the consumer act as an outbox delivery handler.
func (c *Consumer) Handle(ctx context.Context, entry events.OutboxEntry) error {
	return c.HandleEnvelope(ctx, entry.Envelope)
}

// HandleEnvelope dispatches one envelope. Unknown event types are ignored.
// A returned error means the envelope should be redelivered.
func (c *Consumer) HandleEnvelope(ctx context.Context, env events.Envelope) error {
	if env.EventType != events.TypeBookingCreatedV1 {
		c.logger.Debug("notify: ignoring event", "type", env.EventType, "event_id", env.EventID)
		return nil
	}
	eventID := env.EventID.String()

	if c.dedupe != nil {
		done, err := c.dedupe.AlreadyProcessed(ctx, events.ConsumerBookingConfirmation, eventID)
		if err != nil {
			return fmt.Errorf("notify: dedupe lookup: %w", err)
		}
		if done {
			c.logger.Info("notify: duplicate event skipped", "event_id", eventID)
			c.observe("any", "duplicate")
			return nil
		}
	}

	var evt events.BookingCreatedV1
	if err := env.Decode(&evt); err != nil {
		// A payload that cannot decode will never succeed; drop it.
		c.logger.Error("notify: undecodable booking event", "error", err, "event_id", eventID)
		c.observe("any", "invalid")
		return nil
	}

	res, err := c.dispatcher.DispatchBookingCreated(ctx, evt)
	c.record(evt, res, err)
	if err != nil {
		return err
	}

	if c.dedupe != nil {
		if _, err := c.dedupe.MarkProcessed(ctx, events.ConsumerBookingConfirmation, eventID); err != nil {
			c.logger.Warn("notify: failed to mark event processed", "error", err, "event_id", eventID)
		}
	}
	return nil
}

func (c *Consumer) record(evt events.BookingCreatedV1, res Result, err error) {
	if evt.EmailConfirmation && !evt.BackendSentEmail {
		c.observe("email", status(res.EmailSent, err))
	}
	if evt.SMSConfirmation && !evt.BackendSentSMS {
		c.observe("sms", status(res.SMSSent, err))
	}
}

func status(sent bool, err error) string {
	switch {
	case sent:
		return "sent"
	case err != nil:
		return "failed"
	default:
		return "skipped"
	}
}

func (c *Consumer) observe(channel, status string) {
	if c.observer != nil {
		c.observer.ObserveConfirmation(channel, status)
	}
}
