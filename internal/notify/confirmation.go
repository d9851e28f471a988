package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/scheduled-pros/internal/events"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

// Dispatcher sends the customer confirmations a booking asked for.
type Dispatcher struct {
	email  EmailSender
	sms    SMSSender
	logger *logging.Logger
}

func NewDispatcher(email EmailSender, sms SMSSender, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{email: email, sms: sms, logger: logger}
}

// Result reports which channels were used.
type Result struct {
	EmailSent bool
	SMSSent   bool
}

// DispatchBookingCreated honours the customer's toggles and skips any
// channel the booking backend reports it already used.
func (d *Dispatcher) DispatchBookingCreated(ctx context.Context, evt events.BookingCreatedV1) (Result, error) {
	var res Result
	var errs []error
	logger := d.logger.With("client_id", evt.ClientID, "appointment_id", evt.AppointmentID)

	switch {
	case !evt.EmailConfirmation:
	case evt.BackendSentEmail:
		logger.Debug("notify: backend already emailed confirmation")
	case d.email == nil || strings.TrimSpace(evt.CustomerEmail) == "":
		logger.Warn("notify: email confirmation requested but cannot be sent", "has_sender", d.email != nil)
	default:
		if err := d.email.Send(ctx, EmailMessage{
			To:      evt.CustomerEmail,
			ToName:  evt.CustomerName,
			Subject: confirmationSubject(evt),
			Body:    confirmationText(evt),
			HTML:    confirmationHTML(evt),
		}); err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		} else {
			res.EmailSent = true
		}
	}

	switch {
	case !evt.SMSConfirmation:
	case evt.BackendSentSMS:
		logger.Debug("notify: backend already texted confirmation")
	case d.sms == nil || strings.TrimSpace(evt.CustomerPhone) == "":
		logger.Warn("notify: sms confirmation requested but cannot be sent", "has_sender", d.sms != nil)
	default:
		if err := d.sms.SendSMS(ctx, evt.CustomerPhone, confirmationSMS(evt)); err != nil {
			errs = append(errs, fmt.Errorf("sms: %w", err))
		} else {
			res.SMSSent = true
		}
	}

	if len(errs) > 0 {
		return res, fmt.Errorf("notify: confirmation delivery: %w", errors.Join(errs...))
	}
	logger.Info("notify: confirmations dispatched", "email_sent", res.EmailSent, "sms_sent", res.SMSSent)
	return res, nil
}
