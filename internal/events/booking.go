package events

import (
	"time"

	"github.com/wolfman30/scheduled-pros/internal/booking"
)

// TypeBookingCreatedV1 is the event type of BookingCreatedV1.
const TypeBookingCreatedV1 = "booking.created.v1"

// BookingCreatedV1 is published once per created appointment. It carries
// what the confirmation worker needs to contact the customer.
type BookingCreatedV1 struct {
	AppointmentID     string                `json:"appointment_id"`
	ClientID          string                `json:"client_id"`
	SessionID         string                `json:"session_id"`
	CustomerName      string                `json:"customer_name"`
	CustomerEmail     string                `json:"customer_email"`
	CustomerPhone     string                `json:"customer_phone"`
	EmailConfirmation bool                  `json:"email_confirmation"`
	SMSConfirmation   bool                  `json:"sms_confirmation"`
	BackendSentEmail  bool                  `json:"backend_sent_email"`
	BackendSentSMS    bool                  `json:"backend_sent_sms"`
	ServiceName       string                `json:"service_name"`
	StylistName       string                `json:"stylist_name"`
	Date              string                `json:"date"`
	StartTime         string                `json:"start_time"`
	DateTimeDisplay   string                `json:"date_time_display"`
	EndTimeDisplay    string                `json:"end_time_display"`
	PaymentMethod     booking.PaymentMethod `json:"payment_method"`
	PaymentBadge      string                `json:"payment_badge,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
}

func (BookingCreatedV1) EventType() string { return TypeBookingCreatedV1 }

// NewBookingCreatedV1 builds the event from a creation result.
func NewBookingCreatedV1(c booking.Created, at time.Time) BookingCreatedV1 {
	evt := BookingCreatedV1{
		AppointmentID:     c.Appointment.ID,
		ClientID:          c.ClientID,
		SessionID:         c.SessionID,
		CustomerName:      firstSet(c.Appointment.CustomerName, c.Submission.ClientName),
		CustomerEmail:     firstSet(c.Appointment.CustomerEmail, c.Submission.ClientEmail),
		CustomerPhone:     firstSet(c.Appointment.CustomerPhone, c.Submission.ClientPhone),
		EmailConfirmation: c.Submission.EmailConfirmation,
		SMSConfirmation:   c.Submission.SMSConfirmation,
		ServiceName:       c.View.ServiceName,
		StylistName:       c.View.StylistName,
		Date:              c.Submission.Date,
		StartTime:         c.Submission.StartTime,
		DateTimeDisplay:   c.View.DateTimeDisplay,
		EndTimeDisplay:    c.View.EndTimeDisplay,
		PaymentMethod:     c.Submission.PaymentMethod,
		PaymentBadge:      c.View.PaymentBadge,
		CreatedAt:         at.UTC(),
	}
	if conf := c.Appointment.Confirmations; conf != nil {
		evt.BackendSentEmail = conf.Email
		evt.BackendSentSMS = conf.SMS
	}
	return evt
}

func firstSet(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
