// Package booking implements the multi-step booking-and-payment workflow:
// intake validation, date-scoped slot resolution, payment-method selection,
// submission and confirmation rendering.
package booking

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AnyStylist is the stylist sentinel meaning "any available professional".
const AnyStylist = "any"

// PaymentMethod is the customer's preferred way to pay.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentOnline PaymentMethod = "ONLINE"
)

// ParsePaymentMethod normalizes user input into a PaymentMethod.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToUpper(strings.TrimSpace(s))) {
	case PaymentCash:
		return PaymentCash, nil
	case PaymentOnline:
		return PaymentOnline, nil
	default:
		return "", fmt.Errorf("booking: unknown payment method %q", s)
	}
}

// Valid reports whether m is one of the supported methods.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentOnline
}

// PaymentStatus is the processor-reported state of an online payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Service is a bookable service offered by a tenant.
type Service struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	Description     string          `json:"description,omitempty"`
	DurationMinutes int             `json:"durationMinutes"`
}

// Stylist is a professional who can perform a service.
type Stylist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Confirmations reports which customer confirmations the backend already sent.
type Confirmations struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
}

// Appointment is the server-owned record returned by a creation request.
// The workflow only reads it.
type Appointment struct {
	ID            string         `json:"id"`
	ServiceID     string         `json:"service_id"`
	StylistID     string         `json:"stylist_id,omitempty"`
	CustomerName  string         `json:"customer_name"`
	CustomerEmail string         `json:"customer_email"`
	CustomerPhone string         `json:"customer_phone"`
	Date          Date           `json:"date"`
	Start         TaggedTime     `json:"start"`
	Notes         string         `json:"notes,omitempty"`
	PaymentMethod PaymentMethod  `json:"payment_method,omitempty"`
	PaymentStatus PaymentStatus  `json:"payment_status,omitempty"`
	Status        string         `json:"status,omitempty"`
	Confirmations *Confirmations `json:"confirmations,omitempty"`
}

// Draft is the not-yet-submitted appointment request under construction.
type Draft struct {
	ServiceID         string        `json:"service_id"`
	StylistID         string        `json:"stylist_id"`
	AppointmentDate   Date          `json:"appointment_date"`
	TimeSlot          string        `json:"time_slot"`
	ClientName        string        `json:"client_name"`
	ClientEmail       string        `json:"client_email"`
	ClientPhone       string        `json:"client_phone"`
	SpecialRequests   string        `json:"special_requests"`
	EmailConfirmation bool          `json:"email_confirmation"`
	SMSConfirmation   bool          `json:"sms_confirmation"`
	PaymentMethod     PaymentMethod `json:"payment_method,omitempty"`
}

// NewDraft returns an empty draft with the default confirmation toggles.
func NewDraft() Draft {
	return Draft{EmailConfirmation: true}
}
