package booking

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Field names used as keys in FieldErrors.
const (
	FieldServiceID       = "serviceId"
	FieldStylistID       = "stylistId"
	FieldAppointmentDate = "appointmentDate"
	FieldTimeSlot        = "timeSlot"
	FieldClientName      = "clientName"
	FieldClientEmail     = "clientEmail"
	FieldClientPhone     = "clientPhone"
	FieldPaymentMethod   = "preferredPaymentMethod"
)

const (
	minNameLength  = 2
	minPhoneLength = 10
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldErrors maps a field name to a user-facing validation message.
type FieldErrors map[string]string

// Error implements error with a stable, sorted rendering.
func (fe FieldErrors) Error() string {
	keys := fe.Fields()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "booking: validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the failing field names in sorted order.
func (fe FieldErrors) Fields() []string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge copies other into fe.
func (fe FieldErrors) Merge(other FieldErrors) FieldErrors {
	for k, v := range other {
		fe[k] = v
	}
	return fe
}

// Details is the validated, immutable output of the intake step.
type Details struct {
	ServiceID         string    `json:"service_id"`
	StylistID         string    `json:"stylist_id"`
	Date              Date      `json:"date"`
	Slot              TimeOfDay `json:"slot"`
	ClientName        string    `json:"client_name"`
	ClientEmail       string    `json:"client_email"`
	ClientPhone       string    `json:"client_phone"`
	SpecialRequests   string    `json:"special_requests,omitempty"`
	EmailConfirmation bool      `json:"email_confirmation"`
	SMSConfirmation   bool      `json:"sms_confirmation"`
}

// PaymentChoice is the validated output of the payment step.
type PaymentChoice struct {
	Method PaymentMethod `json:"method"`
}

// SlotSet is the set of start times resolved for one date.
type SlotSet struct {
	Date  Date
	Slots []TimeOfDay
}

// Contains reports whether token is a slot of this set and the set belongs
// to date. A slot is meaningless outside the date it was fetched for.
func (s SlotSet) Contains(date Date, token string) bool {
	if s.Date.IsZero() || s.Date != date {
		return false
	}
	t, err := ParseTimeOfDay(token, Format24h)
	if err != nil {
		return false
	}
	for _, slot := range s.Slots {
		if slot == t {
			return true
		}
	}
	return false
}

// ValidEmail reports whether s looks like local@domain.tld.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// ValidateDetails checks the intake step against the resolved slots. It
// returns a clean Details record, or the failing fields.
func ValidateDetails(d Draft, slots SlotSet) (Details, FieldErrors) {
	errs := FieldErrors{}

	name := strings.TrimSpace(d.ClientName)
	if utf8.RuneCountInString(name) < minNameLength {
		errs[FieldClientName] = "Name must be at least 2 characters"
	}
	email := strings.TrimSpace(d.ClientEmail)
	if !ValidEmail(email) {
		errs[FieldClientEmail] = "Please enter a valid email address"
	}
	phone := strings.TrimSpace(d.ClientPhone)
	if utf8.RuneCountInString(phone) < minPhoneLength {
		errs[FieldClientPhone] = "Phone number must be at least 10 characters"
	}
	if strings.TrimSpace(d.ServiceID) == "" {
		errs[FieldServiceID] = "Please select a service"
	}
	if strings.TrimSpace(d.StylistID) == "" {
		errs[FieldStylistID] = "Please select a stylist"
	}
	if !d.AppointmentDate.Valid() {
		errs[FieldAppointmentDate] = "Please select a date"
	}

	var slot TimeOfDay
	switch {
	case strings.TrimSpace(d.TimeSlot) == "":
		errs[FieldTimeSlot] = "Please select a time slot"
	case !slots.Contains(d.AppointmentDate, d.TimeSlot):
		errs[FieldTimeSlot] = "Selected time is no longer available"
	default:
		slot, _ = ParseTimeOfDay(d.TimeSlot, Format24h)
	}

	if len(errs) > 0 {
		return Details{}, errs
	}
	return Details{
		ServiceID:         strings.TrimSpace(d.ServiceID),
		StylistID:         strings.TrimSpace(d.StylistID),
		Date:              d.AppointmentDate,
		Slot:              slot,
		ClientName:        name,
		ClientEmail:       email,
		ClientPhone:       phone,
		SpecialRequests:   strings.TrimSpace(d.SpecialRequests),
		EmailConfirmation: d.EmailConfirmation,
		SMSConfirmation:   d.SMSConfirmation,
	}, nil
}

// ValidatePayment checks the payment step on its own.
func ValidatePayment(m PaymentMethod) (PaymentChoice, FieldErrors) {
	if !m.Valid() {
		return PaymentChoice{}, FieldErrors{FieldPaymentMethod: "Please select a payment method"}
	}
	return PaymentChoice{Method: m}, nil
}
