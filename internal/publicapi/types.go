package publicapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wolfman30/scheduled-pros/internal/booking"
)

// flexID accepts ids sent either as JSON strings or numbers.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id %s: %w", string(b), err)
	}
	*id = flexID(n.String())
	return nil
}

type serviceDTO struct {
	ID              flexID          `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	Description     string          `json:"description"`
	DurationMinutes int             `json:"durationMinutes"`
}

func (s serviceDTO) toDomain() booking.Service {
	return booking.Service{
		ID:              string(s.ID),
		Name:            strings.TrimSpace(s.Name),
		Price:           s.Price,
		Description:     s.Description,
		DurationMinutes: s.DurationMinutes,
	}
}

type stylistDTO struct {
	ID   flexID `json:"id"`
	Name string `json:"name"`
}

// LeadRequest is the quote form payload for submit-lead.
type LeadRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	ServiceInterest string `json:"serviceInterest"`
	EstimatedBudget string `json:"estimatedBudget,omitempty"`
	ContactMethod   string `json:"contactMethod"`
	Notes           string `json:"notes,omitempty"`
}

// LeadResponse is the backend acknowledgement of a lead.
type LeadResponse struct {
	Message string `json:"message"`
	// Error is set when the backend refuses the lead, even on a 2xx.
	Error string `json:"error,omitempty"`
}

// appointmentsRequest is the merged draft posted to /api/appointments.
type appointmentsRequest struct {
	ClientID               string `json:"clientId"`
	ServiceID              string `json:"serviceId"`
	StylistID              string `json:"stylistId"`
	AppointmentDate        string `json:"appointmentDate"`
	TimeSlot               string `json:"timeSlot"`
	ClientName             string `json:"clientName"`
	ClientEmail            string `json:"clientEmail"`
	ClientPhone            string `json:"clientPhone"`
	SpecialRequests        string `json:"specialRequests,omitempty"`
	EmailConfirmation      bool   `json:"emailConfirmation"`
	SMSConfirmation        bool   `json:"smsConfirmation"`
	PreferredPaymentMethod string `json:"preferredPaymentMethod"`
}

func newAppointmentsRequest(clientID string, sub booking.Submission) appointmentsRequest {
	return appointmentsRequest{
		ClientID:               clientID,
		ServiceID:              sub.ServiceID,
		StylistID:              sub.StylistID,
		AppointmentDate:        sub.Date,
		TimeSlot:               sub.StartTime,
		ClientName:             sub.ClientName,
		ClientEmail:            sub.ClientEmail,
		ClientPhone:            sub.ClientPhone,
		SpecialRequests:        sub.SpecialRequests,
		EmailConfirmation:      sub.EmailConfirmation,
		SMSConfirmation:        sub.SMSConfirmation,
		PreferredPaymentMethod: string(sub.PaymentMethod),
	}
}

type appointmentsResponse struct {
	Appointment   *appointmentDTO        `json:"appointment"`
	Confirmations *booking.Confirmations `json:"confirmations"`
}

// bookRequest is the public cash booking payload.
type bookRequest struct {
	ServiceID       string `json:"serviceId"`
	StylistID       string `json:"stylistId,omitempty"`
	CustomerName    string `json:"customerName"`
	CustomerEmail   string `json:"customerEmail"`
	CustomerPhone   string `json:"customerPhone"`
	AppointmentDate string `json:"appointmentDate"`
	StartTime       string `json:"startTime"`
	Notes           string `json:"notes,omitempty"`
	Source          string `json:"source"`
}

const bookingSource = "public_booking"

func newBookRequest(sub booking.Submission) bookRequest {
	stylist := sub.StylistID
	if stylist == booking.AnyStylist {
		stylist = ""
	}
	return bookRequest{
		ServiceID:       sub.ServiceID,
		StylistID:       stylist,
		CustomerName:    sub.ClientName,
		CustomerEmail:   sub.ClientEmail,
		CustomerPhone:   sub.ClientPhone,
		AppointmentDate: sub.Date,
		StartTime:       sub.StartTime,
		Notes:           sub.SpecialRequests,
		Source:          bookingSource,
	}
}

// appointmentDTO tolerates both the camelCase public shape and the
// customer-prefixed shape returned by /api/appointments.
type appointmentDTO struct {
	ID              flexID `json:"id"`
	ServiceID       flexID `json:"serviceId"`
	StylistID       flexID `json:"stylistId"`
	CustomerName    string `json:"customerName"`
	CustomerEmail   string `json:"customerEmail"`
	CustomerPhone   string `json:"customerPhone"`
	ClientName      string `json:"clientName"`
	ClientEmail     string `json:"clientEmail"`
	ClientPhone     string `json:"clientPhone"`
	AppointmentDate string `json:"appointmentDate"`
	StartTime       string `json:"startTime"`
	TimeSlot        string `json:"timeSlot"`
	Notes           string `json:"notes"`
	PaymentMethod   string `json:"paymentMethod"`
	PaymentStatus   string `json:"paymentStatus"`
	Status          string `json:"status"`
}

// toDomain converts the wire record, falling back to the submitted values
// for anything the backend did not echo. The start time arrives untagged,
// so its grammar is detected here once and carried as a tag afterwards.
func (a appointmentDTO) toDomain(sub booking.Submission) (booking.Appointment, error) {
	appt := booking.Appointment{
		ID:            string(a.ID),
		ServiceID:     firstNonEmpty(string(a.ServiceID), sub.ServiceID),
		StylistID:     firstNonEmpty(string(a.StylistID), sub.StylistID),
		CustomerName:  firstNonEmpty(a.CustomerName, a.ClientName, sub.ClientName),
		CustomerEmail: firstNonEmpty(a.CustomerEmail, a.ClientEmail, sub.ClientEmail),
		CustomerPhone: firstNonEmpty(a.CustomerPhone, a.ClientPhone, sub.ClientPhone),
		Notes:         firstNonEmpty(a.Notes, sub.SpecialRequests),
		Status:        a.Status,
	}
	if m, err := booking.ParsePaymentMethod(a.PaymentMethod); err == nil {
		appt.PaymentMethod = m
	} else {
		appt.PaymentMethod = sub.PaymentMethod
	}
	if s := strings.ToUpper(strings.TrimSpace(a.PaymentStatus)); s != "" {
		appt.PaymentStatus = booking.PaymentStatus(s)
	}

	date, err := booking.ParseDate(firstNonEmpty(a.AppointmentDate, sub.Date))
	if err != nil {
		return booking.Appointment{}, fmt.Errorf("%w: appointment date: %v", ErrInvalidResponse, err)
	}
	appt.Date = date

	start := tagStart(firstNonEmpty(a.StartTime, a.TimeSlot, sub.StartTime))
	if start.Format == booking.FormatUnknown {
		return booking.Appointment{}, fmt.Errorf("%w: start time %q: %v", ErrInvalidResponse, start.Value, booking.ErrUnrecognizedTime)
	}
	appt.Start = start
	return appt, nil
}

// tagStart accepts a bare clock token or a full RFC 3339 timestamp, whose
// wall-clock part is used as-is.
func tagStart(v string) booking.TaggedTime {
	if ts, err := time.Parse(time.RFC3339, v); err == nil {
		if tod, terr := booking.NewTimeOfDay(ts.Hour(), ts.Minute()); terr == nil {
			return booking.Tagged24(tod)
		}
	}
	return booking.Tag(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
