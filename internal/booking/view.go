package booking

import (
	"fmt"
	"strings"
	"time"
)

// Payment badges shown on the confirmation.
const (
	BadgePaidOnline = "Paid Online"
	BadgePaymentDue = "Payment Due at Appointment"
)

const anyStylistName = "Any available professional"

// View is the derived confirmation. It is recomputed on every read and
// never stored.
type View struct {
	ConfirmationNumber string        `json:"confirmation_number"`
	ServiceName        string        `json:"service_name"`
	ServicePrice       string        `json:"service_price,omitempty"`
	DurationMinutes    int           `json:"duration_minutes"`
	StylistName        string        `json:"stylist_name"`
	Date               string        `json:"date"`
	DateTimeDisplay    string        `json:"date_time_display"`
	StartTime          string        `json:"start_time"`
	StartTimeDisplay   string        `json:"start_time_display"`
	EndTime            string        `json:"end_time"`
	EndTimeDisplay     string        `json:"end_time_display"`
	CustomerName       string        `json:"customer_name"`
	CustomerEmail      string        `json:"customer_email"`
	CustomerPhone      string        `json:"customer_phone"`
	Notes              string        `json:"notes,omitempty"`
	PaymentMethod      PaymentMethod `json:"payment_method"`
	PaymentStatus      PaymentStatus `json:"payment_status,omitempty"`
	PaymentBadge       string        `json:"payment_badge,omitempty"`
}

// PaymentBadge returns the badge for a method/status pair, or "" for none.
func PaymentBadge(method PaymentMethod, status PaymentStatus) string {
	switch {
	case method == PaymentOnline && status == PaymentCompleted:
		return BadgePaidOnline
	case method == PaymentCash:
		return BadgePaymentDue
	default:
		return ""
	}
}

// EndTime returns start plus the service duration, wrapping past midnight.
func EndTime(start TimeOfDay, durationMinutes int) TimeOfDay {
	return start.AddMinutes(durationMinutes)
}

// FormatDateTime renders "Thursday, December 25, 2025 at 2:30 PM".
func FormatDateTime(d Date, t TimeOfDay) string {
	return fmt.Sprintf("%s at %s", d.Time(time.UTC).Format("Monday, January 2, 2006"), t.Format12())
}

// BuildView derives the confirmation from the created appointment and the
// service and stylist that were selected. A nil stylist means any available.
func BuildView(appt Appointment, svc Service, stylist *Stylist, method PaymentMethod, status PaymentStatus) (View, error) {
	start, err := appt.Start.Parse()
	if err != nil {
		return View{}, fmt.Errorf("booking: confirmation start time: %w", err)
	}
	if !appt.Date.Valid() {
		return View{}, fmt.Errorf("%w: appointment date %q", ErrInvalidDate, appt.Date.String())
	}
	if appt.PaymentMethod != "" {
		method = appt.PaymentMethod
	}
	if appt.PaymentStatus != "" {
		status = appt.PaymentStatus
	}

	end := EndTime(start, svc.DurationMinutes)
	v := View{
		ConfirmationNumber: appt.ID,
		ServiceName:        svc.Name,
		DurationMinutes:    svc.DurationMinutes,
		StylistName:        stylistName(stylist),
		Date:               appt.Date.String(),
		DateTimeDisplay:    FormatDateTime(appt.Date, start),
		StartTime:          start.Format24(),
		StartTimeDisplay:   start.Format12(),
		EndTime:            end.Format24(),
		EndTimeDisplay:     end.Format12(),
		CustomerName:       appt.CustomerName,
		CustomerEmail:      appt.CustomerEmail,
		CustomerPhone:      appt.CustomerPhone,
		Notes:              appt.Notes,
		PaymentMethod:      method,
		PaymentStatus:      status,
		PaymentBadge:       PaymentBadge(method, status),
	}
	if !svc.Price.IsZero() {
		v.ServicePrice = "$" + svc.Price.StringFixed(2)
	}
	return v, nil
}

func stylistName(s *Stylist) string {
	if s == nil || s.ID == AnyStylist || strings.TrimSpace(s.Name) == "" {
		return anyStylistName
	}
	return s.Name
}
