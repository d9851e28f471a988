package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/scheduled-pros/internal/events"
)

func confirmationSubject(evt events.BookingCreatedV1) string {
	return fmt.Sprintf("Your %s appointment is confirmed (#%s)", evt.ServiceName, evt.AppointmentID)
}

func whenLine(evt events.BookingCreatedV1) string {
	if evt.EndTimeDisplay == "" {
		return evt.DateTimeDisplay
	}
	return fmt.Sprintf("%s (until %s)", evt.DateTimeDisplay, evt.EndTimeDisplay)
}

func confirmationText(evt events.BookingCreatedV1) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", evt.CustomerName)
	b.WriteString("Your appointment is booked.\n\n")
	fmt.Fprintf(&b, "Confirmation #: %s\n", evt.AppointmentID)
	fmt.Fprintf(&b, "Service: %s\n", evt.ServiceName)
	if evt.StylistName != "" {
		fmt.Fprintf(&b, "Stylist: %s\n", evt.StylistName)
	}
	fmt.Fprintf(&b, "When: %s\n", whenLine(evt))
	if evt.PaymentBadge != "" {
		fmt.Fprintf(&b, "Payment: %s\n", evt.PaymentBadge)
	}
	return b.String()
}

func confirmationHTML(evt events.BookingCreatedV1) string {
	rows := []struct{ label, value string }{
		{"Confirmation #", evt.AppointmentID},
		{"Service", evt.ServiceName},
		{"Stylist", evt.StylistName},
		{"When", whenLine(evt)},
		{"Payment", evt.PaymentBadge},
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p><p>Your appointment is booked.</p><table>", html.EscapeString(evt.CustomerName))
	for _, r := range rows {
		if r.value == "" {
			continue
		}
		fmt.Fprintf(&b, "<tr><td><strong>%s</strong></td><td>%s</td></tr>", r.label, html.EscapeString(r.value))
	}
	b.WriteString("</table>")
	return b.String()
}

func confirmationSMS(evt events.BookingCreatedV1) string {
	return fmt.Sprintf("Booked: %s on %s. Confirmation #%s", evt.ServiceName, evt.DateTimeDisplay, evt.AppointmentID)
}
