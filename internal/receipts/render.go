// Package receipts renders printable confirmations and stores them for
// read-only sharing.
package receipts

import (
	"fmt"
	"strings"

	"github.com/wolfman30/scheduled-pros/internal/booking"
)

// RenderText renders the printable confirmation.
func RenderText(v booking.View) string {
	var b strings.Builder
	b.WriteString("Booking Confirmed\n")
	b.WriteString(strings.Repeat("=", 40) + "\n")
	line(&b, "Confirmation #", v.ConfirmationNumber)
	b.WriteString("\n")
	line(&b, "Service", v.ServiceName)
	line(&b, "Price", v.ServicePrice)
	if v.DurationMinutes > 0 {
		line(&b, "Duration", fmt.Sprintf("%d minutes", v.DurationMinutes))
	}
	line(&b, "Professional", v.StylistName)
	line(&b, "When", v.DateTimeDisplay)
	if v.StartTimeDisplay != "" && v.EndTimeDisplay != "" {
		line(&b, "Time", v.StartTimeDisplay+" - "+v.EndTimeDisplay)
	}
	b.WriteString("\n")
	line(&b, "Name", v.CustomerName)
	line(&b, "Email", v.CustomerEmail)
	line(&b, "Phone", v.CustomerPhone)
	line(&b, "Notes", v.Notes)
	b.WriteString("\n")
	line(&b, "Payment", string(v.PaymentMethod))
	line(&b, "Status", v.PaymentBadge)
	return b.String()
}

func line(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "%-15s %s\n", label+":", value)
}
