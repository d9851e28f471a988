package publicapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/scheduled-pros/internal/booking"
)

// Creation endpoints selectable through configuration.
const (
	EndpointPublic       = "public"
	EndpointAppointments = "appointments"
)

// PublicBookingCreator creates appointments through the public book endpoint.
type PublicBookingCreator struct {
	client *Client
}

// CreateAppointment implements booking.AppointmentCreator.
func (p PublicBookingCreator) CreateAppointment(ctx context.Context, clientID string, sub booking.Submission) (booking.Appointment, error) {
	return p.client.Book(ctx, clientID, sub)
}

// AppointmentsCreator creates appointments through /api/appointments, which
// also reports which confirmations the backend sent.
type AppointmentsCreator struct {
	client *Client
}

// CreateAppointment implements booking.AppointmentCreator.
func (a AppointmentsCreator) CreateAppointment(ctx context.Context, clientID string, sub booking.Submission) (booking.Appointment, error) {
	return a.client.CreateAppointment(ctx, clientID, sub)
}

// NewCreator returns the creator for the named endpoint.
func NewCreator(client *Client, endpoint string) (booking.AppointmentCreator, error) {
	if client == nil {
		return nil, fmt.Errorf("publicapi: client required")
	}
	switch strings.ToLower(strings.TrimSpace(endpoint)) {
	case "", EndpointPublic:
		return PublicBookingCreator{client: client}, nil
	case EndpointAppointments:
		return AppointmentsCreator{client: client}, nil
	default:
		return nil, fmt.Errorf("publicapi: unknown create endpoint %q", endpoint)
	}
}
