package bookingapi

import (
	"time"

	"github.com/wolfman30/scheduled-pros/internal/booking"
)

type serviceResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Price           string `json:"price"`
	PriceDisplay    string `json:"price_display"`
	Description     string `json:"description,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
}

func newServiceResponse(s booking.Service) serviceResponse {
	return serviceResponse{
		ID:              s.ID,
		Name:            s.Name,
		Price:           s.Price.StringFixed(2),
		PriceDisplay:    "$" + s.Price.StringFixed(2),
		Description:     s.Description,
		DurationMinutes: s.DurationMinutes,
	}
}

type stylistResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// slotOption pairs the 24h value sent back on selection with the 12h label
// shown to the customer.
type slotOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type slotsResponse struct {
	Date    string       `json:"date,omitempty"`
	State   string       `json:"state"`
	Message string       `json:"message,omitempty"`
	Options []slotOption `json:"options"`
}

func newSlotsResponse(s booking.SlotSnapshot) slotsResponse {
	out := slotsResponse{
		State:   string(s.State),
		Message: s.Message,
		Options: []slotOption{},
	}
	if out.State == "" {
		out.State = string(booking.SlotIdle)
	}
	if !s.Date.IsZero() {
		out.Date = s.Date.String()
	}
	for _, t := range s.Slots {
		out.Options = append(out.Options, slotOption{Value: t.Format24(), Label: t.Format12()})
	}
	return out
}

type draftResponse struct {
	ServiceID         string `json:"service_id"`
	StylistID         string `json:"stylist_id"`
	AppointmentDate   string `json:"appointment_date,omitempty"`
	TimeSlot          string `json:"time_slot,omitempty"`
	ClientName        string `json:"client_name"`
	ClientEmail       string `json:"client_email"`
	ClientPhone       string `json:"client_phone"`
	SpecialRequests   string `json:"special_requests"`
	EmailConfirmation bool   `json:"email_confirmation"`
	SMSConfirmation   bool   `json:"sms_confirmation"`
	PaymentMethod     string `json:"payment_method,omitempty"`
}

func newDraftResponse(d booking.Draft) draftResponse {
	out := draftResponse{
		ServiceID:         d.ServiceID,
		StylistID:         d.StylistID,
		TimeSlot:          d.TimeSlot,
		ClientName:        d.ClientName,
		ClientEmail:       d.ClientEmail,
		ClientPhone:       d.ClientPhone,
		SpecialRequests:   d.SpecialRequests,
		EmailConfirmation: d.EmailConfirmation,
		SMSConfirmation:   d.SMSConfirmation,
		PaymentMethod:     string(d.PaymentMethod),
	}
	if !d.AppointmentDate.IsZero() {
		out.AppointmentDate = d.AppointmentDate.String()
	}
	return out
}

type confirmationResponse struct {
	State         string `json:"state"`
	PaymentMethod string `json:"payment_method"`
	PaymentStatus string `json:"payment_status,omitempty"`
	AppointmentID string `json:"appointment_id,omitempty"`
	LastError     string `json:"last_error,omitempty"`
	Attempts      int    `json:"attempts"`
	CanRetry      bool   `json:"can_retry"`
}

func newConfirmationResponse(c booking.ConfirmationSnapshot) confirmationResponse {
	out := confirmationResponse{
		State:         string(c.State),
		PaymentMethod: string(c.Submission.PaymentMethod),
		PaymentStatus: string(c.PaymentStatus),
		LastError:     c.LastError,
		Attempts:      c.Attempts,
		CanRetry:      c.State == booking.StateFailed,
	}
	if c.Appointment != nil {
		out.AppointmentID = c.Appointment.ID
	}
	return out
}

type stateResponse struct {
	SessionID          string                 `json:"session_id"`
	ClientID           string                 `json:"client_id"`
	Step               string                 `json:"step"`
	Draft              draftResponse          `json:"draft"`
	Slots              slotsResponse          `json:"slots"`
	FieldErrors        booking.FieldErrors    `json:"field_errors,omitempty"`
	Service            *serviceResponse       `json:"service,omitempty"`
	Stylist            *stylistResponse       `json:"stylist,omitempty"`
	Confirmation       *confirmationResponse  `json:"confirmation,omitempty"`
	View               *booking.View          `json:"view,omitempty"`
	SubmissionInFlight bool                   `json:"submission_in_flight"`
	Notifications      []booking.Notification `json:"notifications,omitempty"`
	Version            uint64                 `json:"version"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

func newStateResponse(st booking.State, notes []booking.Notification) stateResponse {
	out := stateResponse{
		SessionID:          st.ID,
		ClientID:           st.ClientID,
		Step:               string(st.Step),
		Draft:              newDraftResponse(st.Draft),
		Slots:              newSlotsResponse(st.Slots),
		FieldErrors:        st.FieldErrors,
		View:               st.View,
		SubmissionInFlight: st.SubmissionInFlight,
		Notifications:      notes,
		Version:            st.Version,
		UpdatedAt:          st.UpdatedAt,
	}
	if st.Service != nil {
		svc := newServiceResponse(*st.Service)
		out.Service = &svc
	}
	if st.Stylist != nil {
		out.Stylist = &stylistResponse{ID: st.Stylist.ID, Name: st.Stylist.Name}
	}
	if st.Confirmation != nil {
		conf := newConfirmationResponse(*st.Confirmation)
		out.Confirmation = &conf
	}
	return out
}

type detailsRequest struct {
	ServiceID         *string `json:"service_id"`
	StylistID         *string `json:"stylist_id"`
	ClientName        *string `json:"client_name"`
	ClientEmail       *string `json:"client_email"`
	ClientPhone       *string `json:"client_phone"`
	SpecialRequests   *string `json:"special_requests"`
	EmailConfirmation *bool   `json:"email_confirmation"`
	SMSConfirmation   *bool   `json:"sms_confirmation"`
}

func (d detailsRequest) update() booking.DetailsUpdate {
	return booking.DetailsUpdate{
		ServiceID: d.ServiceID,
		StylistID: d.StylistID,
		ContactUpdate: booking.ContactUpdate{
			ClientName:        d.ClientName,
			ClientEmail:       d.ClientEmail,
			ClientPhone:       d.ClientPhone,
			SpecialRequests:   d.SpecialRequests,
			EmailConfirmation: d.EmailConfirmation,
			SMSConfirmation:   d.SMSConfirmation,
		},
	}
}

type dateRequest struct {
	Date string `json:"date"`
}

type slotRequest struct {
	TimeSlot string `json:"time_slot"`
}

type paymentMethodRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type paymentStatusRequest struct {
	Status string `json:"status"`
}

type shareResponse struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
