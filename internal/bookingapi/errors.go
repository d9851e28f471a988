package bookingapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/scheduled-pros/internal/booking"
	"github.com/wolfman30/scheduled-pros/internal/receipts"
	"github.com/wolfman30/scheduled-pros/internal/session"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

// fieldFor maps single-field workflow errors onto the field they concern so
// the client can render them inline like validation errors.
var fieldFor = []struct {
	err     error
	field   string
	message string
}{
	{booking.ErrUnknownService, booking.FieldServiceID, "Please choose a service from the list"},
	{booking.ErrUnknownStylist, booking.FieldStylistID, "Please choose a stylist from the list"},
	{booking.ErrPastDate, booking.FieldAppointmentDate, "Please choose today or a future date"},
	{booking.ErrInvalidDate, booking.FieldAppointmentDate, "Please choose a valid date"},
	{booking.ErrSlotNotAvailable, booking.FieldTimeSlot, "That time is not available on the selected date"},
	{booking.ErrUnrecognizedTime, booking.FieldTimeSlot, "Please choose a time from the list"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError translates a workflow error into a response. Collaborator
// failures surface as 502 without leaking backend detail.
func writeError(w http.ResponseWriter, logger *logging.Logger, err error) {
	var fieldErrs booking.FieldErrors
	if errors.As(err, &fieldErrs) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": fieldErrs})
		return
	}
	for _, m := range fieldFor {
		if errors.Is(err, m.err) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": booking.FieldErrors{m.field: m.message}})
			return
		}
	}
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeMessage(w, http.StatusNotFound, "session not found")
	case errors.Is(err, receipts.ErrNotFound), errors.Is(err, receipts.ErrInvalidShareToken):
		writeMessage(w, http.StatusNotFound, "confirmation not found")
	case errors.Is(err, booking.ErrNotCreated):
		writeMessage(w, http.StatusConflict, "appointment not created yet")
	case errors.Is(err, booking.ErrSubmissionInFlight):
		writeMessage(w, http.StatusConflict, "a submission is already in progress")
	case errors.Is(err, booking.ErrWrongStep),
		errors.Is(err, booking.ErrNoConfirmation),
		errors.Is(err, booking.ErrInvalidTransition):
		writeMessage(w, http.StatusConflict, err.Error())
	default:
		logger.Error("booking request failed", "error", err)
		writeMessage(w, http.StatusBadGateway, "We couldn't reach the booking service. Please try again.")
	}
}
