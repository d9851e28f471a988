package booking

// Submission is the merged, frozen payload sent to a creation endpoint.
// Date and StartTime are already in wire form.
type Submission struct {
	ServiceID         string        `json:"service_id"`
	StylistID         string        `json:"stylist_id"`
	Date              string        `json:"date"`
	StartTime         string        `json:"start_time"`
	ClientName        string        `json:"client_name"`
	ClientEmail       string        `json:"client_email"`
	ClientPhone       string        `json:"client_phone"`
	SpecialRequests   string        `json:"special_requests,omitempty"`
	EmailConfirmation bool          `json:"email_confirmation"`
	SMSConfirmation   bool          `json:"sms_confirmation"`
	PaymentMethod     PaymentMethod `json:"payment_method"`
}

// Merge combines the two validated steps into one submission payload.
func Merge(d Details, p PaymentChoice) Submission {
	return Submission{
		ServiceID:         d.ServiceID,
		StylistID:         d.StylistID,
		Date:              d.Date.String(),
		StartTime:         d.Slot.Format24(),
		ClientName:        d.ClientName,
		ClientEmail:       d.ClientEmail,
		ClientPhone:       d.ClientPhone,
		SpecialRequests:   d.SpecialRequests,
		EmailConfirmation: d.EmailConfirmation,
		SMSConfirmation:   d.SMSConfirmation,
		PaymentMethod:     p.Method,
	}
}

// StartTimeOfDay parses the submission's 24-hour start token.
func (s Submission) StartTimeOfDay() (TimeOfDay, error) {
	return ParseTimeOfDay(s.StartTime, Format24h)
}
