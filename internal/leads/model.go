// Package leads implements the quote request flow: a prospective customer
// describes what they want and how to reach them, and the request is
// forwarded to the salon's backend as a lead.
package leads

import (
	"strings"
	"unicode/utf8"

	"github.com/wolfman30/scheduled-pros/internal/booking"
	"github.com/wolfman30/scheduled-pros/internal/publicapi"
)

// Contact methods a customer may prefer.
const (
	ContactEmail = "email"
	ContactPhone = "phone"
	ContactText  = "text"
)

// Field names used in quote FieldErrors.
const (
	FieldName            = "name"
	FieldEmail           = "email"
	FieldPhone           = "phone"
	FieldServiceInterest = "serviceInterest"
	FieldContactMethod   = "contactMethod"
)

// QuoteRequest is the quote form.
type QuoteRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	ServiceInterest string `json:"serviceInterest"`
	EstimatedBudget string `json:"estimatedBudget,omitempty"`
	ContactMethod   string `json:"contactMethod"`
	Notes           string `json:"notes,omitempty"`
}

// Normalize trims whitespace and lower-cases the contact method.
func (q QuoteRequest) Normalize() QuoteRequest {
	q.Name = strings.TrimSpace(q.Name)
	q.Email = strings.TrimSpace(q.Email)
	q.Phone = strings.TrimSpace(q.Phone)
	q.ServiceInterest = strings.TrimSpace(q.ServiceInterest)
	q.EstimatedBudget = strings.TrimSpace(q.EstimatedBudget)
	q.ContactMethod = strings.ToLower(strings.TrimSpace(q.ContactMethod))
	q.Notes = strings.TrimSpace(q.Notes)
	return q
}

// Validate returns nil when the normalized request can be submitted.
func (q QuoteRequest) Validate() booking.FieldErrors {
	errs := booking.FieldErrors{}
	if utf8.RuneCountInString(q.Name) < 2 {
		errs[FieldName] = "Name must be at least 2 characters"
	}
	if !booking.ValidEmail(q.Email) {
		errs[FieldEmail] = "Please enter a valid email address"
	}
	if utf8.RuneCountInString(q.Phone) < 10 {
		errs[FieldPhone] = "Phone number must be at least 10 digits"
	}
	if q.ServiceInterest == "" {
		errs[FieldServiceInterest] = "Please tell us which service you are interested in"
	}
	switch q.ContactMethod {
	case ContactEmail, ContactPhone, ContactText:
	default:
		errs[FieldContactMethod] = "Please choose email, phone or text"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (q QuoteRequest) toLead() publicapi.LeadRequest {
	return publicapi.LeadRequest{
		Name:            q.Name,
		Email:           q.Email,
		Phone:           q.Phone,
		ServiceInterest: q.ServiceInterest,
		EstimatedBudget: q.EstimatedBudget,
		ContactMethod:   q.ContactMethod,
		Notes:           q.Notes,
	}
}
