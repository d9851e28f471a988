package booking

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// FlowSnapshot is the persisted form of a Flow.
type FlowSnapshot struct {
	ID               string                `json:"id"`
	ClientID         string                `json:"client_id"`
	Step             Step                  `json:"step"`
	Draft            Draft                 `json:"draft"`
	Step1            *Details              `json:"step1,omitempty"`
	Service          *Service              `json:"service,omitempty"`
	Stylist          *Stylist              `json:"stylist,omitempty"`
	ConfirmedService *Service              `json:"confirmed_service,omitempty"`
	ConfirmedStylist *Stylist              `json:"confirmed_stylist,omitempty"`
	SlotDate         Date                  `json:"slot_date"`
	SlotState        SlotState             `json:"slot_state"`
	Slots            []string              `json:"slots,omitempty"`
	SlotMessage      string                `json:"slot_message,omitempty"`
	FieldErrors      FieldErrors           `json:"field_errors,omitempty"`
	Confirmation     *ConfirmationSnapshot `json:"confirmation,omitempty"`
	Notifications    []Notification        `json:"notifications,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// Snapshot captures the flow for persistence. Unread notifications are
// included but not drained.
func (f *Flow) Snapshot() FlowSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	slots := f.slots.Current()
	snap := FlowSnapshot{
		ID:               f.id,
		ClientID:         f.clientID,
		Step:             f.step,
		Draft:            f.draft,
		Step1:            copyPtr(f.step1),
		Service:          copyPtr(f.service),
		Stylist:          copyPtr(f.stylist),
		ConfirmedService: copyPtr(f.confirmedService),
		ConfirmedStylist: copyPtr(f.confirmedStylist),
		SlotDate:         slots.Date,
		SlotState:        slots.State,
		SlotMessage:      slots.Message,
		Notifications:    f.inbox.Pending(),
		CreatedAt:        f.createdAt,
		UpdatedAt:        f.updatedAt,
	}
	for _, t := range slots.Slots {
		snap.Slots = append(snap.Slots, t.Format24())
	}
	if len(f.fieldErrors) > 0 {
		snap.FieldErrors = FieldErrors{}.Merge(f.fieldErrors)
	}
	if f.confirmation != nil {
		c := f.confirmation.Snapshot()
		snap.Confirmation = &c
	}
	return snap
}

// RestoreFlow rebuilds a flow from a snapshot. A slot fetch that was loading
// when the snapshot was taken is started again.
func RestoreFlow(ctx context.Context, snap FlowSnapshot, deps Dependencies) (*Flow, error) {
	if strings.TrimSpace(snap.ID) == "" || strings.TrimSpace(snap.ClientID) == "" {
		return nil, fmt.Errorf("%w: missing id or client id", ErrInvalidSnapshot)
	}
	switch snap.Step {
	case StepDetails, StepPayment, StepConfirmation:
	default:
		return nil, fmt.Errorf("%w: unknown step %q", ErrInvalidSnapshot, snap.Step)
	}
	if snap.Step == StepPayment && snap.Step1 == nil {
		return nil, fmt.Errorf("%w: payment step without frozen details", ErrInvalidSnapshot)
	}
	if snap.Step == StepConfirmation && snap.Confirmation == nil {
		return nil, fmt.Errorf("%w: confirmation step without confirmation", ErrInvalidSnapshot)
	}

	f := NewFlow(snap.ID, snap.ClientID, deps)
	f.mu.Lock()
	f.step = snap.Step
	f.draft = snap.Draft
	f.step1 = copyPtr(snap.Step1)
	f.service = copyPtr(snap.Service)
	f.stylist = copyPtr(snap.Stylist)
	f.confirmedService = copyPtr(snap.ConfirmedService)
	f.confirmedStylist = copyPtr(snap.ConfirmedStylist)
	if len(snap.FieldErrors) > 0 {
		f.fieldErrors = FieldErrors{}.Merge(snap.FieldErrors)
	}
	if !snap.CreatedAt.IsZero() {
		f.createdAt = snap.CreatedAt
	}
	if !snap.UpdatedAt.IsZero() {
		f.updatedAt = snap.UpdatedAt
	}
	for _, n := range snap.Notifications {
		f.inbox.Notify(ctx, n)
	}
	if snap.Confirmation != nil {
		conf := RestoreConfirmation(snap.ClientID, *snap.Confirmation, f.submitter,
			OnConfirmationChange(f.bump),
		)
		conf.onSettled = f.settledFor(conf)
		f.confirmation = conf
	}

	reload := false
	switch snap.SlotState {
	case SlotLoading:
		reload = !snap.SlotDate.IsZero()
	case SlotReady, SlotEmpty, SlotError:
		restored := SlotSnapshot{Date: snap.SlotDate, State: snap.SlotState, Message: snap.SlotMessage}
		for _, tok := range snap.Slots {
			if t, err := ParseTimeOfDay(tok, Format24h); err == nil {
				restored.Slots = append(restored.Slots, t)
			}
		}
		f.slots.Restore(restored)
	}
	f.mu.Unlock()

	if reload {
		f.slots.Select(ctx, snap.SlotDate)
	}
	return f, nil
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
