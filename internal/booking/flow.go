package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

// Step is the screen the flow is currently on.
type Step string

const (
	StepDetails      Step = "details"
	StepPayment      Step = "payment"
	StepConfirmation Step = "confirmation"
)

var (
	ErrWrongStep        = errors.New("booking: action not allowed in the current step")
	ErrSlotNotAvailable = errors.New("booking: slot not available for the selected date")
	ErrPastDate         = errors.New("booking: date is in the past")
	ErrUnknownService   = errors.New("booking: unknown service")
	ErrUnknownStylist   = errors.New("booking: unknown stylist")
	ErrNotCreated       = errors.New("booking: appointment not created yet")
	ErrNoConfirmation   = errors.New("booking: no confirmation in progress")
	ErrInvalidSnapshot  = errors.New("booking: invalid flow snapshot")
)

// Catalog supplies the externally owned lists the intake step selects from.
type Catalog interface {
	ListServices(ctx context.Context, clientID string) ([]Service, error)
	ListStylists(ctx context.Context, clientID string) ([]Stylist, error)
}

// Dependencies are the collaborators shared by every flow of a process.
type Dependencies struct {
	Catalog  Catalog
	Slots    SlotFetcher
	Creator  AppointmentCreator
	Events   EventSink
	Observer Observer
	Logger   *logging.Logger
	Timeout  time.Duration
	Now      func() time.Time
	// Location is the salon's zone for deciding what "today" is. When nil
	// the zone of Now is used.
	Location *time.Location
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Events == nil {
		d.Events = nopSink{}
	}
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	if d.Timeout <= 0 {
		d.Timeout = DefaultRequestTimeout
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// State is a read-only copy of a flow for rendering.
type State struct {
	ID                 string                `json:"id"`
	ClientID           string                `json:"client_id"`
	Step               Step                  `json:"step"`
	Draft              Draft                 `json:"draft"`
	Slots              SlotSnapshot          `json:"-"`
	FieldErrors        FieldErrors           `json:"field_errors,omitempty"`
	Service            *Service              `json:"service,omitempty"`
	Stylist            *Stylist              `json:"stylist,omitempty"`
	Confirmation       *ConfirmationSnapshot `json:"confirmation,omitempty"`
	View               *View                 `json:"view,omitempty"`
	SubmissionInFlight bool                  `json:"submission_in_flight"`
	Version            uint64                `json:"version"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// Flow is one customer's booking session: details, then payment, then
// confirmation. All methods are safe for concurrent use.
type Flow struct {
	id        string
	clientID  string
	deps      Dependencies
	logger    *logging.Logger
	inbox     *Inbox
	slots     *SlotResolver
	submitter *Submitter

	mu               sync.Mutex
	step             Step
	draft            Draft
	step1            *Details
	service          *Service
	stylist          *Stylist
	confirmedService *Service
	confirmedStylist *Stylist
	confirmation     *Confirmation
	fieldErrors      FieldErrors
	createdAt        time.Time
	updatedAt        time.Time

	watchMu  sync.Mutex
	version  uint64
	watchers map[int]chan struct{}
	nextW    int
}

// NewFlow starts an empty flow for clientID. The tenant is fixed for the
// life of the flow.
func NewFlow(id, clientID string, deps Dependencies) *Flow {
	if strings.TrimSpace(clientID) == "" {
		panic("booking: client id required")
	}
	if deps.Catalog == nil || deps.Slots == nil || deps.Creator == nil {
		panic("booking: catalog, slot fetcher and creator are required")
	}
	deps = deps.withDefaults()
	f := &Flow{
		id:       id,
		clientID: clientID,
		deps:     deps,
		logger:   deps.Logger.WithClient(clientID).With("session_id", id),
		inbox:    NewInbox(20),
		step:     StepDetails,
		draft:    NewDraft(),
		watchers: make(map[int]chan struct{}),
	}
	f.slots = NewSlotResolver(clientID, deps.Slots,
		WithSlotTimeout(deps.Timeout),
		WithSlotObserver(deps.Observer),
		WithSlotLogger(f.logger),
		WithSlotChangeHook(f.bump),
	)
	f.submitter = NewSubmitter(deps.Creator, f.inbox,
		WithSubmitTimeout(deps.Timeout),
		WithSubmitObserver(deps.Observer),
		WithSubmitClock(deps.Now),
	)
	now := deps.Now().UTC()
	f.createdAt, f.updatedAt = now, now
	return f
}

// ID returns the session id.
func (f *Flow) ID() string { return f.id }

// ClientID returns the tenant the flow belongs to.
func (f *Flow) ClientID() string { return f.clientID }

// SetService selects a service from the tenant's catalog.
func (f *Flow) SetService(ctx context.Context, serviceID string) error {
	return f.ApplyDetails(ctx, DetailsUpdate{ServiceID: &serviceID})
}

// SetStylist selects a stylist, or AnyStylist.
func (f *Flow) SetStylist(ctx context.Context, stylistID string) error {
	return f.ApplyDetails(ctx, DetailsUpdate{StylistID: &stylistID})
}

// ContactUpdate carries optional intake field changes. Nil fields are left
// untouched.
type ContactUpdate struct {
	ClientName        *string
	ClientEmail       *string
	ClientPhone       *string
	SpecialRequests   *string
	EmailConfirmation *bool
	SMSConfirmation   *bool
}

// UpdateContact applies contact and preference changes.
func (f *Flow) UpdateContact(u ContactUpdate) error {
	return f.ApplyDetails(context.Background(), DetailsUpdate{ContactUpdate: u})
}

// DetailsUpdate is one edit of the details step. Nil fields are left
// untouched.
type DetailsUpdate struct {
	ServiceID *string
	StylistID *string
	ContactUpdate
}

// ApplyDetails resolves the service and stylist against the catalog before
// touching the draft, so an edit is applied whole or not at all.
func (f *Flow) ApplyDetails(ctx context.Context, u DetailsUpdate) error {
	var service *Service
	if u.ServiceID != nil {
		found, err := f.lookupService(ctx, strings.TrimSpace(*u.ServiceID))
		if err != nil {
			return err
		}
		service = found
	}
	var stylistID string
	var stylist *Stylist
	if u.StylistID != nil {
		stylistID = strings.TrimSpace(*u.StylistID)
		found, err := f.lookupStylist(ctx, stylistID)
		if err != nil {
			return err
		}
		stylist = found
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepDetails {
		return ErrWrongStep
	}
	if service != nil {
		f.draft.ServiceID = service.ID
		f.service = service
	}
	if u.StylistID != nil {
		f.draft.StylistID = stylistID
		f.stylist = stylist
	}
	c := u.ContactUpdate
	if c.ClientName != nil {
		f.draft.ClientName = *c.ClientName
	}
	if c.ClientEmail != nil {
		f.draft.ClientEmail = *c.ClientEmail
	}
	if c.ClientPhone != nil {
		f.draft.ClientPhone = *c.ClientPhone
	}
	if c.SpecialRequests != nil {
		f.draft.SpecialRequests = *c.SpecialRequests
	}
	if c.EmailConfirmation != nil {
		f.draft.EmailConfirmation = *c.EmailConfirmation
	}
	if c.SMSConfirmation != nil {
		f.draft.SMSConfirmation = *c.SMSConfirmation
	}
	f.touchLocked()
	return nil
}

func (f *Flow) lookupService(ctx context.Context, serviceID string) (*Service, error) {
	services, err := f.deps.Catalog.ListServices(ctx, f.clientID)
	if err != nil {
		return nil, fmt.Errorf("booking: list services: %w", err)
	}
	for i := range services {
		if services[i].ID == serviceID {
			svc := services[i]
			return &svc, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownService, serviceID)
}

// lookupStylist returns nil for AnyStylist.
func (f *Flow) lookupStylist(ctx context.Context, stylistID string) (*Stylist, error) {
	if stylistID == AnyStylist {
		return nil, nil
	}
	stylists, err := f.deps.Catalog.ListStylists(ctx, f.clientID)
	if err != nil {
		return nil, fmt.Errorf("booking: list stylists: %w", err)
	}
	for i := range stylists {
		if stylists[i].ID == stylistID {
			st := stylists[i]
			return &st, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStylist, stylistID)
}

// SelectDate sets the appointment date, clears the chosen slot and starts a
// slot fetch for the new date. The channel closes when that fetch settles.
func (f *Flow) SelectDate(ctx context.Context, d Date) (<-chan struct{}, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, d.String())
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepDetails {
		return nil, ErrWrongStep
	}
	now := f.deps.Now()
	if f.deps.Location != nil {
		now = now.In(f.deps.Location)
	}
	today := DateOf(now)
	if d.Before(today) {
		return nil, fmt.Errorf("%w: %s", ErrPastDate, d.String())
	}
	f.draft.AppointmentDate = d
	f.draft.TimeSlot = ""
	f.touchLocked()
	return f.slots.Select(ctx, d), nil
}

// SelectSlot chooses a start time from the slot set of the selected date.
func (f *Flow) SelectSlot(token string) error {
	t, err := ParseTimeOfDay(token, Format24h)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepDetails {
		return ErrWrongStep
	}
	if !f.slots.Current().Set().Contains(f.draft.AppointmentDate, t.Format24()) {
		return fmt.Errorf("%w: %s on %s", ErrSlotNotAvailable, t.Format24(), f.draft.AppointmentDate.String())
	}
	f.draft.TimeSlot = t.Format24()
	f.touchLocked()
	return nil
}

// Continue validates the details step and, when valid, freezes a copy of it
// and moves to the payment step. Validation failures are returned as
// FieldErrors.
func (f *Flow) Continue() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepDetails {
		return ErrWrongStep
	}
	details, errs := ValidateDetails(f.draft, f.slots.Current().Set())
	if len(errs) > 0 {
		f.fieldErrors = errs
		f.touchLocked()
		return errs
	}
	frozen := details
	f.step1 = &frozen
	f.fieldErrors = nil
	f.step = StepPayment
	f.touchLocked()
	return nil
}

// Back returns to the previous step without discarding anything entered.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.step {
	case StepPayment:
		f.step = StepDetails
	case StepConfirmation:
		if f.confirmation == nil {
			return ErrNoConfirmation
		}
		switch f.confirmation.State() {
		case StateAwaitingPayment, StateFailed, StatePendingCreation:
			f.confirmation.Abandon()
			f.confirmation = nil
			f.confirmedService, f.confirmedStylist = nil, nil
			f.step = StepPayment
		default:
			return ErrWrongStep
		}
	default:
		return ErrWrongStep
	}
	f.fieldErrors = nil
	f.touchLocked()
	return nil
}

// SetPaymentMethod records the payment preference.
func (f *Flow) SetPaymentMethod(m PaymentMethod) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepPayment {
		return ErrWrongStep
	}
	f.draft.PaymentMethod = m
	f.touchLocked()
	return nil
}

// Submit validates the payment step, merges it with the frozen details and
// enters the confirmation, which starts creation when allowed. Validation
// failures are returned as FieldErrors and nothing is sent.
func (f *Flow) Submit(ctx context.Context) (<-chan struct{}, error) {
	f.mu.Lock()
	if f.step != StepPayment || f.step1 == nil {
		f.mu.Unlock()
		return nil, ErrWrongStep
	}
	choice, errs := ValidatePayment(f.draft.PaymentMethod)
	if len(errs) > 0 {
		f.fieldErrors = errs
		f.touchLocked()
		f.mu.Unlock()
		f.deps.Events.BookingAttempted(ctx, Attempt{
			ClientID:      f.clientID,
			SessionID:     f.id,
			Outcome:       "invalid",
			InvalidFields: errs.Fields(),
		})
		return nil, errs
	}

	sub := Merge(*f.step1, choice)
	conf := NewConfirmation(f.clientID, sub, "", f.submitter,
		OnConfirmationChange(f.bump),
	)
	conf.onSettled = f.settledFor(conf)
	f.confirmation = conf
	if f.service != nil {
		svc := *f.service
		f.confirmedService = &svc
	}
	if f.stylist != nil {
		st := *f.stylist
		f.confirmedStylist = &st
	}
	f.fieldErrors = nil
	f.step = StepConfirmation
	f.touchLocked()
	f.mu.Unlock()

	f.logger.Info("booking submitted", "payment_method", sub.PaymentMethod, "date", sub.Date, "start_time", sub.StartTime)
	return conf.Enter(ctx), nil
}

// EnterConfirmation is called whenever the confirmation is rendered. It
// auto-triggers creation at most once.
func (f *Flow) EnterConfirmation(ctx context.Context) (<-chan struct{}, error) {
	conf, err := f.currentConfirmation()
	if err != nil {
		return nil, err
	}
	return conf.Enter(ctx), nil
}

// RecordPayment applies the processor result for an online booking and
// re-enters the confirmation.
func (f *Flow) RecordPayment(ctx context.Context, status PaymentStatus) (<-chan struct{}, error) {
	conf, err := f.currentConfirmation()
	if err != nil {
		return nil, err
	}
	if err := conf.RecordPayment(status); err != nil {
		return nil, err
	}
	return conf.Enter(ctx), nil
}

// Retry re-attempts creation after a failure.
func (f *Flow) Retry(ctx context.Context) (<-chan struct{}, error) {
	conf, err := f.currentConfirmation()
	if err != nil {
		return nil, err
	}
	return conf.Retry(ctx)
}

func (f *Flow) currentConfirmation() (*Confirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepConfirmation || f.confirmation == nil {
		return nil, ErrNoConfirmation
	}
	return f.confirmation, nil
}

// Reset discards everything and starts over. Late results for the discarded
// state are dropped.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmation != nil {
		f.confirmation.Abandon()
	}
	f.confirmation = nil
	f.confirmedService, f.confirmedStylist = nil, nil
	f.resetDraftLocked()
	f.step = StepDetails
	f.touchLocked()
}

func (f *Flow) resetDraftLocked() {
	f.draft = NewDraft()
	f.step1 = nil
	f.service = nil
	f.stylist = nil
	f.fieldErrors = nil
	f.slots.Clear()
}

func (f *Flow) settledFor(conf *Confirmation) SettledFunc {
	return func(ctx context.Context, appt Appointment, err error) {
		sub := conf.Snapshot()
		attempt := Attempt{
			ClientID:      f.clientID,
			SessionID:     f.id,
			PaymentMethod: sub.Submission.PaymentMethod,
		}
		if err != nil {
			attempt.Outcome = SubmitOutcomeFailure
			attempt.Error = err.Error()
			f.logger.Warn("appointment creation failed", "error", err, "attempt", sub.Attempts)
			f.deps.Events.BookingAttempted(ctx, attempt)
			return
		}
		attempt.Outcome = SubmitOutcomeSuccess
		attempt.AppointmentID = appt.ID
		f.deps.Events.BookingAttempted(ctx, attempt)

		f.mu.Lock()
		if f.confirmation != conf {
			f.mu.Unlock()
			return
		}
		view, verr := f.viewLocked(sub)
		f.resetDraftLocked()
		f.touchLocked()
		f.mu.Unlock()

		f.logger.Info("appointment created", "appointment_id", appt.ID)
		if verr != nil {
			f.logger.Warn("confirmation view unavailable", "appointment_id", appt.ID, "error", verr)
		}
		f.deps.Events.BookingCreated(ctx, Created{
			ClientID:    f.clientID,
			SessionID:   f.id,
			Appointment: appt,
			Submission:  sub.Submission,
			View:        view,
		})
	}
}

// View renders the confirmation of a created appointment.
func (f *Flow) View() (View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmation == nil {
		return View{}, ErrNoConfirmation
	}
	return f.viewLocked(f.confirmation.Snapshot())
}

func (f *Flow) viewLocked(snap ConfirmationSnapshot) (View, error) {
	if snap.State != StateCreated || snap.Appointment == nil {
		return View{}, ErrNotCreated
	}
	svc := Service{ID: snap.Submission.ServiceID}
	if f.confirmedService != nil {
		svc = *f.confirmedService
	}
	return BuildView(*snap.Appointment, svc, f.confirmedStylist, snap.Submission.PaymentMethod, snap.PaymentStatus)
}

// State returns a copy of the flow for rendering.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := State{
		ID:                 f.id,
		ClientID:           f.clientID,
		Step:               f.step,
		Draft:              f.draft,
		Slots:              f.slots.Current(),
		SubmissionInFlight: f.submitter.InFlight(),
		UpdatedAt:          f.updatedAt,
		Version:            f.Version(),
	}
	if len(f.fieldErrors) > 0 {
		st.FieldErrors = FieldErrors{}.Merge(f.fieldErrors)
	}
	if f.service != nil {
		svc := *f.service
		st.Service = &svc
	}
	if f.stylist != nil {
		sty := *f.stylist
		st.Stylist = &sty
	}
	if f.confirmation != nil {
		snap := f.confirmation.Snapshot()
		st.Confirmation = &snap
		if v, err := f.viewLocked(snap); err == nil {
			st.View = &v
		}
	}
	return st
}

// Notifications drains the unread user-visible notifications.
func (f *Flow) Notifications() []Notification {
	return f.inbox.Drain()
}

// UpdatedAt returns the time of the last mutation.
func (f *Flow) UpdatedAt() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updatedAt
}

// CreationPending reports whether a creation request is still running. Such a
// flow must stay in memory: a restored copy would not know about it.
func (f *Flow) CreationPending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitter.InFlight() {
		return true
	}
	return f.confirmation != nil && f.confirmation.State() == StateCreating
}

func (f *Flow) touchLocked() {
	f.updatedAt = f.deps.Now().UTC()
	f.bump()
}

// Version increases on every observable change.
func (f *Flow) Version() uint64 {
	f.watchMu.Lock()
	defer f.watchMu.Unlock()
	return f.version
}

// Watch returns a channel signalled after changes, and a cancel func.
// Signals coalesce: a slow reader sees at least one signal per burst.
func (f *Flow) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	f.watchMu.Lock()
	id := f.nextW
	f.nextW++
	f.watchers[id] = ch
	f.watchMu.Unlock()
	return ch, func() {
		f.watchMu.Lock()
		delete(f.watchers, id)
		f.watchMu.Unlock()
	}
}

func (f *Flow) bump() {
	f.watchMu.Lock()
	defer f.watchMu.Unlock()
	f.version++
	for _, ch := range f.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
