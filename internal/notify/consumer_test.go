package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/scheduled-pros/internal/events"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

type memoryDeduper struct {
	seen map[string]bool
	err  error
}

func (m *memoryDeduper) AlreadyProcessed(_ context.Context, consumer, eventID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.seen[consumer+"/"+eventID], nil
}

func (m *memoryDeduper) MarkProcessed(_ context.Context, consumer, eventID string) (bool, error) {
	key := consumer + "/" + eventID
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

type countingObserver map[string]int

func (o countingObserver) ObserveConfirmation(channel, status string) {
	o[channel+":"+status]++
}

func bookingEnvelope(t *testing.T, evt events.BookingCreatedV1) events.Envelope {
	t.Helper()
	env, err := events.NewEnvelope(evt.ClientID, evt, events.WithEventID(uuid.MustParse("6f1c2b1e-8d4f-4a38-9b7e-2d0a9f3c1e55")))
	require.NoError(t, err)
	return env
}

func TestConsumerDispatchesOnceAcrossRedelivery(t *testing.T) {
	email := &recordingEmail{}
	sms := &recordingSMS{}
	dedupe := &memoryDeduper{seen: map[string]bool{}}
	obs := countingObserver{}
	c := NewConsumer(NewDispatcher(email, sms, logging.New("error")), dedupe, obs, logging.New("error"))

	env := bookingEnvelope(t, sampleEvent())
	require.NoError(t, c.HandleEnvelope(context.Background(), env))
	require.NoError(t, c.HandleEnvelope(context.Background(), env))

	assert.Len(t, email.msgs, 1)
	assert.Len(t, sms.to, 1)
	assert.Equal(t, 1, obs["email:sent"])
	assert.Equal(t, 1, obs["sms:sent"])
	assert.Equal(t, 1, obs["any:duplicate"])
}

func TestConsumerFailureIsRetried(t *testing.T) {
	email := &recordingEmail{err: errors.New("smtp down")}
	dedupe := &memoryDeduper{seen: map[string]bool{}}
	obs := countingObserver{}
	c := NewConsumer(NewDispatcher(email, &recordingSMS{}, nil), dedupe, obs, nil)

	err := c.HandleEnvelope(context.Background(), bookingEnvelope(t, sampleEvent()))
	require.Error(t, err)
	assert.Empty(t, dedupe.seen)
	assert.Equal(t, 1, obs["email:failed"])
	assert.Equal(t, 1, obs["sms:sent"])
}

func TestConsumerIgnoresOtherEventsAndBadPayloads(t *testing.T) {
	email := &recordingEmail{}
	c := NewConsumer(NewDispatcher(email, nil, nil), nil, nil, nil)

	other := events.Envelope{EventID: uuid.New(), EventType: "booking.cancelled.v1", ClientID: "client-1", Payload: json.RawMessage(`{}`)}
	require.NoError(t, c.HandleEnvelope(context.Background(), other))

	bad := events.Envelope{EventID: uuid.New(), EventType: events.TypeBookingCreatedV1, ClientID: "client-1", Payload: json.RawMessage(`"nope"`)}
	require.NoError(t, c.HandleEnvelope(context.Background(), bad))
	assert.Empty(t, email.msgs)
}

func TestConsumerDedupeLookupError(t *testing.T) {
	c := NewConsumer(NewDispatcher(&recordingEmail{}, nil, nil), &memoryDeduper{err: errors.New("db down")}, nil, nil)
	err := c.HandleEnvelope(context.Background(), bookingEnvelope(t, sampleEvent()))
	require.Error(t, err)
}

func TestConsumerActsAsOutboxHandler(t *testing.T) {
	email := &recordingEmail{}
	c := NewConsumer(NewDispatcher(email, nil, nil), nil, nil, nil)
	evt := sampleEvent()
	evt.SMSConfirmation = false

	require.NoError(t, c.Handle(context.Background(), events.OutboxEntry{Envelope: bookingEnvelope(t, evt)}))
	assert.Len(t, email.msgs, 1)
}
