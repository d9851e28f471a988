package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/wolfman30/scheduled-pros/internal/events"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

type scriptedConsumer struct {
	fail map[string]bool
	seen []string
}

func (s *scriptedConsumer) HandleEnvelope(_ context.Context, env events.Envelope) error {
	s.seen = append(s.seen, env.ClientID)
	if s.fail[env.ClientID] {
		return errors.New("send failed")
	}
	return nil
}

func messageBody(t *testing.T, clientID string) string {
	t.Helper()
	body, err := json.Marshal(events.Envelope{
		EventID:   uuid.New(),
		EventType: events.TypeBookingCreatedV1,
		ClientID:  clientID,
		Payload:   json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(body)
}

func TestHandleReportsOnlyFailedRecords(t *testing.T) {
	consumer := &scriptedConsumer{fail: map[string]bool{"salon-2": true}}
	evt := lambdaevents.SQSEvent{Records: []lambdaevents.SQSMessage{
		{MessageId: "m1", Body: messageBody(t, "salon-1")},
		{MessageId: "m2", Body: messageBody(t, "salon-2")},
		{MessageId: "m3", Body: "not json"},
	}}

	resp := handle(context.Background(), consumer, logging.New("error"), evt)

	if len(consumer.seen) != 2 {
		t.Fatalf("expected two parsed envelopes, got %v", consumer.seen)
	}
	if len(resp.BatchItemFailures) != 1 || resp.BatchItemFailures[0].ItemIdentifier != "m2" {
		t.Fatalf("expected only m2 to fail, got %+v", resp.BatchItemFailures)
	}
}

func TestHandleEmptyBatch(t *testing.T) {
	resp := handle(context.Background(), &scriptedConsumer{}, logging.New("error"), lambdaevents.SQSEvent{})
	if len(resp.BatchItemFailures) != 0 {
		t.Fatalf("expected no failures, got %+v", resp.BatchItemFailures)
	}
}
