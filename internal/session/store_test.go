package session

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/scheduled-pros/internal/booking"
)

func sampleSnapshot(id string) booking.FlowSnapshot {
	draft := booking.NewDraft()
	draft.ClientName = "Ada Lovelace"
	draft.AppointmentDate = booking.Date{Year: 2025, Month: 12, Day: 25}
	return booking.FlowSnapshot{
		ID:       id,
		ClientID: "client-1",
		Step:     booking.StepDetails,
		Draft:    draft,
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSnapshot("s1")))
	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Draft.ClientName)
	assert.Equal(t, "2025-12-25", got.Draft.AppointmentDate.String())

	now = now.Add(2 * time.Minute)
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Save(ctx, sampleSnapshot("s2")))
	require.NoError(t, store.Delete(ctx, "s2"))
	_, err = store.Load(ctx, "s2")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(rdb, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSnapshot("s1")))
	assert.True(t, mr.Exists("booking_session:s1"))
	assert.Equal(t, time.Minute, mr.TTL("booking_session:s1"))

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "client-1", got.ClientID)

	mr.FastForward(2 * time.Minute)
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

type mockDynamo struct {
	items map[string]map[string]types.AttributeValue
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func (m *mockDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	id := in.Item["sessionId"].(*types.AttributeValueMemberS).Value
	m.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	id := in.Key["sessionId"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: m.items[id]}, nil
}

func (m *mockDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	id := in.Key["sessionId"].(*types.AttributeValueMemberS).Value
	delete(m.items, id)
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDynamoStore(t *testing.T) {
	client := newMockDynamo()
	store := NewDynamoStore(client, "booking-sessions", time.Hour)
	now := time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSnapshot("s1")))
	item := client.items["s1"]
	require.NotNil(t, item)
	assert.Equal(t, "client-1", item["clientId"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "details", item["step"].(*types.AttributeValueMemberS).Value)

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Draft.ClientName)

	now = now.Add(2 * time.Hour)
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
