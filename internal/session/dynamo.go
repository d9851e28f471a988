package session

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/wolfman30/scheduled-pros/internal/booking"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// sessionRecord is the DynamoDB item. The snapshot is stored as a JSON
// string; expiresAt is the table's TTL attribute.
type sessionRecord struct {
	SessionID string `dynamodbav:"sessionId"`
	ClientID  string `dynamodbav:"clientId"`
	Step      string `dynamodbav:"step"`
	Payload   string `dynamodbav:"payload"`
	UpdatedAt string `dynamodbav:"updatedAt"`
	ExpiresAt int64  `dynamodbav:"expiresAt"`
}

// DynamoStore keeps snapshots in a DynamoDB table keyed by sessionId.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

// NewDynamoStore creates a DynamoDB-backed store.
func NewDynamoStore(client dynamoAPI, tableName string, ttl time.Duration) *DynamoStore {
	if client == nil {
		panic("session: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("session: table name cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &DynamoStore{client: client, tableName: tableName, ttl: ttl, now: time.Now}
}

func (s *DynamoStore) Save(ctx context.Context, snap booking.FlowSnapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	item, err := attributevalue.MarshalMap(sessionRecord{
		SessionID: snap.ID,
		ClientID:  snap.ClientID,
		Step:      string(snap.Step),
		Payload:   string(data),
		UpdatedAt: now.Format(time.RFC3339Nano),
		ExpiresAt: now.Add(s.ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("session: marshal record: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("session: persist snapshot: %w", err)
	}
	return nil
}

func (s *DynamoStore) Load(ctx context.Context, sessionID string) (booking.FlowSnapshot, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(sessionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return booking.FlowSnapshot{}, fmt.Errorf("session: load snapshot: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return booking.FlowSnapshot{}, ErrSessionNotFound
	}
	var rec sessionRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return booking.FlowSnapshot{}, fmt.Errorf("session: unmarshal record: %w", err)
	}
	// DynamoDB TTL deletion is lazy; expired items can still be returned.
	if rec.ExpiresAt > 0 && s.now().Unix() > rec.ExpiresAt {
		return booking.FlowSnapshot{}, ErrSessionNotFound
	}
	return decodeSnapshot([]byte(rec.Payload))
}

func (s *DynamoStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(sessionID),
	}); err != nil {
		return fmt.Errorf("session: delete snapshot: %w", err)
	}
	return nil
}

func (s *DynamoStore) key(sessionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"sessionId": &types.AttributeValueMemberS{Value: sessionID},
	}
}
