package receipts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wolfman30/scheduled-pros/internal/booking"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

// ErrNotFound is returned when no receipt exists for a confirmation.
var ErrNotFound = errors.New("receipts: not found")

// Store keeps confirmation views addressed by tenant and confirmation number.
type Store interface {
	Put(ctx context.Context, clientID string, v booking.View) error
	Get(ctx context.Context, clientID, confirmationNumber string) (booking.View, error)
}

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store writes receipts as JSON objects.
type S3Store struct {
	bucket string
	client S3API
	logger *logging.Logger
}

// NewS3Store creates an S3-backed store.
func NewS3Store(client S3API, bucket string, logger *logging.Logger) *S3Store {
	if client == nil {
		panic("receipts: s3 client cannot be nil")
	}
	if bucket == "" {
		panic("receipts: bucket cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &S3Store{bucket: bucket, client: client, logger: logger}
}

func receiptKey(clientID, confirmationNumber string) string {
	return fmt.Sprintf("receipts/v1/%s/%s.json", url.PathEscape(clientID), url.PathEscape(confirmationNumber))
}

func (s *S3Store) Put(ctx context.Context, clientID string, v booking.View) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("receipts: marshal view: %w", err)
	}
	key := receiptKey(clientID, v.ConfirmationNumber)
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return fmt.Errorf("receipts: s3 put %s: %w", key, err)
	}
	s.logger.Info("stored receipt", "client_id", clientID, "confirmation_number", v.ConfirmationNumber, "s3_key", key)
	return nil
}

func (s *S3Store) Get(ctx context.Context, clientID, confirmationNumber string) (booking.View, error) {
	key := receiptKey(clientID, confirmationNumber)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return booking.View{}, ErrNotFound
		}
		return booking.View{}, fmt.Errorf("receipts: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return booking.View{}, fmt.Errorf("receipts: read %s: %w", key, err)
	}
	var v booking.View
	if err := json.Unmarshal(data, &v); err != nil {
		return booking.View{}, fmt.Errorf("receipts: decode %s: %w", key, err)
	}
	return v, nil
}

// MemoryStore keeps receipts in process, for when no bucket is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]booking.View
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]booking.View)}
}

func (m *MemoryStore) Put(_ context.Context, clientID string, v booking.View) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[receiptKey(clientID, v.ConfirmationNumber)] = v
	return nil
}

func (m *MemoryStore) Get(_ context.Context, clientID, confirmationNumber string) (booking.View, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[receiptKey(clientID, confirmationNumber)]
	if !ok {
		return booking.View{}, ErrNotFound
	}
	return v, nil
}
