package receipts

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/scheduled-pros/internal/booking"
)

func sampleView() booking.View {
	return booking.View{
		ConfirmationNumber: "APT-42",
		ServiceName:        "Color",
		ServicePrice:       "$120.50",
		DurationMinutes:    90,
		StylistName:        "Jordan",
		Date:               "2025-12-25",
		DateTimeDisplay:    "Thursday, December 25, 2025 at 2:30 PM",
		StartTime:          "14:30",
		StartTimeDisplay:   "2:30 PM",
		EndTime:            "16:00",
		EndTimeDisplay:     "4:00 PM",
		CustomerName:       "Ada Lovelace",
		CustomerEmail:      "ada@example.com",
		CustomerPhone:      "5550101234",
		PaymentMethod:      booking.PaymentCash,
		PaymentBadge:       booking.BadgePaymentDue,
	}
}

func TestRenderText(t *testing.T) {
	out := RenderText(sampleView())
	assert.Contains(t, out, "Confirmation #: APT-42")
	assert.Contains(t, out, "Thursday, December 25, 2025 at 2:30 PM")
	assert.Contains(t, out, "2:30 PM - 4:00 PM")
	assert.Contains(t, out, "Payment Due at Appointment")
	assert.NotContains(t, out, "Notes:")
}

type mockS3Client struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
}

func (m *mockS3Client) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, _ := io.ReadAll(in.Body)
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[aws.ToString(in.Key)] = data
	m.puts = append(m.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3Store(t *testing.T) {
	client := &mockS3Client{}
	store := NewS3Store(client, "receipts-bucket", nil)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "client-1", sampleView()))
	require.Len(t, client.puts, 1)
	assert.Equal(t, "receipts/v1/client-1/APT-42.json", aws.ToString(client.puts[0].Key))
	assert.Equal(t, "receipts-bucket", aws.ToString(client.puts[0].Bucket))

	got, err := store.Get(ctx, "client-1", "APT-42")
	require.NoError(t, err)
	assert.Equal(t, sampleView(), got)

	_, err = store.Get(ctx, "client-2", "APT-42")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "client-1", sampleView()))

	got, err := store.Get(context.Background(), "client-1", "APT-42")
	require.NoError(t, err)
	assert.Equal(t, "Color", got.ServiceName)

	_, err = store.Get(context.Background(), "client-1", "APT-43")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShareSigner(t *testing.T) {
	signer, err := NewShareSigner("test-secret", time.Hour)
	require.NoError(t, err)
	now := time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return now }

	token, expires, err := signer.Sign("client-1", "APT-42")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expires)

	claims, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "client-1", claims.ClientID)
	assert.Equal(t, "APT-42", claims.Subject)

	other, err := NewShareSigner("other-secret", time.Hour)
	require.NoError(t, err)
	other.now = signer.now
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidShareToken)

	_, err = signer.Verify(token + "x")
	assert.ErrorIs(t, err, ErrInvalidShareToken)

	now = now.Add(2 * time.Hour)
	_, err = signer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidShareToken)
}

func TestNewShareSignerRequiresSecret(t *testing.T) {
	_, err := NewShareSigner("", time.Hour)
	assert.Error(t, err)
}
