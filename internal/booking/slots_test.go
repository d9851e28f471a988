package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotResolverDiscardsSupersededFetch(t *testing.T) {
	fetcher := newGatedFetcher()
	obs := newCountingObserver()
	r := NewSlotResolver("client-1", fetcher, WithSlotObserver(obs))
	d1 := mustDate(t, "2025-12-24")
	d2 := mustDate(t, "2025-12-25")

	first := r.Select(context.Background(), d1)
	fetcher.waitCall(t)
	second := r.Select(context.Background(), d2)
	fetcher.waitCall(t)

	// d2 resolves first, then the stale d1 response arrives.
	fetcher.release(t, d2, []string{"10:00", "11:00"}, nil)
	waitDone(t, second)
	fetcher.release(t, d1, []string{"09:00"}, nil)
	waitDone(t, first)

	snap := r.Current()
	assert.Equal(t, d2, snap.Date)
	assert.Equal(t, SlotReady, snap.State)
	require.Len(t, snap.Slots, 2)
	assert.Equal(t, "10:00", snap.Slots[0].Format24())
	assert.Equal(t, 1, obs.slotCount(SlotOutcomeDiscarded))
	assert.Equal(t, 1, obs.slotCount(SlotOutcomeReady))
}

func TestSlotResolverStaleResponseAfterNewerKeepsNewer(t *testing.T) {
	fetcher := newGatedFetcher()
	r := NewSlotResolver("client-1", fetcher)
	d1 := mustDate(t, "2025-12-24")
	d2 := mustDate(t, "2025-12-25")

	first := r.Select(context.Background(), d1)
	fetcher.waitCall(t)
	second := r.Select(context.Background(), d2)
	fetcher.waitCall(t)

	// The stale fetch fails; the error must not leak into the new date.
	fetcher.release(t, d1, nil, errBackendDown)
	waitDone(t, first)
	assert.Equal(t, SlotLoading, r.Current().State)

	fetcher.release(t, d2, []string{}, nil)
	waitDone(t, second)
	assert.Equal(t, SlotEmpty, r.Current().State)
}

func TestSlotResolverEmptyAndErrorAreDistinct(t *testing.T) {
	d := mustDate(t, "2025-12-25")

	empty := NewSlotResolver("client-1", &staticFetcher{tokens: map[Date][]string{d: {}}})
	waitDone(t, empty.Select(context.Background(), d))
	emptySnap := empty.Current()

	failing := NewSlotResolver("client-1", &staticFetcher{err: errBackendDown})
	waitDone(t, failing.Select(context.Background(), d))
	errSnap := failing.Current()

	assert.Equal(t, SlotEmpty, emptySnap.State)
	assert.Equal(t, MessageNoAvailability, emptySnap.Message)
	assert.Equal(t, SlotError, errSnap.State)
	assert.Equal(t, MessageSlotFetchFailed, errSnap.Message)
	assert.NotEqual(t, emptySnap.Message, errSnap.Message)
	assert.Empty(t, errSnap.Set().Slots)
}

func TestSlotResolverNormalizesTokens(t *testing.T) {
	d := mustDate(t, "2025-12-25")
	r := NewSlotResolver("client-1", &staticFetcher{tokens: map[Date][]string{
		d: {"14:00", "9:30", "bogus", "14:00", "10:00:00"},
	}})
	waitDone(t, r.Select(context.Background(), d))

	snap := r.Current()
	require.Equal(t, SlotReady, snap.State)
	var got []string
	for _, s := range snap.Slots {
		got = append(got, s.Format24())
	}
	assert.Equal(t, []string{"09:30", "10:00", "14:00"}, got)
}

func TestSlotResolverAllTokensUnparseableIsError(t *testing.T) {
	d := mustDate(t, "2025-12-25")
	r := NewSlotResolver("client-1", &staticFetcher{tokens: map[Date][]string{d: {"noon"}}})
	waitDone(t, r.Select(context.Background(), d))
	assert.Equal(t, SlotError, r.Current().State)
}

func TestSlotResolverTimeoutIsError(t *testing.T) {
	fetcher := newGatedFetcher()
	r := NewSlotResolver("client-1", fetcher, WithSlotTimeout(20*time.Millisecond))
	d := mustDate(t, "2025-12-25")

	waitDone(t, r.Select(context.Background(), d))
	assert.Equal(t, SlotError, r.Current().State)
}

func TestSlotResolverClearDropsInFlight(t *testing.T) {
	fetcher := newGatedFetcher()
	r := NewSlotResolver("client-1", fetcher)
	d := mustDate(t, "2025-12-25")

	done := r.Select(context.Background(), d)
	fetcher.waitCall(t)
	r.Clear()
	fetcher.release(t, d, []string{"10:00"}, nil)
	waitDone(t, done)

	assert.Equal(t, SlotIdle, r.Current().State)
	assert.True(t, r.Current().Date.IsZero())
}

func TestSlotResolverCallerCancelDoesNotAbortFetch(t *testing.T) {
	d := mustDate(t, "2025-12-25")
	fetcher := newGatedFetcher()
	r := NewSlotResolver("client-1", fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	done := r.Select(ctx, d)
	fetcher.waitCall(t)
	cancel()
	fetcher.release(t, d, []string{"10:00"}, nil)
	waitDone(t, done)

	assert.Equal(t, SlotReady, r.Current().State)
}
