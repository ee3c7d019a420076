package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestBucket(cfg Config) (*Bucket, *time.Time) {
	b := NewBucket(cfg)
	clock := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return clock }
	b.lastRefill = clock
	return b, &clock
}

func TestAcquire_ConsumesToken(t *testing.T) {
	b, _ := newTestBucket(Config{MaxTokens: 2, RefillRatePerSecond: 1, InitialTokens: 2})

	require.NoError(t, b.Acquire(context.Background()))
	require.NoError(t, b.Acquire(context.Background()))
	require.InDelta(t, 0, b.Snapshot().Tokens, 0.001)
}

func TestAcquire_BlocksUntilRefill(t *testing.T) {
	b, clock := newTestBucket(Config{MaxTokens: 1, RefillRatePerSecond: 10, InitialTokens: 0})

	done := make(chan error, 1)
	go func() { done <- b.Acquire(context.Background()) }()

	select {
	case <-done:
		t.Fatalf("acquire returned before any token was available")
	case <-time.After(50 * time.Millisecond):
	}

	*clock = clock.Add(time.Second)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("acquire did not return after refill")
	}
}

func TestAcquire_ContextCancel(t *testing.T) {
	b, _ := newTestBucket(Config{MaxTokens: 1, RefillRatePerSecond: 0.001, InitialTokens: 0})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := b.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUpdateFromHeaders_ClampsToMinuteRemaining(t *testing.T) {
	b, _ := newTestBucket(Config{MaxTokens: 30, RefillRatePerSecond: 0.5, InitialTokens: 30})

	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "3")
	b.UpdateFromHeaders(h)

	require.InDelta(t, 3, b.Snapshot().Tokens, 0.001)
}

func TestUpdateFromHeaders_DailyRemainingNeverIncreases(t *testing.T) {
	b, _ := newTestBucket(Config{MaxTokens: 30, RefillRatePerSecond: 0.5, InitialTokens: 30})

	h := http.Header{}
	h.Set("x-ratelimit-requests-remaining", "80")
	b.UpdateFromHeaders(h)
	require.Equal(t, 80, b.Snapshot().DailyRemaining)

	h.Set("x-ratelimit-requests-remaining", "95")
	b.UpdateFromHeaders(h)
	require.Equal(t, 80, b.Snapshot().DailyRemaining)

	h.Set("x-ratelimit-requests-remaining", "60")
	b.UpdateFromHeaders(h)
	require.Equal(t, 60, b.Snapshot().DailyRemaining)
}

func TestEmergencyStop_TripsOnNextAcquire(t *testing.T) {
	b, _ := newTestBucket(Config{
		MaxTokens:              10,
		RefillRatePerSecond:    1,
		InitialTokens:          10,
		EmergencyStopThreshold: 50,
	})

	h := http.Header{}
	h.Set("x-ratelimit-requests-remaining", "49")
	b.UpdateFromHeaders(h)

	err := b.Acquire(context.Background())
	require.ErrorIs(t, err, ErrEmergencyStop)
	require.True(t, b.Snapshot().EmergencyStop)

	b.Reset()
	require.NoError(t, b.Acquire(context.Background()))
}

func TestEmergencyStop_NotTrippedAtThreshold(t *testing.T) {
	b, _ := newTestBucket(Config{
		MaxTokens:              10,
		RefillRatePerSecond:    1,
		InitialTokens:          10,
		EmergencyStopThreshold: 50,
	})

	h := http.Header{}
	h.Set("x-ratelimit-requests-remaining", "50")
	b.UpdateFromHeaders(h)

	require.NoError(t, b.Acquire(context.Background()))
}
