package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleRateLimiterSpacesActions(t *testing.T) {
	r := NewSimpleRateLimiter(30*time.Millisecond, 30*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, r.Wait(ctx))

	start := time.Now()
	require.NoError(t, r.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestSimpleRateLimiterContextCancel(t *testing.T) {
	r := NewSimpleRateLimiter(time.Minute, time.Minute)

	require.NoError(t, r.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAdaptiveBackoffOnErrors(t *testing.T) {
	a := NewAdaptiveRateLimiter(2*time.Second, 4*time.Second)

	for i := 0; i < 3; i++ {
		a.RecordError()
	}

	assert.Equal(t, 3*time.Second, a.minDelay)
	assert.Equal(t, 6*time.Second, a.maxDelay)
}

func TestAdaptiveSpeedupOnSuccess(t *testing.T) {
	a := NewAdaptiveRateLimiter(10*time.Second, 20*time.Second)

	for i := 0; i < 6; i++ {
		a.RecordSuccess()
	}

	assert.Equal(t, 9*time.Second, a.minDelay)
}

func TestAdaptiveBackoffCapped(t *testing.T) {
	a := NewAdaptiveRateLimiter(50*time.Second, 110*time.Second)

	for i := 0; i < 3; i++ {
		a.RecordError()
	}

	assert.Equal(t, 60*time.Second, a.minDelay)
	assert.Equal(t, 120*time.Second, a.maxDelay)
}
