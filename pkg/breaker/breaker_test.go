package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("down")

func fail() error    { return errDown }
func succeed() error { return nil }

func newTestBreaker(clock *time.Time) *Breaker {
	b := New("gateway", 2, time.Minute)
	b.now = func() time.Time { return *clock }
	return b
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	clock := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	b := newTestBreaker(&clock)

	assert.ErrorIs(t, b.Call(fail), errDown)
	assert.Equal(t, StateClosed, b.State())
	assert.ErrorIs(t, b.Call(fail), errDown)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	clock := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	b := newTestBreaker(&clock)

	_ = b.Call(fail)
	require.NoError(t, b.Call(succeed))
	_ = b.Call(fail)

	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	clock := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	b := newTestBreaker(&clock)
	_ = b.Call(fail)
	_ = b.Call(fail)

	clock = clock.Add(2 * time.Minute)
	require.NoError(t, b.Call(succeed))
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Call(succeed))
	require.NoError(t, b.Call(succeed))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	b := newTestBreaker(&clock)
	_ = b.Call(fail)
	_ = b.Call(fail)

	clock = clock.Add(2 * time.Minute)
	assert.ErrorIs(t, b.Call(fail), errDown)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_IgnoredErrorsDoNotTrip(t *testing.T) {
	clock := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	b := newTestBreaker(&clock)
	business := func(err error) bool { return errors.Is(err, errDown) }

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, b.Call(fail, business), errDown)
	}
	assert.Equal(t, StateClosed, b.State())
}
