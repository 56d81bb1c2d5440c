package adapter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygate/relaygate/internal/domain"
	"github.com/relaygate/relaygate/internal/domain/domaintest"
	"github.com/relaygate/relaygate/internal/gateway/adapter"
)

func newTestBreaker(t *testing.T, threshold int, recovery time.Duration) (*adapter.Breaker, *domaintest.FakeClock) {
	t.Helper()

	clock := domaintest.NewFakeClock(time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC))
	b := adapter.NewBreaker(adapter.BreakerConfig{
		FailureThreshold: threshold,
		RecoveryTimeout:  recovery,
		Clock:            clock,
	})
	return b, clock
}

func allowErr(b *adapter.Breaker) error {
	_, err := b.Allow()
	return err
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(t, 3, 30*time.Second)

	require.NoError(t, allowErr(b))
	b.OnFailure()
	require.NoError(t, allowErr(b))
	b.OnFailure()
	assert.Equal(t, adapter.StateClosed, b.State(), "two failures stay below threshold")

	require.NoError(t, allowErr(b))
	b.OnFailure()
	assert.Equal(t, adapter.StateOpen, b.State(), "third consecutive failure opens the circuit")
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(t, 3, 30*time.Second)

	b.OnFailure()
	b.OnFailure()
	b.OnSuccess()
	b.OnFailure()
	b.OnFailure()

	assert.Equal(t, adapter.StateClosed, b.State(),
		"failures are consecutive; a success in between resets the count")
}

func TestBreaker_OpenRejectsBeforeRecoveryTimeout(t *testing.T) {
	b, clock := newTestBreaker(t, 1, 30*time.Second)

	b.OnFailure()
	require.Equal(t, adapter.StateOpen, b.State())

	assert.ErrorIs(t, allowErr(b), domain.ErrCircuitOpen)

	clock.Advance(29 * time.Second)
	assert.ErrorIs(t, allowErr(b), domain.ErrCircuitOpen, "still inside the recovery window")
}

func TestBreaker_ProbeAfterRecoveryTimeout(t *testing.T) {
	b, clock := newTestBreaker(t, 1, 30*time.Second)

	b.OnFailure()
	clock.Advance(31 * time.Second)

	probe, err := b.Allow()
	require.NoError(t, err, "first call after the timeout is the probe")
	assert.True(t, probe, "the admission is flagged as a probe")
	assert.Equal(t, adapter.StateHalfOpen, b.State(), "transition happens before invocation")

	assert.ErrorIs(t, allowErr(b), domain.ErrCircuitOpen,
		"only one probe is admitted while it is in flight")
}

func TestBreaker_ProbeSuccessCloses(t *testing.T) {
	b, clock := newTestBreaker(t, 1, 30*time.Second)

	b.OnFailure()
	clock.Advance(31 * time.Second)
	require.NoError(t, allowErr(b))

	b.OnSuccess()

	assert.Equal(t, adapter.StateClosed, b.State())

	probe, err := b.Allow()
	assert.NoError(t, err)
	assert.False(t, probe, "calls through a closed circuit are not probes")
}

func TestBreaker_ProbeFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(t, 1, 30*time.Second)

	b.OnFailure()
	clock.Advance(31 * time.Second)
	require.NoError(t, allowErr(b))

	b.OnFailure()

	assert.Equal(t, adapter.StateOpen, b.State())
	assert.ErrorIs(t, allowErr(b), domain.ErrCircuitOpen)

	// The recovery timeout restarts from the probe failure.
	clock.Advance(29 * time.Second)
	assert.ErrorIs(t, allowErr(b), domain.ErrCircuitOpen)
	clock.Advance(2 * time.Second)
	assert.NoError(t, allowErr(b))
}

func TestBreaker_Defaults(t *testing.T) {
	b := adapter.NewBreaker(adapter.BreakerConfig{})

	assert.Equal(t, adapter.StateClosed, b.State())
	assert.NoError(t, allowErr(b))
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", adapter.StateClosed.String())
	assert.Equal(t, "open", adapter.StateOpen.String())
	assert.Equal(t, "half_open", adapter.StateHalfOpen.String())
}
