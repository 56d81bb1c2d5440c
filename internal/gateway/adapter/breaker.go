package adapter

import (
	"sync"
	"time"

	"github.com/relaygate/relaygate/internal/domain"
)

// CircuitState is the breaker's position in its state machine.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

// String returns the state name for logs and metrics labels.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes one circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit.
	FailureThreshold int

	// RecoveryTimeout is how long the circuit stays open before a single
	// probe is let through.
	RecoveryTimeout time.Duration

	Clock domain.Clock
}

// Breaker is the per-target circuit breaker. All mutable fields live behind
// one mutex so every transition is a single serialized step; the state is
// process-local, protecting this replica without fleet-wide coordination.
//
// CLOSED  -> OPEN       when consecutive failures reach the threshold.
// OPEN    -> HALF_OPEN  after the recovery timeout, for exactly one probe
//                       call; all other calls stay rejected.
// HALF_OPEN -> CLOSED   when the probe succeeds (counters reset).
// HALF_OPEN -> OPEN     when the probe fails (timeout restarts).
type Breaker struct {
	mu            sync.Mutex
	state         CircuitState
	failures      int
	lastFailureAt time.Time

	threshold int
	recovery  time.Duration
	clock     domain.Clock
}

// NewBreaker creates a closed Breaker. Zero config fields fall back to the
// domain defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = domain.BreakerFailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = domain.BreakerRecoveryTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = domain.RealClock{}
	}
	return &Breaker{
		state:     StateClosed,
		threshold: cfg.FailureThreshold,
		recovery:  cfg.RecoveryTimeout,
		clock:     cfg.Clock,
	}
}

// Allow decides whether a call may proceed. It returns a nil error for
// allowed calls; the OPEN->HALF_OPEN transition happens here, before
// invocation, and admits exactly one probe, reported via probe. A probe call
// must invoke the upstream exactly once, so callers disable retries for it.
// Rejected calls get domain.ErrCircuitOpen and the upstream is never
// invoked.
func (b *Breaker) Allow() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return false, nil
	case StateOpen:
		if b.clock.Now().Sub(b.lastFailureAt) > b.recovery {
			b.state = StateHalfOpen
			return true, nil
		}
		return false, domain.ErrCircuitOpen
	case StateHalfOpen:
		// A probe is already in flight.
		return false, domain.ErrCircuitOpen
	default:
		return false, domain.ErrCircuitOpen
	}
}

// OnSuccess records a successful call outcome.
func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.state = StateClosed
}

// OnFailure records a failed call outcome.
func (b *Breaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailureAt = b.clock.Now()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.state = StateOpen
		}
	case StateHalfOpen:
		// Failed probe: reopen, timeout restarts from now.
		b.state = StateOpen
	case StateOpen:
		// Late failure from a call admitted before the trip.
	}
}

// State reports the current state, for logs and tests.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
