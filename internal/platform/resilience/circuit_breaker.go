package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
)

// ErrCircuitOpen is returned while the breaker fences the upstream off.
var ErrCircuitOpen = errors.New("upstream circuit open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// CircuitBreaker fences the upstream provider after consecutive hard
// failures so a dead API stops eating the daily call quota. After the open
// window it admits a bounded number of probe requests; the probes decide
// whether traffic resumes.
type CircuitBreaker struct {
	mu     sync.Mutex
	cfg    CircuitBreakerConfig
	logger *logging.Logger

	state          CircuitState
	failures       int
	openedAt       time.Time
	probesInFlight int
	probeSuccesses int
	now            func() time.Time
}

// NewCircuitBreaker applies config defaults itself, so a zero
// CircuitBreakerConfig yields a working breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig, logger *logging.Logger) *CircuitBreaker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CircuitBreaker{
		cfg:    cfg.withDefaults(),
		logger: logger,
		state:  CircuitStateClosed,
		now:    time.Now,
	}
}

// Allow reports whether the next upstream call may proceed. In the half-open
// state it also reserves one of the probe slots.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen {
		if b.now().Sub(b.openedAt) < b.cfg.OpenTimeout {
			return ErrCircuitOpen
		}
		b.transition(CircuitStateHalfOpen)
	}

	if b.state == CircuitStateHalfOpen {
		if b.probesInFlight >= b.cfg.HalfOpenMaxReq {
			return ErrCircuitOpen
		}
		b.probesInFlight++
	}

	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failures = 0
	case CircuitStateHalfOpen:
		if b.probesInFlight > 0 {
			b.probesInFlight--
		}
		b.probeSuccesses++
		if b.probeSuccesses >= b.cfg.HalfOpenMaxReq && b.probesInFlight == 0 {
			b.transition(CircuitStateClosed)
		}
	}
}

func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(CircuitStateOpen)
		}
	case CircuitStateHalfOpen:
		if b.probesInFlight > 0 {
			b.probesInFlight--
		}
		// one failed probe reopens the full window
		b.transition(CircuitStateOpen)
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
}

// State reports the effective state: an expired open window already counts as
// half-open even before the next Allow call.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		return CircuitStateHalfOpen
	}
	return b.state
}

// transition moves to the next state and logs the edge. Callers hold the
// lock.
func (b *CircuitBreaker) transition(next CircuitState) {
	prev := b.state
	failures := b.failures
	b.state = next

	switch next {
	case CircuitStateClosed:
		b.failures = 0
		b.openedAt = time.Time{}
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
	b.probesInFlight = 0
	b.probeSuccesses = 0

	b.logger.Info("upstream circuit state changed",
		"from", string(prev), "to", string(next), "failures", failures)
}
