package paapi

import (
	"sync"
	"time"
)

// breakerState mirrors the classic closed/open/half-open circuit breaker
// states used elsewhere in the pack's provider clients.
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// breakerConfig configures failure sensitivity and recovery timing.
type breakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	BaseBackoff      time.Duration
	MaxBackoff       time.Duration
}

func defaultBreakerConfig() breakerConfig {
	return breakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		BaseBackoff:      1 * time.Second,
		MaxBackoff:       2 * time.Minute,
	}
}

// circuitBreaker trips after a run of consecutive failures and recovers
// through a half-open probe, same as the teacher's provider clients. This
// one sits in front of the Remote API Client specifically; the Rate
// Governor's throttle back-off (internal/ratelimit) is a separate,
// vendor-signalled mechanism and the two are not merged.
type circuitBreaker struct {
	mu               sync.Mutex
	state            breakerState
	failures         int
	lastStateChange  time.Time
	consecutiveWaits int
	config           breakerConfig
}

func newCircuitBreaker(config breakerConfig) *circuitBreaker {
	return &circuitBreaker{state: breakerClosed, config: config}
}

func (cb *circuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case breakerOpen:
		if time.Since(cb.lastStateChange) > cb.config.ResetTimeout {
			cb.state = breakerHalfOpen
			cb.lastStateChange = time.Now()
			return true
		}
		return false
	default:
		return true
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.consecutiveWaits = 0
	if cb.state == breakerHalfOpen {
		cb.state = breakerClosed
		cb.lastStateChange = time.Now()
	}
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++

	if cb.state == breakerHalfOpen {
		cb.state = breakerOpen
		cb.lastStateChange = time.Now()
		cb.consecutiveWaits++
		return
	}

	if cb.failures >= cb.config.FailureThreshold {
		cb.state = breakerOpen
		cb.lastStateChange = time.Now()
		cb.consecutiveWaits++
	}
}

func (cb *circuitBreaker) backoff() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.consecutiveWaits == 0 {
		return cb.config.BaseBackoff
	}
	waits := cb.consecutiveWaits
	const maxShift = 10
	if waits > maxShift {
		waits = maxShift
	}
	backoff := cb.config.BaseBackoff * time.Duration(1<<uint(waits-1))
	if backoff > cb.config.MaxBackoff {
		backoff = cb.config.MaxBackoff
	}
	return backoff
}

func (cb *circuitBreaker) State() breakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
