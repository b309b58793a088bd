package redis

import (
	"errors"
	"sync"
	"time"

	"github.com/defense-allies/eventcore"
)

// circuitBreakerState is the standard three-state machine (closed → open
// → half-open), scoped down to the one thing the store needs: stop
// hitting a flapping Redis on every append/read instead of piling up
// latency.
type circuitBreakerState int

const (
	breakerClosed circuitBreakerState = iota
	breakerOpen
	breakerHalfOpen
)

type circuitBreaker struct {
	failureThreshold int
	recoveryTimeout  time.Duration

	mu              sync.Mutex
	state           circuitBreakerState
	failureCount    int
	lastFailureTime time.Time
}

func newCircuitBreaker(failureThreshold int, recoveryTimeout time.Duration) *circuitBreaker {
	return &circuitBreaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
}

var errCircuitOpen = newStoreError("circuit breaker open", nil)

func (cb *circuitBreaker) call(fn func() error) error {
	if !cb.allow() {
		return errCircuitOpen
	}
	err := fn()
	if err != nil {
		// A Conflict is the optimistic-concurrency check rejecting an
		// expected_version that lost a race, not a Redis failure — a
		// stream under legitimate concurrent writers can produce many of
		// these in a row without Redis itself being unhealthy, so it must
		// never count toward tripping the breaker.
		if errors.Is(err, eventcore.ErrConflict) {
			cb.recordSuccess()
			return err
		}
		cb.recordFailure()
		return err
	}
	cb.recordSuccess()
	return nil
}

func (cb *circuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == breakerOpen && time.Since(cb.lastFailureTime) >= cb.recoveryTimeout {
		cb.state = breakerHalfOpen
	}
	return cb.state != breakerOpen
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.state = breakerClosed
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	cb.lastFailureTime = time.Now()
	if cb.failureCount >= cb.failureThreshold {
		cb.state = breakerOpen
	}
}
