package clients

import (
	"sync"
	"time"
)

// State is the position of a circuit breaker.
type State int

const (
	// StateClosed lets every request through and counts consecutive failures.
	StateClosed State = iota

	// StateOpen rejects requests until the cool-down has passed.
	StateOpen

	// StateHalfOpen admits a limited number of trial requests.
	StateHalfOpen
)

var stateNames = [...]string{
	StateClosed:   "closed",
	StateOpen:     "open",
	StateHalfOpen: "half-open",
}

// String returns the state name used in logs and metric attributes.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}

	return stateNames[s]
}

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	// MaxFailures consecutive failures open the circuit. Values below 1 mean 1.
	MaxFailures int

	// Timeout is the cool-down after opening before trial requests are admitted.
	Timeout time.Duration

	// HalfOpenLimit bounds concurrent trial requests, and that many successes
	// close the circuit again. Values below 1 mean 1.
	HalfOpenLimit int
}

// Transition describes one state change.
type Transition struct {
	From State
	To   State

	// Failures is the closed-state failure streak that opened the circuit.
	// It is zero for every other change.
	Failures int

	At time.Time
}

// BreakerStats is a point-in-time view of a breaker.
type BreakerStats struct {
	State State

	// Failures is the current consecutive failure count while closed.
	Failures int

	// Trips counts how many times the circuit has opened.
	Trips int

	// RetryAt is when an open circuit admits its next trial request.
	// Zero unless the circuit is open.
	RetryAt time.Time
}

// CircuitBreaker stops calls to a remote that keeps failing, so a dead posts
// resource costs one fast rejection per sync instead of a full timeout.
//
//	closed    --MaxFailures in a row-->  open
//	open      --Timeout elapsed------->  half-open
//	half-open --HalfOpenLimit OK------>  closed
//	half-open --any failure----------->  open
type CircuitBreaker struct {
	mu        sync.Mutex
	cfg       CircuitBreakerConfig
	state     State
	failures  int
	successes int
	trials    int
	trips     int
	openedAt  time.Time
	listeners []func(Transition)

	now func() time.Time
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	cfg.MaxFailures = max(cfg.MaxFailures, 1)
	cfg.HalfOpenLimit = max(cfg.HalfOpenLimit, 1)

	return &CircuitBreaker{
		cfg:   cfg,
		state: StateClosed,
		now:   time.Now,
	}
}

// OnTransition registers fn to run after every state change. Listeners run
// synchronously, outside the breaker lock, in registration order.
func (cb *CircuitBreaker) OnTransition(fn func(Transition)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.listeners = append(cb.listeners, fn)
}

// Allow reports whether a request may go out. An open circuit whose cool-down
// has passed moves to half-open and admits the caller as its first trial.
func (cb *CircuitBreaker) Allow() bool {
	var allowed bool

	cb.apply(func() *Transition {
		switch cb.state {
		case StateClosed:
			allowed = true

		case StateOpen:
			if cb.now().Before(cb.openedAt.Add(cb.cfg.Timeout)) {
				return nil
			}

			t := cb.moveTo(StateHalfOpen)
			cb.trials = 1
			allowed = true

			return t

		case StateHalfOpen:
			if cb.trials < cb.cfg.HalfOpenLimit {
				cb.trials++
				allowed = true
			}
		}

		return nil
	})

	return allowed
}

// RecordSuccess resets the failure streak, or counts towards closing a
// half-open circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.apply(func() *Transition {
		switch cb.state {
		case StateClosed:
			cb.failures = 0

		case StateHalfOpen:
			cb.trials--
			cb.successes++

			if cb.successes >= cb.cfg.HalfOpenLimit {
				return cb.moveTo(StateClosed)
			}
		}

		return nil
	})
}

// RecordFailure extends the failure streak, opening the circuit at
// MaxFailures. A failed trial reopens a half-open circuit. Failures of
// requests that were already in flight when the circuit opened are ignored.
func (cb *CircuitBreaker) RecordFailure() {
	cb.apply(func() *Transition {
		switch cb.state {
		case StateClosed:
			cb.failures++

			if cb.failures >= cb.cfg.MaxFailures {
				return cb.moveTo(StateOpen)
			}

		case StateHalfOpen:
			cb.trials--
			return cb.moveTo(StateOpen)
		}

		return nil
	})
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}

// Stats returns a snapshot of the breaker.
func (cb *CircuitBreaker) Stats() BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	stats := BreakerStats{
		State:    cb.state,
		Failures: cb.failures,
		Trips:    cb.trips,
	}

	if cb.state == StateOpen {
		stats.RetryAt = cb.openedAt.Add(cb.cfg.Timeout)
	}

	return stats
}

// apply runs fn under the lock and hands any transition it returns to the
// listeners once the lock is released.
func (cb *CircuitBreaker) apply(fn func() *Transition) {
	cb.mu.Lock()
	t := fn()
	listeners := cb.listeners
	cb.mu.Unlock()

	if t == nil {
		return
	}

	for _, l := range listeners {
		l(*t)
	}
}

// moveTo switches state and resets the counters. Must be called with the lock held.
func (cb *CircuitBreaker) moveTo(to State) *Transition {
	t := &Transition{From: cb.state, To: to, At: cb.now()}

	if to == StateOpen && cb.state == StateClosed {
		t.Failures = cb.failures
	}

	if to == StateOpen {
		cb.trips++
		cb.openedAt = t.At
	}

	cb.state = to
	cb.failures = 0
	cb.successes = 0
	cb.trials = 0

	return t
}
