package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State is the breaker state.
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls are rejected
	StateHalfOpen              // a few trial calls pass through
)

func (s State) String() string {
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

// ErrOpen is returned by Execute while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

// Config tunes a CircuitBreaker.
type Config struct {
	// consecutive failures that open the breaker
	FailureThreshold int
	// half-open successes that close it again
	SuccessThreshold int
	// how long the breaker stays open before trying again
	Timeout time.Duration
	// concurrent trial calls allowed while half-open
	HalfOpenMaxRequests int
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 3,
	}
}

// CircuitBreaker stops calling a failing dependency for a while.
type CircuitBreaker struct {
	config Config
	now    func() time.Time

	mu            sync.Mutex
	state         State
	failureCount  int
	successCount  int
	halfOpenCount int
	lastStateTime time.Time
}

func NewCircuitBreaker(config Config) *CircuitBreaker {
	return &CircuitBreaker{
		config:        config,
		now:           time.Now,
		state:         StateClosed,
		lastStateTime: time.Now(),
	}
}

// Execute runs fn unless the breaker is open, and records its outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	cb.advance()
	switch cb.state {
	case StateOpen:
		cb.mu.Unlock()
		return ErrOpen
	case StateHalfOpen:
		if cb.halfOpenCount >= cb.config.HalfOpenMaxRequests {
			cb.mu.Unlock()
			return ErrOpen
		}
		cb.halfOpenCount++
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
	cb.advance()
	return err
}

// advance applies time and count based transitions. Caller holds mu.
func (cb *CircuitBreaker) advance() {
	now := cb.now()

	switch cb.state {
	case StateOpen:
		if now.Sub(cb.lastStateTime) >= cb.config.Timeout {
			cb.setState(StateHalfOpen, now)
		}
	case StateHalfOpen:
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.setState(StateClosed, now)
		}
	case StateClosed:
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.setState(StateOpen, now)
		}
	}
}

func (cb *CircuitBreaker) setState(s State, now time.Time) {
	cb.state = s
	cb.lastStateTime = now
	cb.halfOpenCount = 0
	cb.successCount = 0
	if s == StateClosed {
		cb.failureCount = 0
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failureCount++
	if cb.state == StateHalfOpen {
		// one failed trial reopens
		cb.setState(StateOpen, cb.now())
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.failureCount = 0
	if cb.state == StateHalfOpen {
		cb.successCount++
		cb.halfOpenCount--
	}
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.advance()
	return cb.state
}

// Reset closes the breaker and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(StateClosed, cb.now())
}
