package breaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tair/course-settlement/pkg/logger"
)

// ErrOpen is returned without calling fn while the breaker is open
var ErrOpen = errors.New("circuit breaker is open")

// State represents the state of a circuit breaker
type State string

const (
	StateClosed   State = "closed"    // Normal operation
	StateOpen     State = "open"      // Blocking calls
	StateHalfOpen State = "half-open" // Probing recovery
)

// Breaker guards calls to one downstream dependency
type Breaker struct {
	name             string
	maxFailures      int           // Consecutive failures before opening
	timeout          time.Duration // Time open before probing
	successThreshold int           // Half-open successes before closing
	state            State
	failures         int
	successCount     int
	lastFailureTime  time.Time
	lastStateChange  time.Time
	now              func() time.Time
	mu               sync.Mutex
}

// New creates a closed breaker
func New(name string, maxFailures int, timeout time.Duration) *Breaker {
	b := &Breaker{
		name:             name,
		maxFailures:      maxFailures,
		timeout:          timeout,
		successThreshold: 3,
		state:            StateClosed,
		now:              time.Now,
	}
	b.lastStateChange = b.now()
	return b
}

// Call executes fn unless the breaker is open. Errors for which ignore
// returns true pass through without counting as failures.
func (b *Breaker) Call(fn func() error, ignore ...func(error) bool) error {
	b.mu.Lock()
	if b.state == StateOpen && b.now().Sub(b.lastStateChange) > b.timeout {
		b.setState(StateHalfOpen)
		b.successCount = 0
	}
	state := b.state
	b.mu.Unlock()

	if state == StateOpen {
		return fmt.Errorf("%w: %s", ErrOpen, b.name)
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil && !ignored(err, ignore) {
		b.onFailure()
	} else {
		b.onSuccess()
	}
	return err
}

func ignored(err error, ignore []func(error) bool) bool {
	for _, fn := range ignore {
		if fn(err) {
			return true
		}
	}
	return false
}

func (b *Breaker) onFailure() {
	b.failures++
	b.lastFailureTime = b.now()

	if b.state == StateHalfOpen {
		b.setState(StateOpen)
		logger.Logger.Warn().
			Str("circuit", b.name).
			Msg("Circuit breaker reopened after half-open failure")
		return
	}
	if b.failures >= b.maxFailures && b.state == StateClosed {
		b.setState(StateOpen)
		logger.Logger.Error().
			Str("circuit", b.name).
			Int("failures", b.failures).
			Int("threshold", b.maxFailures).
			Msg("Circuit breaker opened")
	}
}

func (b *Breaker) onSuccess() {
	switch b.state {
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.successThreshold {
			b.setState(StateClosed)
			b.failures = 0
			b.successCount = 0
			logger.Logger.Info().
				Str("circuit", b.name).
				Msg("Circuit breaker closed after successful recovery")
		}
	case StateClosed:
		b.failures = 0
	}
}

func (b *Breaker) setState(s State) {
	b.state = s
	b.lastStateChange = b.now()
	breakerState.WithLabelValues(b.name).Set(stateValue(s))
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns breaker statistics for health reporting
func (b *Breaker) Stats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	return map[string]interface{}{
		"name":              b.name,
		"state":             b.state,
		"failures":          b.failures,
		"max_failures":      b.maxFailures,
		"last_failure_time": b.lastFailureTime,
		"last_state_change": b.lastStateChange,
	}
}
