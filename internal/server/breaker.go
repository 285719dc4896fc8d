// breaker.go - Circuit breaker around the object storage mirror.
//
// When the mirror keeps failing, uploads stop waiting on it until a cool-down
// has passed; one probe request then decides whether to close again.
package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"file-drop/internal/logging"
)

// CircuitState represents the current state of a circuit breaker.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker opens after maxFailures consecutive failures and lets a
// single probe through once cooldown has elapsed.
type CircuitBreaker struct {
	mu          sync.Mutex
	name        string
	maxFailures int
	cooldown    time.Duration
	log         *logging.Logger
	now         func() time.Time

	state    CircuitState
	failures int
	openedAt time.Time
	probing  bool
}

func NewCircuitBreaker(name string, maxFailures int, cooldown time.Duration, log *logging.Logger) *CircuitBreaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	if log == nil {
		log = logging.Default()
	}
	return &CircuitBreaker{
		name:        name,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		log:         log,
		now:         time.Now,
	}
}

// Execute runs fn unless the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.admit() {
		return ErrCircuitOpen
	}
	err := fn()
	cb.report(err)
	return err
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			return false
		}
		cb.state = StateHalfOpen
		cb.probing = true
		cb.log.Info("circuit breaker half-open", map[string]any{"name": cb.name})
		return true
	case StateHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	}
	return true
}

func (cb *CircuitBreaker) report(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		if cb.state != StateClosed {
			cb.log.Info("circuit breaker closed", map[string]any{"name": cb.name})
		}
		cb.state = StateClosed
		cb.failures = 0
		cb.probing = false
		return
	}

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
		if cb.state != StateOpen {
			cb.log.Warn("circuit breaker opened", map[string]any{
				"name":     cb.name,
				"failures": cb.failures,
				"cooldown": cb.cooldown.String(),
			})
		}
		cb.state = StateOpen
		cb.openedAt = cb.now()
		cb.probing = false
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// guardedMirror sends Put through a circuit breaker. Check bypasses it so
// health reports always reflect the real bucket.
type guardedMirror struct {
	Mirror
	breaker *CircuitBreaker
}

func newGuardedMirror(m Mirror, cb *CircuitBreaker) *guardedMirror {
	return &guardedMirror{Mirror: m, breaker: cb}
}

func (g *guardedMirror) Put(ctx context.Context, localPath, objectName string) error {
	return g.breaker.Execute(func() error {
		return g.Mirror.Put(ctx, localPath, objectName)
	})
}
