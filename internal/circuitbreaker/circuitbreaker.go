// Package circuitbreaker stops calling an event sink that keeps failing and
// probes it again after a recovery timeout.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/TheJudgeY/FoodDiary-sub001/internal/metrics"
)

// State of a breaker.
//
//	Closed -> Open:      MaxFailures consecutive failures
//	Open -> HalfOpen:    RecoveryTimeout elapsed since the circuit opened
//	HalfOpen -> Closed:  a probe succeeds
//	HalfOpen -> Open:    a probe fails
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
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

// Config holds the configuration for a CircuitBreaker.
type Config struct {
	// Name labels logs and metrics, e.g. "sqs" or "sns".
	Name string

	MaxFailures     int
	RecoveryTimeout time.Duration

	// HalfOpenMaxRequests caps concurrent probes while half-open.
	HalfOpenMaxRequests int
}

// DefaultConfig returns the defaults used for event publishers.
func DefaultConfig(name string) Config {
	return Config{
		Name:                name,
		MaxFailures:         5,
		RecoveryTimeout:     30 * time.Second,
		HalfOpenMaxRequests: 1,
	}
}

// CircuitBreaker is safe for concurrent use.
type CircuitBreaker struct {
	mu     sync.Mutex
	config Config
	logger *zap.Logger
	now    func() time.Time

	state    State
	failures int // consecutive, counted while closed
	openedAt time.Time
	probes   int // in flight while half-open
	rejected int64
}

func New(cfg Config, logger *zap.Logger) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}

	metrics.SetCircuitBreakerState(cfg.Name, int(StateClosed))
	return &CircuitBreaker{
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// Do runs fn unless the circuit is open and feeds its result back into the
// breaker. A rejected call returns ErrCircuitOpen without running fn.
func (cb *CircuitBreaker) Do(fn func() error) error {
	if err := cb.acquire(); err != nil {
		return err
	}
	err := fn()
	cb.release(err == nil)
	return err
}

func (cb *CircuitBreaker) acquire() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.RecoveryTimeout {
		cb.setState(StateHalfOpen)
		cb.logger.Info("circuit breaker probing sink", zap.String("name", cb.config.Name))
	}

	switch cb.state {
	case StateOpen:
		cb.rejected++
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.probes >= cb.config.HalfOpenMaxRequests {
			cb.rejected++
			return ErrCircuitOpen
		}
		cb.probes++
	}
	return nil
}

func (cb *CircuitBreaker) release(ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		if ok {
			cb.failures = 0
			return
		}
		cb.failures++
		if cb.failures >= cb.config.MaxFailures {
			cb.logger.Warn("circuit breaker opened",
				zap.String("name", cb.config.Name),
				zap.Int("failures", cb.failures),
			)
			cb.setState(StateOpen)
		}

	case StateHalfOpen:
		if ok {
			cb.logger.Info("circuit breaker closed, sink recovered", zap.String("name", cb.config.Name))
			cb.setState(StateClosed)
		} else {
			cb.logger.Warn("circuit breaker re-opened, probe failed", zap.String("name", cb.config.Name))
			cb.setState(StateOpen)
		}

	case StateOpen:
		// a call admitted before the circuit opened; its result is stale
	}
}

// setState must be called with the lock held.
func (cb *CircuitBreaker) setState(s State) {
	if cb.state == s {
		return
	}
	cb.state = s
	cb.failures = 0
	cb.probes = 0
	if s == StateOpen {
		cb.openedAt = cb.now()
	}
	metrics.SetCircuitBreakerState(cb.config.Name, int(s))
}

// State returns the stored state; an open circuit only turns half-open on
// the next call.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats is a point-in-time view of a breaker, reported by /health.
type Stats struct {
	Name     string     `json:"name"`
	State    string     `json:"state"`
	Failures int        `json:"consecutive_failures"`
	Rejected int64      `json:"rejected"`
	OpenedAt *time.Time `json:"opened_at,omitempty"`
}

func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s := Stats{
		Name:     cb.config.Name,
		State:    cb.state.String(),
		Failures: cb.failures,
		Rejected: cb.rejected,
	}
	if cb.state != StateClosed {
		opened := cb.openedAt
		s.OpenedAt = &opened
	}
	return s
}
