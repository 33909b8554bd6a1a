package lookup

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned without contacting the lookup service while the
// breaker is open.
var ErrCircuitOpen = eris.New("lookup: circuit breaker is open")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// circuitBreaker opens after threshold consecutive transient failures and
// lets a single probe through once resetTimeout has elapsed.
type circuitBreaker struct {
	threshold    int
	resetTimeout time.Duration

	mu          sync.Mutex
	state       breakerState
	failures    int
	lastFailure time.Time

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

func newCircuitBreaker(threshold int, resetTimeout time.Duration) *circuitBreaker {
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &circuitBreaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
		nowFunc:      time.Now,
	}
}

func executeBreaker[T any](ctx context.Context, cb *circuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := cb.allow(); err != nil {
		return zero, err
	}
	// A panic in fn counts as a transient failure so a half-open probe
	// cannot leave the breaker stuck.
	defer func() {
		if r := recover(); r != nil {
			cb.record(newTransientError(eris.Errorf("panic: %v", r), 0))
			panic(r)
		}
	}()
	val, err := fn(ctx)
	cb.record(err)
	return val, err
}

func (cb *circuitBreaker) currentState() breakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *circuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case breakerOpen:
		if cb.nowFunc().Sub(cb.lastFailure) < cb.resetTimeout {
			return ErrCircuitOpen
		}
		cb.transition(breakerHalfOpen)
		return nil
	case breakerHalfOpen:
		// One probe at a time.
		return ErrCircuitOpen
	default:
		return nil
	}
}

func (cb *circuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	// Only transport-level trouble counts against the service.
	if err == nil || !IsTransient(err) {
		if cb.state == breakerHalfOpen {
			cb.transition(breakerClosed)
		}
		cb.failures = 0
		return
	}

	cb.failures++
	cb.lastFailure = cb.nowFunc()
	switch cb.state {
	case breakerClosed:
		if cb.failures >= cb.threshold {
			cb.transition(breakerOpen)
		}
	case breakerHalfOpen:
		cb.transition(breakerOpen)
	}
}

func (cb *circuitBreaker) transition(to breakerState) {
	from := cb.state
	cb.state = to
	zap.L().Warn("lookup: circuit breaker state change",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
}
