package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Breaker defaults.
const (
	DefaultThreshold = 3
	DefaultCooldown  = 30 * time.Second
)

// ErrOpenCircuit is matched by every error Do returns while the circuit refuses calls.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// OpenError reports a refused call and how long until the next trial is allowed.
type OpenError struct {
	Target  string
	RetryIn time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("resilience: %s circuit open, retry in %s", e.Target, e.RetryIn.Round(time.Millisecond))
}

// Is makes errors.Is(err, ErrOpenCircuit) hold.
func (e *OpenError) Is(target error) bool { return target == ErrOpenCircuit }

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as an answer from a healthy remote (a 4xx, a bad request). Do
// returns it unchanged but does not count it against the circuit.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// State is the circuit position.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker guards one remote dependency. Threshold consecutive failures open it for
// Cooldown. The first call after the cooldown runs alone as a trial while other
// callers are refused; its outcome closes the circuit or opens it again. The zero
// value is ready to use with the defaults above.
type Breaker struct {
	Target    string
	Threshold int
	Cooldown  time.Duration
	Logger    zerolog.Logger
	Metrics   *Metrics
	Now       func() time.Time

	mu       sync.Mutex
	state    State
	streak   int
	openedAt time.Time
	trial    bool
}

// Do runs fn unless the circuit is open. Errors wrapped with Permanent and context
// cancellations pass through without moving the circuit. A nil Breaker just runs fn.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if b == nil {
		err := fn(ctx)
		var perm permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		return err
	}
	if err := b.acquire(ctx); err != nil {
		return err
	}
	err := fn(ctx)
	var perm permanentError
	switch {
	case err == nil:
		b.settle(ctx, true, false)
	case errors.As(err, &perm):
		b.settle(ctx, true, false)
		return perm.err
	case ctx.Err() != nil:
		b.settle(ctx, false, true)
	default:
		b.settle(ctx, false, false)
	}
	return err
}

// State returns the current position. An open circuit whose cooldown has passed still
// reads Open until the next call starts its trial.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) acquire(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Open:
		wait := b.cooldown() - b.now().Sub(b.openedAt)
		if wait > 0 {
			return &OpenError{Target: b.target(), RetryIn: wait}
		}
		b.moveLocked(ctx, HalfOpen)
		b.trial = true
		return nil
	case HalfOpen:
		if b.trial {
			return &OpenError{Target: b.target()}
		}
		b.trial = true
		return nil
	default:
		return nil
	}
}

// settle records an outcome. An abandoned call (the caller's context ended) frees a
// half-open trial slot without deciding anything.
func (b *Breaker) settle(ctx context.Context, ok, abandoned bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == HalfOpen {
		b.trial = false
		switch {
		case abandoned:
		case ok:
			b.moveLocked(ctx, Closed)
		default:
			b.moveLocked(ctx, Open)
		}
		return
	}
	if abandoned || b.state != Closed {
		return
	}
	if ok {
		b.streak = 0
		return
	}
	b.streak++
	if b.streak >= b.threshold() {
		b.moveLocked(ctx, Open)
	}
}

func (b *Breaker) moveLocked(ctx context.Context, next State) {
	prev := b.state
	b.state = next
	b.streak = 0
	if next == Open {
		b.openedAt = b.now()
	}
	target := b.target()
	b.Metrics.transition(target, prev, next)
	evt := b.Logger.Info().Str("target", target).Str("from_state", prev.String()).Str("to_state", next.String())
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Msg("breaker_transition")
}

func (b *Breaker) threshold() int {
	if b.Threshold <= 0 {
		return DefaultThreshold
	}
	return b.Threshold
}

func (b *Breaker) cooldown() time.Duration {
	if b.Cooldown <= 0 {
		return DefaultCooldown
	}
	return b.Cooldown
}

func (b *Breaker) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b *Breaker) target() string {
	if b.Target == "" {
		return "default"
	}
	return b.Target
}
