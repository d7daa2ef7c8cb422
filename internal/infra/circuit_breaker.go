package infra

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BreakerState is the state of a Breaker: closed lets calls through, open
// fails them fast, half-open lets a single probe through.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrBreakerOpen is returned without calling the wrapped function.
var ErrBreakerOpen = errors.New("circuit breaker open")

type BreakerConfig struct {
	FailureThreshold int           // consecutive failures that trip it open
	SuccessThreshold int           // half-open successes needed to close
	OpenTimeout      time.Duration // time spent open before probing
}

// Breaker guards an external dependency (the OCR API) against cascading
// failures.
type Breaker struct {
	name string
	cfg  BreakerConfig
	now  func() time.Time

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
}

func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	return b.state
}

// Do runs fn unless the breaker is open. Context cancellation is not counted
// as a dependency failure.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := fn(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
	switch {
	case err == nil:
		b.succeed()
	case errors.Is(err, context.Canceled):
	default:
		b.fail()
	}
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	switch b.state {
	case BreakerOpen:
		return ErrBreakerOpen
	case BreakerHalfOpen:
		if b.probing {
			return ErrBreakerOpen
		}
		b.probing = true
	}
	return nil
}

// refresh moves open to half-open once the timeout has elapsed. Caller holds mu.
func (b *Breaker) refresh() {
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		b.transition(BreakerHalfOpen)
	}
}

func (b *Breaker) fail() {
	b.failures++
	switch b.state {
	case BreakerClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(BreakerOpen)
		}
	case BreakerHalfOpen:
		b.transition(BreakerOpen)
	}
}

func (b *Breaker) succeed() {
	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.transition(BreakerClosed)
		}
	}
}

func (b *Breaker) transition(to BreakerState) {
	log.Warn().Str("breaker", b.name).Str("from", b.state.String()).Str("to", to.String()).Msg("circuit breaker state change")
	b.state = to
	b.failures = 0
	b.successes = 0
	if to == BreakerOpen {
		b.openedAt = b.now()
	}
}
