// Package resilience guards calls to upstream services that fail in
// sustained bursts.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrOpen is returned in place of a call that was skipped because the
// breaker is open.
var ErrOpen = eris.New("resilience: circuit open")

// State is the breaker's position.
type State int

const (
	// Closed passes calls through.
	Closed State = iota
	// Open rejects calls until the cooldown elapses.
	Open
	// HalfOpen admits a single probe call.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker counts consecutive failures. Once the threshold is reached, calls
// are rejected for the cooldown period, after which one probe call is
// admitted; its outcome reopens or closes the breaker. Context cancellation
// is the caller hanging up, not an upstream failure, and never counts.
type Breaker struct {
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	failures int
	openedAt time.Time
	probeAt  time.Time
	now      func() time.Time
}

// NewBreaker creates a Breaker. Non-positive arguments fall back to a
// threshold of five failures and a 30 second cooldown.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Allow reports whether a call may proceed. Every allowed call must be
// followed by Record with its outcome.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return true
	}

	// One probe per cooldown window. probeAt keeps a second caller from
	// piling onto the same probe slot.
	now := b.now()
	if now.Sub(b.openedAt) >= b.cooldown && now.Sub(b.probeAt) >= b.cooldown {
		b.probeAt = now
		return true
	}
	return false
}

// Record feeds the outcome of an allowed call back into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.openedAt = b.now()
	}
}

// State returns the breaker's current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return Closed
	}
	if b.now().Sub(b.openedAt) >= b.cooldown {
		return HalfOpen
	}
	return Open
}
