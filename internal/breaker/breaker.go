// Package breaker wraps sony/gobreaker around the strategies' REST calls
// and WebSocket reconnect attempts. A venue that starts failing
// consistently trips its breaker and short-circuits further attempts for
// a cooldown window instead of hammering a degraded API.
package breaker

import (
	"time"

	gobreaker "github.com/sony/gobreaker"
)

// Breaker trips after 3 consecutive failures, or once total failures
// exceed 5% of at least 20 requests in the rolling interval.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New builds a breaker named for the (venue, purpose) pair it protects,
// e.g. "binance:poll" or "binance:ws-connect".
func New(name string) *Breaker {
	settings := gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 3 {
				return true
			}
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs fn through the breaker, returning its result or
// gobreaker.ErrOpenState if the breaker is currently open.
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	return b.cb.Execute(fn)
}

// State reports the breaker's current state, for health reporting.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
