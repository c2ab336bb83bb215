package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"smart-led-controller/backend/internal/reading"
)

type BreakerSettings struct {
	// Failures is the number of consecutive append failures that opens the breaker.
	Failures uint32
	// OpenFor is how long the breaker stays open before a trial append.
	OpenFor time.Duration
	// OnStateChange, if set, receives the new state name.
	OnStateChange func(state string)
}

// ResilientSink stops hammering an unreachable store: once open, appends fail fast
// with ErrStoreUnavailable until the trial window.
type ResilientSink struct {
	next Sink
	cb   *gobreaker.CircuitBreaker
}

func NewResilientSink(l *slog.Logger, next Sink, s BreakerSettings) *ResilientSink {
	if s.Failures == 0 {
		s.Failures = 3
	}
	l = l.With(slog.String("component", "store-breaker"))

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "store-append",
		MaxRequests: 1,
		Timeout:     s.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.Failures
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			l.Warn("store breaker state changed", slog.String("from", from.String()), slog.String("to", to.String()))
			if s.OnStateChange != nil {
				s.OnStateChange(to.String())
			}
		},
	})

	return &ResilientSink{next: next, cb: cb}
}

func (r *ResilientSink) Append(ctx context.Context, rd reading.Reading) error {
	_, err := r.cb.Execute(func() (any, error) {
		return nil, r.next.Append(ctx, rd)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return unavailable(err)
	}
	return err
}

// State is one of "closed", "half-open" or "open".
func (r *ResilientSink) State() string {
	return r.cb.State().String()
}
