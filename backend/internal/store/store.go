// Package store persists Readings and answers windowed queries over them.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smart-led-controller/backend/internal/reading"
)

// ErrStoreUnavailable wraps every failure to reach the store when appending or
// connecting. Callers on the control path log it and carry on.
var ErrStoreUnavailable = errors.New("store unavailable")

// QueryError reports a failed read. It is surfaced to callers as-is.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func unavailable(err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

type Order int

const (
	NewestFirst Order = iota
	OldestFirst
)

// Query selects readings with From <= timestamp < To. Zero bounds are open and a zero
// Limit means no limit.
type Query struct {
	From   time.Time
	To     time.Time
	Order  Order
	Limit  int
	Offset int
}

func (q Query) matches(ts time.Time) bool {
	if !q.From.IsZero() && ts.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !ts.Before(q.To) {
		return false
	}
	return true
}

// Summary is the count and totals of a window.
type Summary struct {
	Count       int
	EnergyWatts float64
	PWMSum      float64
}

type Sink interface {
	Append(ctx context.Context, r reading.Reading) error
}

type Source interface {
	Query(ctx context.Context, q Query) ([]reading.Reading, error)
	Summarize(ctx context.Context, q Query) (Summary, error)
}

type Store interface {
	Sink
	Source
	Ping(ctx context.Context) error
	Close() error
}

// Latest returns the most recent reading, or nil when the store is empty.
func Latest(ctx context.Context, src Source) (*reading.Reading, error) {
	rs, err := src.Query(ctx, Query{Order: NewestFirst, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rs) == 0 {
		return nil, nil
	}
	return &rs[0], nil
}
