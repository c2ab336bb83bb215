package store

import (
	"context"
	"errors"

	"smart-led-controller/backend/internal/reading"
)

// Tee appends to every sink in order and reports all failures together.
type Tee []Sink

func (t Tee) Append(ctx context.Context, r reading.Reading) error {
	var errs []error
	for _, s := range t {
		if err := s.Append(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
