package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"smart-led-controller/backend/internal/control"
	"smart-led-controller/backend/internal/store"
)

const (
	SeedSpan = 24 * time.Hour
	SeedStep = 5 * time.Minute
)

// SeedHistory backfills a day of readings ending at end when st holds none. It returns
// how many readings were written.
func SeedHistory(ctx context.Context, l *slog.Logger, st store.Store, gen *control.Generator, end time.Time, loc *time.Location) (int, error) {
	sum, err := st.Summarize(ctx, store.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count readings: %w", err)
	}
	if sum.Count > 0 {
		l.Debug("store already has readings, skipping seed", slog.Int("count", sum.Count))
		return 0, nil
	}

	rs := control.History(gen, end, SeedSpan, SeedStep, loc)
	for i, r := range rs {
		if err := st.Append(ctx, r); err != nil {
			return i, fmt.Errorf("failed to seed reading %d: %w", i, err)
		}
	}

	l.Info("seeded reading history", slog.Int("count", len(rs)), slog.Duration("span", SeedSpan))
	return len(rs), nil
}
