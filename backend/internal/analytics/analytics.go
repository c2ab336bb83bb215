// Package analytics derives summary statistics from persisted readings. It is read
// only and keeps no state between calls.
package analytics

import (
	"context"
	"math"
	"time"

	"smart-led-controller/backend/internal/reading"
	"smart-led-controller/backend/internal/store"
)

const (
	DefaultDays           = 7
	MaxDays               = 366
	DefaultStabilityLimit = 200
	MaxStabilityLimit     = 5000
)

type Engine struct {
	src store.Source
	loc *time.Location
	now func() time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New returns an engine that buckets hours and days in loc.
func New(src store.Source, loc *time.Location, opts ...Option) *Engine {
	if loc == nil {
		loc = time.Local
	}
	e := &Engine{src: src, loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) startOfDay(t time.Time) time.Time {
	y, m, d := t.In(e.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.loc)
}

// Today returns the current date in the engine's zone.
func (e *Engine) Today() time.Time {
	return e.startOfDay(e.now())
}

// trailing returns the window covering the last days up to and including now.
func (e *Engine) trailing(days int) (time.Time, time.Time) {
	if days <= 0 {
		days = DefaultDays
	}
	days = min(days, MaxDays)
	now := e.now()
	return now.AddDate(0, 0, -days), now.Add(time.Nanosecond)
}

type HourlyBucket struct {
	Hour         int     `json:"hour"`
	AvgOccupancy float64 `json:"avgOccupancy"`
	AvgLux       float64 `json:"avgLux"`
	AvgPWM       float64 `json:"avgPWM"`
	TotalEnergy  float64 `json:"totalEnergy"`
	Count        int     `json:"count"`
}

// HourlyRollup groups the readings of date's calendar day by hour, ascending. Hours
// without readings are absent.
func (e *Engine) HourlyRollup(ctx context.Context, date time.Time) ([]HourlyBucket, error) {
	start := e.startOfDay(date)
	q := store.Query{From: start, To: start.AddDate(0, 0, 1), Order: store.OldestFirst}

	groups, err := store.Aggregate(ctx, e.src, q, func(r reading.Reading) (store.GroupKey, bool) {
		return store.GroupKey{Hour: r.Timestamp.In(e.loc).Hour()}, true
	})
	if err != nil {
		return nil, err
	}

	out := make([]HourlyBucket, 0, len(groups))
	for _, g := range groups {
		out = append(out, HourlyBucket{
			Hour:         g.Key.Hour,
			AvgOccupancy: reading.Round2(g.AvgOccupancy()),
			AvgLux:       reading.Round2(g.AvgLux()),
			AvgPWM:       reading.Round2(g.AvgPWM()),
			TotalEnergy:  reading.Round2(g.EnergySum),
			Count:        g.Count,
		})
	}
	return out, nil
}

type Savings struct {
	SmartEnergy    float64 `json:"smartEnergy"`
	StaticEnergy   float64 `json:"staticEnergy"`
	SavingsPercent float64 `json:"savingsPercent"`
	AvgPWM         float64 `json:"avgPWM"`
	Readings       int     `json:"readings"`
}

// EnergySavings compares actual draw in [start, end) with an always-on-at-max
// baseline. An empty window yields all zeros.
func (e *Engine) EnergySavings(ctx context.Context, start, end time.Time) (Savings, error) {
	sum, err := e.src.Summarize(ctx, store.Query{From: start, To: end})
	if err != nil {
		return Savings{}, err
	}
	if sum.Count == 0 {
		return Savings{}, nil
	}

	static := float64(sum.Count) * reading.MaxWatts
	return Savings{
		SmartEnergy:    reading.Round2(sum.EnergyWatts),
		StaticEnergy:   reading.Round2(static),
		SavingsPercent: roundTo(((static-sum.EnergyWatts)/static)*100, 1),
		AvgPWM:         reading.Round2(sum.PWMSum / float64(sum.Count)),
		Readings:       sum.Count,
	}, nil
}

// EnergySavingsDays covers the trailing window of days ending now.
func (e *Engine) EnergySavingsDays(ctx context.Context, days int) (Savings, error) {
	start, end := e.trailing(days)
	return e.EnergySavings(ctx, start, end)
}

type HeatmapCell struct {
	// DayOfWeek runs from 1 (Sunday) to 7 (Saturday).
	DayOfWeek    int     `json:"dayOfWeek"`
	Hour         int     `json:"hour"`
	AvgOccupancy float64 `json:"avgOccupancy"`
	Count        int     `json:"count"`
}

// OccupancyHeatmap averages occupancy per weekday and hour over the trailing days,
// sorted by (dayOfWeek, hour). Empty cells are absent.
func (e *Engine) OccupancyHeatmap(ctx context.Context, days int) ([]HeatmapCell, error) {
	start, end := e.trailing(days)
	q := store.Query{From: start, To: end, Order: store.OldestFirst}

	groups, err := store.Aggregate(ctx, e.src, q, func(r reading.Reading) (store.GroupKey, bool) {
		ts := r.Timestamp.In(e.loc)
		return store.GroupKey{DayOfWeek: int(ts.Weekday()) + 1, Hour: ts.Hour()}, true
	})
	if err != nil {
		return nil, err
	}

	out := make([]HeatmapCell, 0, len(groups))
	for _, g := range groups {
		out = append(out, HeatmapCell{
			DayOfWeek:    g.Key.DayOfWeek,
			Hour:         g.Key.Hour,
			AvgOccupancy: reading.Round2(g.AvgOccupancy()),
			Count:        g.Count,
		})
	}
	return out, nil
}

type StabilityPoint struct {
	AmbientLux      float64   `json:"ambientLux"`
	LEDContribution float64   `json:"ledContribution"`
	TotalLux        float64   `json:"totalLux"`
	Timestamp       time.Time `json:"timestamp"`
}

// StabilitySample returns the newest limit readings, newest first, with the LED
// contribution recomputed from the stored duty cycle.
func (e *Engine) StabilitySample(ctx context.Context, limit int) ([]StabilityPoint, error) {
	if limit <= 0 {
		limit = DefaultStabilityLimit
	}
	limit = min(limit, MaxStabilityLimit)

	rs, err := e.src.Query(ctx, store.Query{Order: store.NewestFirst, Limit: limit})
	if err != nil {
		return nil, err
	}

	out := make([]StabilityPoint, 0, len(rs))
	for _, r := range rs {
		contribution := reading.LEDContribution(r.LEDOutputPWM)
		out = append(out, StabilityPoint{
			AmbientLux:      r.AmbientLux,
			LEDContribution: contribution,
			TotalLux:        r.AmbientLux + contribution,
			Timestamp:       r.Timestamp,
		})
	}
	return out, nil
}

type Stats struct {
	TotalLogs            int     `json:"totalLogs"`
	TodayLogs            int     `json:"todayLogs"`
	AvgEnergyConsumption float64 `json:"avgEnergyConsumption"`
}

func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	all, err := e.src.Summarize(ctx, store.Query{})
	if err != nil {
		return Stats{}, err
	}
	today, err := e.src.Summarize(ctx, store.Query{From: e.Today()})
	if err != nil {
		return Stats{}, err
	}

	st := Stats{TotalLogs: all.Count, TodayLogs: today.Count}
	if all.Count > 0 {
		st.AvgEnergyConsumption = reading.Round2(all.EnergyWatts / float64(all.Count))
	}
	return st, nil
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
