package store

import (
	"cmp"
	"context"
	"slices"

	"smart-led-controller/backend/internal/reading"
)

// GroupKey identifies a bucket. Unused dimensions stay zero.
type GroupKey struct {
	DayOfWeek int
	Hour      int
}

func (k GroupKey) compare(o GroupKey) int {
	return cmp.Or(cmp.Compare(k.DayOfWeek, o.DayOfWeek), cmp.Compare(k.Hour, o.Hour))
}

// Group accumulates sums for one bucket.
type Group struct {
	Key          GroupKey
	Count        int
	OccupancySum float64
	LuxSum       float64
	PWMSum       float64
	EnergySum    float64
}

func (g Group) AvgOccupancy() float64 { return g.avg(g.OccupancySum) }
func (g Group) AvgLux() float64       { return g.avg(g.LuxSum) }
func (g Group) AvgPWM() float64       { return g.avg(g.PWMSum) }

func (g Group) avg(sum float64) float64 {
	if g.Count == 0 {
		return 0
	}
	return sum / float64(g.Count)
}

// KeyFunc buckets a reading. Returning false skips it.
type KeyFunc func(r reading.Reading) (GroupKey, bool)

// Aggregate folds the readings selected by q into groups sorted by key. Empty buckets
// are not produced.
func Aggregate(ctx context.Context, src Source, q Query, key KeyFunc) ([]Group, error) {
	q.Limit, q.Offset = 0, 0
	rs, err := src.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return Fold(rs, key), nil
}

func Fold(rs []reading.Reading, key KeyFunc) []Group {
	groups := make(map[GroupKey]*Group)
	for _, r := range rs {
		k, ok := key(r)
		if !ok {
			continue
		}
		g, exists := groups[k]
		if !exists {
			g = &Group{Key: k}
			groups[k] = g
		}
		g.Count++
		g.OccupancySum += float64(r.OccupancyCount)
		g.LuxSum += r.AmbientLux
		g.PWMSum += float64(r.LEDOutputPWM)
		g.EnergySum += r.EnergyConsumedWatts
	}

	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	slices.SortFunc(out, func(a, b Group) int { return a.Key.compare(b.Key) })
	return out
}
