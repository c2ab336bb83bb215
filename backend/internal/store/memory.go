package store

import (
	"context"
	"slices"
	"sync"

	"smart-led-controller/backend/internal/reading"
)

// MemoryStore keeps readings in process, ordered by timestamp. A positive retention
// bounds how many are kept; the oldest are evicted first.
type MemoryStore struct {
	mu        sync.RWMutex
	readings  []reading.Reading
	retention int
	nextID    int64
}

func NewMemoryStore(retention int) *MemoryStore {
	return &MemoryStore{retention: retention}
}

func (m *MemoryStore) Append(ctx context.Context, r reading.Reading) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	r.ID = m.nextID
	i, _ := slices.BinarySearchFunc(m.readings, r, func(a, b reading.Reading) int {
		if a.Timestamp.After(b.Timestamp) {
			return 1
		}
		return -1
	})
	m.readings = slices.Insert(m.readings, i, r)

	if m.retention > 0 && len(m.readings) > m.retention {
		m.readings = slices.Delete(m.readings, 0, len(m.readings)-m.retention)
	}
	return nil
}

func (m *MemoryStore) selectLocked(q Query) []reading.Reading {
	var out []reading.Reading
	for _, r := range m.readings {
		if q.matches(r.Timestamp) {
			out = append(out, r)
		}
	}
	if q.Order == NewestFirst {
		slices.Reverse(out)
	}
	return out
}

func (m *MemoryStore) Query(ctx context.Context, q Query) ([]reading.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, &QueryError{Op: "readings", Err: err}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.selectLocked(q)
	if q.Offset > 0 {
		out = out[min(q.Offset, len(out)):]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return slices.Clone(out), nil
}

func (m *MemoryStore) Summarize(ctx context.Context, q Query) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, &QueryError{Op: "summary", Err: err}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var s Summary
	for _, r := range m.selectLocked(q) {
		s.Count++
		s.EnergyWatts += r.EnergyConsumedWatts
		s.PWMSum += float64(r.LEDOutputPWM)
	}
	return s, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
