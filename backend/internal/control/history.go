package control

import (
	"time"

	"smart-led-controller/backend/internal/reading"
)

// History backfills automatic-mode readings from end-span to end (inclusive) every
// step, using the same generator and law as the live loop.
func History(gen *Generator, end time.Time, span, step time.Duration, loc *time.Location) []reading.Reading {
	if step <= 0 || span < 0 {
		return nil
	}
	if gen == nil {
		gen = NewGenerator(nil)
	}
	if loc == nil {
		loc = time.Local
	}

	out := make([]reading.Reading, 0, int(span/step)+1)
	for ts := end.Add(-span); !ts.After(end); ts = ts.Add(step) {
		s := DefaultState()
		s.LiveLux, s.LiveOccupancy = gen.Sample(ts.In(loc).Hour())
		out = append(out, Evaluate(s, ts))
	}
	return out
}
