package control

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
)

func TestScenarios(t *testing.T) {
	t.Parallel()

	scenarios := []struct {
		name      string
		sunlight  float64
		occupancy int
		manualPWM int
	}{
		{name: "dark-occupied", sunlight: 100, occupancy: 5},
		{name: "bright-occupied", sunlight: 700, occupancy: 5},
		{name: "dark-empty", sunlight: 100, occupancy: 0},
		{name: "at-target", sunlight: 500, occupancy: 1},
		{name: "just-below", sunlight: 499, occupancy: 1},
		{name: "dark-room", sunlight: 0, occupancy: 1},
		{name: "half-deficit", sunlight: 250, occupancy: 10},
		{name: "manual-half", sunlight: 200, occupancy: 3, manualPWM: 128},
		{name: "manual-empty", sunlight: 200, occupancy: 0, manualPWM: 128},
		{name: "sunlight-clamped", sunlight: 1500, occupancy: 150},
	}

	var buf bytes.Buffer
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, sc := range scenarios {
		e := NewEngine(WithClock(fixedClock(ts)))
		e.SetSimulationMode(true, sc.sunlight, sc.occupancy)
		if sc.manualPWM > 0 {
			e.SetManualMode(true, sc.manualPWM)
		}
		r := e.Tick()
		fmt.Fprintf(&buf, "%s: mode=%s occ=%d lux=%.0f pwm=%d watts=%.2f total=%.0f status=%s\n",
			sc.name, r.Mode, r.OccupancyCount, r.AmbientLux, r.LEDOutputPWM,
			r.EnergyConsumedWatts, r.TotalLux, r.Status)
	}

	g := goldie.New(t)
	g.Assert(t, "scenarios", buf.Bytes())
}
