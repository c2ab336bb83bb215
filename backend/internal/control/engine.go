package control

import (
	"time"

	"smart-led-controller/backend/internal/reading"
)

// Engine holds control state and turns it into Readings. It is not safe for concurrent
// use: exactly one goroutine (the control loop) owns an Engine.
type Engine struct {
	state State
	gen   *Generator
	now   func() time.Time
	loc   *time.Location
	last  time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithGenerator(g *Generator) Option {
	return func(e *Engine) { e.gen = g }
}

// WithLocation sets the zone used to pick the hour for synthetic values.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

func WithState(s State) Option {
	return func(e *Engine) { e.state = s }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		state: DefaultState(),
		now:   time.Now,
		loc:   time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.gen == nil {
		e.gen = NewGenerator(nil)
	}
	return e
}

func (e *Engine) State() State {
	return e.state
}

// SetManualMode switches between manual and automatic. The pwm is stored either way so
// the next manual activation resumes at it.
func (e *Engine) SetManualMode(enabled bool, pwm int) {
	e.state.Mode = reading.ModeAutomatic
	if enabled {
		e.state.Mode = reading.ModeManual
	}
	e.state.ManualPWM = reading.ClampPWM(pwm)
}

// SetManualPWM stores the manual duty cycle. It only affects output in manual mode.
func (e *Engine) SetManualPWM(pwm int) {
	e.state.ManualPWM = reading.ClampPWM(pwm)
}

// SetSimulationMode toggles the simulation override and stores the supplied values
// regardless of enabled.
func (e *Engine) SetSimulationMode(enabled bool, sunlight float64, occupancy int) {
	e.state.SimulationEnabled = enabled
	e.UpdateSimulation(sunlight, occupancy)
}

// UpdateSimulation stores simulated inputs without touching the override flag.
func (e *Engine) UpdateSimulation(sunlight float64, occupancy int) {
	e.state.SimulatedSunlight = reading.ClampLux(sunlight)
	e.state.SimulatedOccupancy = reading.ClampOccupancy(occupancy)
}

// Tick refreshes the synthetic sensors when simulation is off and produces a Reading.
// Timestamps never go backwards even if the clock does.
func (e *Engine) Tick() reading.Reading {
	ts := e.now()
	if ts.Before(e.last) {
		ts = e.last
	}
	e.last = ts

	if !e.state.SimulationEnabled {
		e.state.LiveLux, e.state.LiveOccupancy = e.gen.Sample(ts.In(e.loc).Hour())
	}
	return Evaluate(e.state, ts)
}
