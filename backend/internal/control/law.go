// Package control computes LED duty cycles from occupancy and ambient light and owns
// the mutable control state those computations read.
package control

import (
	"math"
	"time"

	"smart-led-controller/backend/internal/reading"
)

const (
	DefaultManualPWM          = 128
	DefaultSimulatedSunlight  = 300.0
	DefaultSimulatedOccupancy = 0
	initialLiveLux            = 300.0
)

// State is the full input to the control law.
type State struct {
	Mode               reading.Mode `json:"mode"`
	ManualPWM          int          `json:"manualPWM"`
	SimulationEnabled  bool         `json:"simulationEnabled"`
	SimulatedSunlight  float64      `json:"simulatedSunlight"`
	SimulatedOccupancy int          `json:"simulatedOccupancy"`
	LiveLux            float64      `json:"liveLux"`
	LiveOccupancy      int          `json:"liveOccupancy"`
}

func DefaultState() State {
	return State{
		Mode:               reading.ModeAutomatic,
		ManualPWM:          DefaultManualPWM,
		SimulatedSunlight:  DefaultSimulatedSunlight,
		SimulatedOccupancy: DefaultSimulatedOccupancy,
		LiveLux:            initialLiveLux,
	}
}

// Effective returns the occupancy and ambient lux the law acts on.
func (s State) Effective() (occupancy int, lux float64) {
	if s.SimulationEnabled {
		return s.SimulatedOccupancy, s.SimulatedSunlight
	}
	return s.LiveOccupancy, s.LiveLux
}

// AutomaticPWM fills the gap between ambient light and the target in proportion to the
// deficit. Empty rooms and rooms already at target get no light.
func AutomaticPWM(occupancy int, lux float64) int {
	if occupancy == 0 {
		return 0
	}
	deficit := reading.TargetLux - lux
	if deficit <= 0 {
		return 0
	}
	return reading.ClampPWM(int(math.Round(deficit / reading.MaxLEDLux * reading.MaxPWM)))
}

// PWM applies the law for the current mode.
func (s State) PWM() int {
	if s.Mode == reading.ModeManual {
		return reading.ClampPWM(s.ManualPWM)
	}
	occ, lux := s.Effective()
	return AutomaticPWM(occ, lux)
}

// Evaluate is the pure state-to-reading function.
func Evaluate(s State, ts time.Time) reading.Reading {
	occ, lux := s.Effective()
	return reading.New(ts, occ, lux, s.PWM(), s.Mode, s.SimulationEnabled)
}
