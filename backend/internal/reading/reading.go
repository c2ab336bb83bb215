// Package reading holds the snapshot value produced on every control tick and the
// pure derivations that tie its fields together.
package reading

import (
	"fmt"
	"math"
	"time"
)

const (
	TargetLux    = 500
	MaxPWM       = 255
	MaxWatts     = 50.0
	MaxLEDLux    = 500.0
	MaxLux       = 1000.0
	MaxOccupancy = 100
)

type Mode string

const (
	ModeAutomatic Mode = "automatic"
	ModeManual    Mode = "manual"
)

func (m Mode) Valid() bool {
	return m == ModeAutomatic || m == ModeManual
}

type Status string

const (
	StatusEnergySaving Status = "energy_saving"
	StatusActive       Status = "active"
	StatusManual       Status = "manual"
)

// Reading is immutable once produced.
type Reading struct {
	ID                  int64     `json:"id,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
	OccupancyCount      int       `json:"occupancyCount"`
	AmbientLux          float64   `json:"ambientLux"`
	LEDOutputPWM        int       `json:"ledOutputPWM"`
	EnergyConsumedWatts float64   `json:"energyConsumedWatts"`
	TotalLux            float64   `json:"totalLux"`
	Mode                Mode      `json:"mode"`
	TargetLux           int       `json:"targetLux"`
	SimulationMode      bool      `json:"simulationMode"`
	Status              Status    `json:"status"`
}

// New builds a Reading from its inputs and fills every derived field.
// Ambient lux is stored in whole lux.
func New(ts time.Time, occupancy int, ambientLux float64, pwm int, mode Mode, simulated bool) Reading {
	lux := math.Round(ambientLux)
	return Reading{
		Timestamp:           ts,
		OccupancyCount:      occupancy,
		AmbientLux:          lux,
		LEDOutputPWM:        pwm,
		EnergyConsumedWatts: EnergyWatts(pwm),
		TotalLux:            TotalLux(lux, pwm),
		Mode:                mode,
		TargetLux:           TargetLux,
		SimulationMode:      simulated,
		Status:              DeriveStatus(occupancy, mode),
	}
}

// EnergyWatts is the LED draw for a duty cycle, rounded to 2 decimals.
func EnergyWatts(pwm int) float64 {
	return Round2(float64(pwm) / MaxPWM * MaxWatts)
}

// LEDContribution is the unrounded lux added by the LED at pwm.
func LEDContribution(pwm int) float64 {
	return float64(pwm) / MaxPWM * MaxLEDLux
}

func TotalLux(ambientLux float64, pwm int) float64 {
	return math.Round(ambientLux + LEDContribution(pwm))
}

func DeriveStatus(occupancy int, mode Mode) Status {
	switch {
	case occupancy == 0:
		return StatusEnergySaving
	case mode == ModeAutomatic:
		return StatusActive
	default:
		return StatusManual
	}
}

// Round2 rounds half away from zero to 2 decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ClampPWM(v int) int {
	return min(max(v, 0), MaxPWM)
}

// ClampLux maps NaN to 0.
func ClampLux(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, 0), MaxLux)
}

func ClampOccupancy(v int) int {
	return min(max(v, 0), MaxOccupancy)
}

// Validate checks a Reading submitted from outside the control loop.
func (r Reading) Validate() error {
	verr := &ValidationError{}
	if r.OccupancyCount < 0 || r.OccupancyCount > MaxOccupancy {
		verr.Add("occupancyCount", fmt.Sprintf("must be between 0 and %d", MaxOccupancy))
	}
	if math.IsNaN(r.AmbientLux) || r.AmbientLux < 0 || r.AmbientLux > MaxLux {
		verr.Add("ambientLux", fmt.Sprintf("must be between 0 and %g", MaxLux))
	}
	if r.LEDOutputPWM < 0 || r.LEDOutputPWM > MaxPWM {
		verr.Add("ledOutputPWM", fmt.Sprintf("must be between 0 and %d", MaxPWM))
	}
	if math.IsNaN(r.EnergyConsumedWatts) || r.EnergyConsumedWatts < 0 {
		verr.Add("energyConsumedWatts", "must be non-negative")
	}
	if !r.Mode.Valid() {
		verr.Add("mode", fmt.Sprintf("must be %q or %q", ModeAutomatic, ModeManual))
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Normalize recomputes the fields that are never accepted as input.
func (r Reading) Normalize() Reading {
	r.TargetLux = TargetLux
	r.TotalLux = TotalLux(r.AmbientLux, r.LEDOutputPWM)
	r.Status = DeriveStatus(r.OccupancyCount, r.Mode)
	return r
}
