package reading

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNewDerivations(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		occ        int
		lux        float64
		pwm        int
		mode       Mode
		wantEnergy float64
		wantTotal  float64
		wantStatus Status
	}{
		{name: "dim occupied", occ: 5, lux: 100, pwm: 204, mode: ModeAutomatic, wantEnergy: 40, wantTotal: 500, wantStatus: StatusActive},
		{name: "bright occupied", occ: 5, lux: 700, pwm: 0, mode: ModeAutomatic, wantEnergy: 0, wantTotal: 700, wantStatus: StatusActive},
		{name: "empty room", occ: 0, lux: 100, pwm: 0, mode: ModeAutomatic, wantEnergy: 0, wantTotal: 100, wantStatus: StatusEnergySaving},
		{name: "manual half", occ: 3, lux: 200, pwm: 128, mode: ModeManual, wantEnergy: 25.1, wantTotal: 451, wantStatus: StatusManual},
		{name: "manual empty", occ: 0, lux: 200, pwm: 128, mode: ModeManual, wantEnergy: 25.1, wantTotal: 451, wantStatus: StatusEnergySaving},
		{name: "full output", occ: 1, lux: 0, pwm: 255, mode: ModeManual, wantEnergy: 50, wantTotal: 500, wantStatus: StatusManual},
		{name: "fractional lux rounded", occ: 1, lux: 99.6, pwm: 0, mode: ModeAutomatic, wantEnergy: 0, wantTotal: 100, wantStatus: StatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := New(ts, tt.occ, tt.lux, tt.pwm, tt.mode, false)
			if r.EnergyConsumedWatts != tt.wantEnergy {
				t.Errorf("energy = %v, want %v", r.EnergyConsumedWatts, tt.wantEnergy)
			}
			if r.TotalLux != tt.wantTotal {
				t.Errorf("totalLux = %v, want %v", r.TotalLux, tt.wantTotal)
			}
			if r.Status != tt.wantStatus {
				t.Errorf("status = %v, want %v", r.Status, tt.wantStatus)
			}
			if r.TargetLux != TargetLux {
				t.Errorf("targetLux = %v", r.TargetLux)
			}
			if r.TotalLux < r.AmbientLux {
				t.Errorf("totalLux %v below ambient %v", r.TotalLux, r.AmbientLux)
			}
		})
	}
}

func TestEnergyIsMonotonic(t *testing.T) {
	t.Parallel()

	prev := -1.0
	for pwm := 0; pwm <= MaxPWM; pwm++ {
		e := EnergyWatts(pwm)
		if e < prev {
			t.Fatalf("EnergyWatts(%d) = %v decreased from %v", pwm, e, prev)
		}
		if e < 0 || e > MaxWatts {
			t.Fatalf("EnergyWatts(%d) = %v out of range", pwm, e)
		}
		prev = e
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()

	if got := ClampPWM(300); got != 255 {
		t.Errorf("ClampPWM(300) = %d", got)
	}
	if got := ClampPWM(-4); got != 0 {
		t.Errorf("ClampPWM(-4) = %d", got)
	}
	if got := ClampLux(1500); got != 1000 {
		t.Errorf("ClampLux(1500) = %v", got)
	}
	if got := ClampLux(math.NaN()); got != 0 {
		t.Errorf("ClampLux(NaN) = %v", got)
	}
	if got := ClampOccupancy(101); got != 100 {
		t.Errorf("ClampOccupancy(101) = %d", got)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := New(time.Now(), 10, 400, 51, ModeAutomatic, false)

	tests := []struct {
		name      string
		mutate    func(*Reading)
		wantField string
	}{
		{name: "valid"},
		{name: "occupancy too high", mutate: func(r *Reading) { r.OccupancyCount = 101 }, wantField: "occupancyCount"},
		{name: "negative lux", mutate: func(r *Reading) { r.AmbientLux = -1 }, wantField: "ambientLux"},
		{name: "pwm too high", mutate: func(r *Reading) { r.LEDOutputPWM = 256 }, wantField: "ledOutputPWM"},
		{name: "negative energy", mutate: func(r *Reading) { r.EnergyConsumedWatts = -0.5 }, wantField: "energyConsumedWatts"},
		{name: "energy saving is not a mode", mutate: func(r *Reading) { r.Mode = "energy_saving" }, wantField: "mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := valid
			if tt.mutate != nil {
				tt.mutate(&r)
			}
			err := r.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if _, ok := verr.Fields[tt.wantField]; !ok {
				t.Errorf("Validate() fields = %v, want %q", verr.Fields, tt.wantField)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	r := Reading{OccupancyCount: 0, AmbientLux: 300, LEDOutputPWM: 51, Mode: ModeManual, TotalLux: 1, Status: StatusActive}
	n := r.Normalize()
	if n.TotalLux != 400 || n.Status != StatusEnergySaving || n.TargetLux != TargetLux {
		t.Errorf("Normalize() = %+v", n)
	}
}
