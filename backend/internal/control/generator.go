package control

import (
	"math/rand/v2"

	"smart-led-controller/backend/internal/reading"
)

// Noise is the randomness the generator draws from. *rand.Rand satisfies it.
type Noise interface {
	Float64() float64
	IntN(n int) int
}

type globalNoise struct{}

func (globalNoise) Float64() float64 { return rand.Float64() }
func (globalNoise) IntN(n int) int   { return rand.IntN(n) }

// Generator produces plausible sensor values for an hour of the day when no real
// sensors or simulation override are present.
type Generator struct {
	noise Noise
}

func NewGenerator(n Noise) *Generator {
	if n == nil {
		n = globalNoise{}
	}
	return &Generator{noise: n}
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.noise.Float64()*(hi-lo)
}

// Lux follows a daylight curve peaking mid-day, with ±50 lux jitter.
func (g *Generator) Lux(hour int) float64 {
	var base float64
	switch {
	case hour >= 6 && hour < 10:
		base = 200 + float64(hour-6)*100
	case hour >= 10 && hour < 16:
		base = 600 + g.uniform(0, 200)
	case hour >= 16 && hour < 20:
		base = 600 - float64(hour-16)*100
	default:
		base = 50 + g.uniform(0, 50)
	}
	return reading.ClampLux(base + g.uniform(-50, 50))
}

// Occupancy follows a teaching-day schedule.
func (g *Generator) Occupancy(hour int) int {
	switch {
	case hour >= 8 && hour < 12:
		return 15 + g.noise.IntN(10)
	case hour >= 12 && hour < 14:
		return 5 + g.noise.IntN(5)
	case hour >= 14 && hour < 18:
		return 20 + g.noise.IntN(15)
	case hour >= 18 && hour < 22:
		return 10 + g.noise.IntN(10)
	default:
		return g.noise.IntN(3)
	}
}

func (g *Generator) Sample(hour int) (lux float64, occupancy int) {
	return g.Lux(hour), g.Occupancy(hour)
}
