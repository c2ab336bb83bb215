package store

import (
	"io"
	"log/slog"
	"time"

	"smart-led-controller/backend/internal/reading"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var baseTime = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

func at(minutes int, occ int, lux float64, pwm int) reading.Reading {
	return reading.New(baseTime.Add(time.Duration(minutes)*time.Minute), occ, lux, pwm, reading.ModeAutomatic, false)
}

func pwms(rs []reading.Reading) []int {
	out := make([]int, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.LEDOutputPWM)
	}
	return out
}
