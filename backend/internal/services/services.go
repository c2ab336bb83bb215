package services

import (
	"log/slog"
	"time"

	"smart-led-controller/backend/internal/analytics"
	"smart-led-controller/backend/internal/store"
)

// Services holds every service instance the transports call into.
type Services struct {
	l         *slog.Logger
	Core      *CoreService
	Lighting  *LightingService
	Readings  *ReadingService
	Analytics *analytics.Engine
}

func NewServices(l *slog.Logger, st store.Store, lighting *LightingService, loc *time.Location) *Services {
	return &Services{
		l:         l.With(slog.String("module", "services")),
		Core:      NewCoreService(l, st),
		Lighting:  lighting,
		Readings:  NewReadingService(l, st),
		Analytics: analytics.New(st, loc),
	}
}

// RegisterMQTTClient makes the MQTT connection part of the health report.
func (s *Services) RegisterMQTTClient(client Connectivity) {
	s.Core.mqtt = client
}

// RegisterBreaker exposes the persistence breaker state in the health report.
func (s *Services) RegisterBreaker(b BreakerState) {
	s.Core.breaker = b
}

// RegisterStoreFallback marks the store as the in-memory stand-in for an unreachable
// database.
func (s *Services) RegisterStoreFallback() {
	s.Core.fallback = true
}
