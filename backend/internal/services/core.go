package services

import (
	"context"
	"log/slog"

	"smart-led-controller/backend/pkg/utils"
)

// Connectivity is implemented by the MQTT client.
type Connectivity interface {
	IsConnected() bool
}

// BreakerState is implemented by store.ResilientSink.
type BreakerState interface {
	State() string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type CoreService struct {
	l        *slog.Logger
	db       Pinger
	mqtt     Connectivity
	breaker  BreakerState
	fallback bool
}

func NewCoreService(l *slog.Logger, db Pinger) *CoreService {
	return &CoreService{
		l:  l.With(slog.String("service", "core")),
		db: db,
	}
}

type HealthStatus struct {
	// Database is false while readings go to the in-memory fallback.
	Database bool   `json:"database"`
	Fallback bool   `json:"fallback,omitempty"`
	MQTT     *bool  `json:"mqtt,omitempty"`
	Breaker  string `json:"breaker,omitempty"`
}

// Healthy reports whether readings can be stored and the MQTT connection, if any, is up.
func (h HealthStatus) Healthy() bool {
	return (h.Database || h.Fallback) && (h.MQTT == nil || *h.MQTT)
}

// Degraded reports a healthy server whose readings will not survive a restart.
func (h HealthStatus) Degraded() bool {
	return h.Healthy() && h.Fallback
}

// Health checks the store and, when one is registered, the MQTT connection.
func (s *CoreService) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{Database: !s.fallback, Fallback: s.fallback}

	if s.fallback {
		s.l.Warn("database unavailable, readings kept in memory")
	} else if err := s.db.Ping(ctx); err != nil {
		s.l.Error("database unreachable", utils.ErrAttr(err))
		status.Database = false
	}

	if s.mqtt != nil {
		status.MQTT = utils.Ptr(s.mqtt.IsConnected())
		if !*status.MQTT {
			s.l.Error("mqtt broker unreachable")
		}
	}

	if s.breaker != nil {
		status.Breaker = s.breaker.State()
	}

	return status
}
