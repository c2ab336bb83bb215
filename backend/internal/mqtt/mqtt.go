// Package mqtt bridges the controller to an MQTT broker: readings are published as
// telemetry and commands arrive on per-command topics.
package mqtt

import (
	"context"
	"log/slog"

	"smart-led-controller/backend/internal/broadcast"
	"smart-led-controller/backend/internal/control"
	"smart-led-controller/backend/internal/reading"
)

const (
	TopicSensorData = "lighting/sensor-data"
	TopicCommands   = "lighting/commands/{command}"

	OperationPublishSensorData = "publishSensorData"
	OperationSubscribeCommands = "subscribeCommands"

	TelemetryGroup = "Telemetry"
	ControlGroup   = "Control"
)

// Controller is the part of the lighting service the bridge drives.
type Controller interface {
	Subscribe(ctx context.Context, obs broadcast.Observer) (broadcast.Handle, error)
	Submit(ctx context.Context, cmd control.Command) (reading.Reading, error)
}

// Publisher is implemented by pkg/mqtt.MQTTClient.
type Publisher interface {
	Publish(ctx context.Context, operationID string, actualTopic string, payload any) error
}

// Handler handles MQTT message processing.
type Handler struct {
	l    *slog.Logger
	ctrl Controller
}

func NewMQTTHandler(l *slog.Logger, ctrl Controller) *Handler {
	return &Handler{
		l:    l.With(slog.String("component", "mqtt-handler")),
		ctrl: ctrl,
	}
}
