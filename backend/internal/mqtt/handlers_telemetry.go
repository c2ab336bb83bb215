package mqtt

import (
	"context"
	"errors"
	"log/slog"

	"smart-led-controller/backend/internal/broadcast"
	"smart-led-controller/backend/internal/reading"
	"smart-led-controller/backend/pkg/mqtt"
)

// telemetryQueue bounds how many readings wait for the broker before new ones are
// dropped.
const telemetryQueue = 32

func (h *Handler) RegisterSensorDataPublish(mb *mqtt.MQTTBuilder) {
	mb.MustRegisterPublish(TopicSensorData, mqtt.PublicationSpec{
		OperationID: OperationPublishSensorData,
		Summary:     "Publish sensor data",
		Description: "Every reading the controller produces. Retained so new subscribers get the current state.",
		Group:       TelemetryGroup,
		QoS:         mqtt.QoSAtMostOnce,
		Retained:    true,
	})
}

// AttachTelemetry subscribes a queueing observer that forwards every reading to pub.
// Readings produced while the broker is unreachable are skipped.
func (h *Handler) AttachTelemetry(ctx context.Context, pub Publisher) (*broadcast.AsyncObserver, error) {
	obs := broadcast.NewAsyncObserver(h.l, "mqtt-telemetry", telemetryQueue, func(ctx context.Context, r reading.Reading) error {
		err := pub.Publish(ctx, OperationPublishSensorData, TopicSensorData, r)
		if errors.Is(err, mqtt.ErrNotConnected) {
			return nil
		}
		return err
	})

	if _, err := h.ctrl.Subscribe(ctx, obs); err != nil {
		_ = obs.Close()
		return nil, err
	}

	h.l.Info("forwarding readings to MQTT", slog.String("topic", TopicSensorData))
	return obs, nil
}
