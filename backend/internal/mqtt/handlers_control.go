package mqtt

import (
	"context"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"smart-led-controller/backend/internal/control"
	"smart-led-controller/backend/pkg/mqtt"
	"smart-led-controller/backend/pkg/utils"
)

const commandTimeout = 5 * time.Second

func (h *Handler) RegisterCommandSubscribe(mb *mqtt.MQTTBuilder) {
	mb.MustRegisterSubscribe(TopicCommands, mqtt.SubscriptionSpec{
		OperationID: OperationSubscribeCommands,
		Summary:     "Subscribe to control commands",
		Description: "Applies setManualMode, setSimulationMode, updateSimulation and setManualPWM. The payload is the command's JSON body.",
		Group:       ControlGroup,
		TopicParameters: []mqtt.TopicParameter{
			{Name: "command", Description: "Command name"},
		},
		Handler: h.handleCommand,
		QoS:     mqtt.QoSAtLeastOnce,
	})
}

func (h *Handler) handleCommand(_ pahomqtt.Client, msg pahomqtt.Message) {
	params, ok := mqtt.TopicParams(TopicCommands, msg.Topic())
	if !ok {
		h.l.Warn("ignoring command on unexpected topic", slog.String("topic", msg.Topic()))
		return
	}
	name := params["command"]
	l := h.l.With(slog.String("command", name), slog.String("topic", msg.Topic()))

	cmd, err := control.DecodeCommand(name, msg.Payload())
	if err != nil {
		l.Warn("rejected MQTT command", utils.ErrAttr(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	r, err := h.ctrl.Submit(ctx, cmd)
	if err != nil {
		l.Error("failed to apply MQTT command", utils.ErrAttr(err))
		return
	}

	l.Info("applied MQTT command", slog.Int("pwm", r.LEDOutputPWM), slog.String("mode", string(r.Mode)))
}
