package mqtt

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-led-controller/backend/internal/broadcast"
	"smart-led-controller/backend/internal/control"
	"smart-led-controller/backend/internal/reading"
	"smart-led-controller/backend/pkg/mqtt"
)

type fakeController struct {
	mu   sync.Mutex
	cmds []control.Command
	obs  []broadcast.Observer
}

func (f *fakeController) Subscribe(_ context.Context, obs broadcast.Observer) (broadcast.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.obs = append(f.obs, obs)
	return broadcast.Handle(len(f.obs)), nil
}

func (f *fakeController) Submit(_ context.Context, cmd control.Command) (reading.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
	return reading.Reading{}, nil
}

func (f *fakeController) commands() []control.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]control.Command(nil), f.cmds...)
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

var _ pahomqtt.Message = fakeMessage{}

func newHandler() (*Handler, *fakeController) {
	ctrl := &fakeController{}
	return NewMQTTHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), ctrl), ctrl
}

func TestHandleCommand(t *testing.T) {
	h, ctrl := newHandler()

	h.handleCommand(nil, fakeMessage{topic: "lighting/commands/setManualPWM", payload: []byte("42")})
	h.handleCommand(nil, fakeMessage{topic: "lighting/commands/setSimulationMode", payload: []byte(`{"enabled":true}`)})
	// rejected: unknown command, bad payload, wrong topic
	h.handleCommand(nil, fakeMessage{topic: "lighting/commands/selfDestruct", payload: []byte(`{}`)})
	h.handleCommand(nil, fakeMessage{topic: "lighting/commands/setManualMode", payload: []byte(`nope`)})
	h.handleCommand(nil, fakeMessage{topic: "lighting/status", payload: []byte(`1`)})

	assert.Equal(t, []control.Command{
		control.ManualPWM{PWM: 42},
		control.SimulationMode{Enabled: true, Sunlight: control.DefaultSimulatedSunlight, Occupancy: control.DefaultSimulatedOccupancy},
	}, ctrl.commands())
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []reading.Reading
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, operationID, topic string, payload any) error {
	if operationID != OperationPublishSensorData || topic != TopicSensorData {
		panic("unexpected publication " + operationID + " " + topic)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, payload.(reading.Reading))
	return p.err
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func TestAttachTelemetry(t *testing.T) {
	h, ctrl := newHandler()
	pub := &fakePublisher{err: mqtt.ErrNotConnected}

	obs, err := h.AttachTelemetry(context.Background(), pub)
	require.NoError(t, err)
	t.Cleanup(func() { _ = obs.Close() })
	require.Len(t, ctrl.obs, 1)

	r := reading.New(time.Now(), 1, 300, 102, reading.ModeAutomatic, false)
	require.NoError(t, ctrl.obs[0].Deliver(r))
	require.NoError(t, ctrl.obs[0].Deliver(r))

	require.Eventually(t, func() bool { return pub.count() == 2 }, time.Second, 5*time.Millisecond)

	// A disconnected broker does not stop the observer.
	select {
	case <-obs.Done():
		t.Fatal("observer stopped")
	default:
	}
}

func TestRegisterTopics(t *testing.T) {
	h, _ := newHandler()
	mb, err := mqtt.NewMQTTBuilder(slog.New(slog.NewTextHandler(io.Discard, nil)), mqtt.MQTTClientOptions{
		BrokerURL: "tcp://127.0.0.1:1",
		ClientID:  "test",
	})
	require.NoError(t, err)

	h.RegisterSensorDataPublish(mb)
	h.RegisterCommandSubscribe(mb)

	assert.Error(t, mb.RegisterPublish(TopicSensorData, mqtt.PublicationSpec{
		OperationID: OperationPublishSensorData, Summary: "s", Description: "d", Group: TelemetryGroup,
	}))
}
