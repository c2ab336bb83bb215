package export

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-led-controller/backend/internal/broadcast"
	"smart-led-controller/backend/internal/reading"
)

type recordingWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *recordingWriter) messages() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

var ts = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func TestMessage(t *testing.T) {
	r := reading.New(ts, 0, 300, 0, reading.ModeManual, true)

	msg, err := Message("ctrl-1", r)
	require.NoError(t, err)
	assert.Equal(t, "ctrl-1", string(msg.Key))
	assert.Equal(t, ts, msg.Time)
	assert.Equal(t, []kafka.Header{
		{Key: "mode", Value: []byte("manual")},
		{Key: "status", Value: []byte("energy_saving")},
	}, msg.Headers)

	var decoded reading.Reading
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, r.TotalLux, decoded.TotalLux)
	assert.True(t, decoded.SimulationMode)
}

func TestKafkaExporterForwardsInOrder(t *testing.T) {
	w := &recordingWriter{}
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := NewKafkaExporter(l, w, "ctrl-1")

	bc := broadcast.New(l, nil)
	_, err := bc.Subscribe(e)
	require.NoError(t, err)

	for i := range 3 {
		bc.Publish(reading.New(ts.Add(time.Duration(i)*time.Second), 1, 300, i, reading.ModeAutomatic, false))
	}

	require.Eventually(t, func() bool { return len(w.messages()) == 3 }, time.Second, 5*time.Millisecond)
	for i, m := range w.messages() {
		assert.Equal(t, ts.Add(time.Duration(i)*time.Second), m.Time)
	}

	bc.Close()
	assert.True(t, w.closed)
	assert.ErrorIs(t, e.Deliver(reading.Reading{}), broadcast.ErrObserverClosed)
}
