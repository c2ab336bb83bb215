// Package export streams readings to external pipelines.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"smart-led-controller/backend/internal/broadcast"
	"smart-led-controller/backend/internal/reading"
	"smart-led-controller/backend/pkg/utils"
)

const (
	exportQueue  = 64
	writeTimeout = 10 * time.Second
)

// MessageWriter is implemented by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// KafkaExporter is a broadcast observer that writes each reading as one message keyed
// by controller ID, so a controller's readings stay ordered within a partition.
type KafkaExporter struct {
	l   *slog.Logger
	w   MessageWriter
	key string
	obs *broadcast.AsyncObserver
}

func NewKafkaExporter(l *slog.Logger, w MessageWriter, controllerID string) *KafkaExporter {
	e := &KafkaExporter{
		l:   l.With(slog.String("component", "kafka-exporter")),
		w:   w,
		key: controllerID,
	}
	e.obs = broadcast.NewAsyncObserver(e.l, "kafka", exportQueue, e.send)
	return e
}

func (e *KafkaExporter) Deliver(r reading.Reading) error {
	return e.obs.Deliver(r)
}

func (e *KafkaExporter) send(ctx context.Context, r reading.Reading) error {
	msg, err := Message(e.key, r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := e.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to export reading: %w", err)
	}
	return nil
}

// Close stops forwarding and closes the writer.
func (e *KafkaExporter) Close() error {
	return errors.Join(e.obs.Close(), e.w.Close())
}

// Message encodes r as a Kafka message with mode and status headers.
func Message(key string, r reading.Reading) (kafka.Message, error) {
	value, err := utils.ToJSON(r)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode reading: %w", err)
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  r.Timestamp,
		Headers: []kafka.Header{
			{Key: "mode", Value: []byte(r.Mode)},
			{Key: "status", Value: []byte(r.Status)},
		},
	}, nil
}
