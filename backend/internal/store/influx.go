package store

import (
	"context"
	"fmt"
	"log/slog"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"smart-led-controller/backend/internal/reading"
	"smart-led-controller/backend/pkg/utils"
)

const influxMeasurement = "led_reading"

// InfluxSink mirrors readings into an InfluxDB bucket through the client's batching
// writer. Append never blocks on the network; write errors are logged as they arrive.
type InfluxSink struct {
	client influxdb2.Client
	write  api.WriteAPI
	l      *slog.Logger
}

type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

func NewInfluxSink(l *slog.Logger, cfg InfluxConfig) *InfluxSink {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	s := &InfluxSink{
		client: client,
		write:  client.WriteAPI(cfg.Org, cfg.Bucket),
		l:      l.With(slog.String("component", "influx"), slog.String("bucket", cfg.Bucket)),
	}

	// The errors channel is closed by client.Close.
	go func() {
		for err := range s.write.Errors() {
			s.l.Warn("influx write failed", utils.ErrAttr(err))
		}
	}()

	return s
}

func influxPoint(r reading.Reading) (string, map[string]string, map[string]any) {
	tags := map[string]string{
		"mode":       string(r.Mode),
		"status":     string(r.Status),
		"simulation": fmt.Sprint(r.SimulationMode),
	}
	fields := map[string]any{
		"occupancy_count":       r.OccupancyCount,
		"ambient_lux":           r.AmbientLux,
		"led_output_pwm":        r.LEDOutputPWM,
		"energy_consumed_watts": r.EnergyConsumedWatts,
		"total_lux":             r.TotalLux,
	}
	return influxMeasurement, tags, fields
}

func (s *InfluxSink) Append(_ context.Context, r reading.Reading) error {
	measurement, tags, fields := influxPoint(r)
	s.write.WritePoint(influxdb2.NewPoint(measurement, tags, fields, r.Timestamp))
	return nil
}

func (s *InfluxSink) Ping(ctx context.Context) error {
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return unavailable(err)
	}
	if !ok {
		return unavailable(fmt.Errorf("influx at %s not ready", s.client.ServerURL()))
	}
	return nil
}

// Close flushes pending points.
func (s *InfluxSink) Close() error {
	s.write.Flush()
	s.client.Close()
	return nil
}
