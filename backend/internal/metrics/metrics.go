package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	ticksTotal        prometheus.Counter
	commandsTotal     *prometheus.CounterVec
	ledPWM            prometheus.Gauge
	energyWatts       prometheus.Gauge
	observers         prometheus.Gauge
	droppedTotal      prometheus.Counter
	persistDuration   prometheus.Histogram
	persistFailures   prometheus.Counter
	breakerState      prometheus.Gauge
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "led_ticks_total",
			Help: "Control loop ticks executed.",
		}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "led_commands_total",
			Help: "Operator commands applied by name and outcome.",
		}, []string{"command", "outcome"}),
		ledPWM: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "led_output_pwm",
			Help: "Most recent LED duty cycle (0-255).",
		}),
		energyWatts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "led_energy_watts",
			Help: "Most recent LED power draw in watts.",
		}),
		observers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "led_observers",
			Help: "Currently registered reading observers.",
		}),
		droppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "led_readings_dropped_total",
			Help: "Readings skipped by observers that were busy.",
		}),
		persistDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "led_persist_duration_seconds",
			Help:    "Histogram of reading append durations.",
			Buckets: prometheus.DefBuckets,
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "led_persist_failures_total",
			Help: "Reading appends that failed.",
		}),
		breakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "led_store_breaker_state",
			Help: "Store circuit breaker state (0 closed, 1 half-open, 2 open).",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ticksTotal,
		m.commandsTotal,
		m.ledPWM,
		m.energyWatts,
		m.observers,
		m.droppedTotal,
		m.persistDuration,
		m.persistFailures,
		m.breakerState,
		m.httpRequestsTotal,
		m.httpDuration,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Tick(pwm int, watts float64) {
	if m == nil {
		return
	}
	m.ticksTotal.Inc()
	m.ledPWM.Set(float64(pwm))
	m.energyWatts.Set(watts)
}

func (m *Metrics) Command(name string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.commandsTotal.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) SetObservers(n int) {
	if m == nil {
		return
	}
	m.observers.Set(float64(n))
}

func (m *Metrics) ReadingDropped() {
	if m == nil {
		return
	}
	m.droppedTotal.Inc()
}

func (m *Metrics) Persist(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.persistDuration.Observe(d.Seconds())
	if err != nil {
		m.persistFailures.Inc()
	}
}

func (m *Metrics) SetBreakerState(state string) {
	if m == nil {
		return
	}
	switch state {
	case "half-open":
		m.breakerState.Set(1)
	case "open":
		m.breakerState.Set(2)
	default:
		m.breakerState.Set(0)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the underlying writer (websocket hijack).
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := s.ResponseWriter.(http.Hijacker); ok {
		s.status = http.StatusSwitchingProtocols
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// Middleware records request counts and durations labelled by the chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
