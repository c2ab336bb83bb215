package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"smart-led-controller/backend/internal/broadcast"
	"smart-led-controller/backend/internal/control"
	"smart-led-controller/backend/internal/metrics"
	"smart-led-controller/backend/internal/reading"
	"smart-led-controller/backend/internal/store"
	"smart-led-controller/backend/pkg/utils"
)

var ErrLoopStopped = errors.New("control loop stopped")

const (
	DefaultTickInterval   = 2 * time.Second
	DefaultPersistTimeout = 5 * time.Second
)

// LightingService owns the control engine. Every mutation and every tick runs on the
// goroutine inside Run, so commands are applied in arrival order and each one's
// reading is published before the next command is looked at.
type LightingService struct {
	l              *slog.Logger
	engine         *control.Engine
	bc             *broadcast.Broadcaster
	sink           store.Sink
	m              *metrics.Metrics
	interval       time.Duration
	persistTimeout time.Duration

	ops     chan func()
	stopped chan struct{}
	latest  atomic.Pointer[reading.Reading]
	persist sync.WaitGroup
}

type LightingOption func(*LightingService)

func WithTickInterval(d time.Duration) LightingOption {
	return func(s *LightingService) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithPersistTimeout(d time.Duration) LightingOption {
	return func(s *LightingService) {
		if d > 0 {
			s.persistTimeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) LightingOption {
	return func(s *LightingService) { s.m = m }
}

// NewLightingService wires the engine to its broadcaster and sink. A nil sink keeps
// readings in memory only.
func NewLightingService(l *slog.Logger, engine *control.Engine, bc *broadcast.Broadcaster, sink store.Sink, opts ...LightingOption) *LightingService {
	s := &LightingService{
		l:              l.With(slog.String("service", "lighting")),
		engine:         engine,
		bc:             bc,
		sink:           sink,
		interval:       DefaultTickInterval,
		persistTimeout: DefaultPersistTimeout,
		ops:            make(chan func()),
		stopped:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run drives the periodic tick until ctx is done. On return no further readings are
// produced, pending writes have finished and every observer has been closed.
func (s *LightingService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(s.stopped)
		s.persist.Wait()
		s.bc.Close()
		s.l.Info("control loop stopped")
	}()

	s.l.Info("control loop started", slog.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r := s.emit()
			s.persistAsync(r)
		case op := <-s.ops:
			op()
		}
	}
}

// emit ticks the engine and fans the reading out. Must run on the loop.
func (s *LightingService) emit() reading.Reading {
	r := s.engine.Tick()
	s.latest.Store(&r)
	s.bc.Publish(r)
	s.m.Tick(r.LEDOutputPWM, r.EnergyConsumedWatts)
	return r
}

// persistAsync hands r to the sink without waiting for it.
func (s *LightingService) persistAsync(r reading.Reading) {
	if s.sink == nil {
		return
	}

	s.persist.Add(1)
	go func() {
		defer s.persist.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		defer cancel()

		start := time.Now()
		err := s.sink.Append(ctx, r)
		s.m.Persist(time.Since(start), err)

		switch {
		case err == nil:
		case errors.Is(err, store.ErrStoreUnavailable):
			s.l.Warn("reading not persisted", utils.ErrAttr(err))
		default:
			s.l.Error("failed to persist reading", utils.ErrAttr(err))
		}
	}()
}

// do runs op on the loop and waits for it to finish.
func (s *LightingService) do(ctx context.Context, op func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		op()
	}

	select {
	case s.ops <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return ErrLoopStopped
	}
	<-done
	return nil
}

// Submit applies cmd and publishes the resulting reading right away.
func (s *LightingService) Submit(ctx context.Context, cmd control.Command) (reading.Reading, error) {
	var (
		r      reading.Reading
		cmdErr error
	)
	err := s.do(ctx, func() {
		if cmdErr = control.Apply(s.engine, cmd); cmdErr != nil {
			return
		}
		r = s.emit()
	})
	if err == nil {
		err = cmdErr
	}
	s.m.Command(cmd.Name(), err)

	if err != nil {
		return reading.Reading{}, err
	}
	s.l.Info("command applied", slog.String("command", cmd.Name()), slog.Int("pwm", r.LEDOutputPWM), slog.String("mode", string(r.Mode)))
	return r, nil
}

// Subscribe registers obs and hands it a fresh reading before any later publish.
func (s *LightingService) Subscribe(ctx context.Context, obs broadcast.Observer) (broadcast.Handle, error) {
	var (
		h      broadcast.Handle
		subErr error
	)
	err := s.do(ctx, func() {
		r := s.engine.Tick()
		s.latest.Store(&r)
		h, subErr = s.bc.SubscribeFrom(obs, r)
	})
	if err != nil {
		return 0, err
	}
	return h, subErr
}

func (s *LightingService) Unsubscribe(h broadcast.Handle) {
	s.bc.Unsubscribe(h)
}

// Observers is the number of currently subscribed observers.
func (s *LightingService) Observers() int {
	return s.bc.Len()
}

// State returns a copy of the engine state as seen by the loop.
func (s *LightingService) State(ctx context.Context) (control.State, error) {
	var st control.State
	err := s.do(ctx, func() { st = s.engine.State() })
	return st, err
}

// Latest is the most recently produced reading, or nil before the first one.
func (s *LightingService) Latest() *reading.Reading {
	return s.latest.Load()
}
