// Package broadcast fans Readings out to observers without letting a slow or dead
// observer hold up the producer.
package broadcast

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"smart-led-controller/backend/internal/reading"
	"smart-led-controller/backend/pkg/utils"
)

var (
	// ErrObserverClosed tells the broadcaster to drop the observer.
	ErrObserverClosed = errors.New("observer closed")
	// ErrObserverBusy means the observer skipped this reading.
	ErrObserverBusy = errors.New("observer busy")
)

// Observer receives readings. Deliver must return without blocking.
type Observer interface {
	Deliver(r reading.Reading) error
}

// ObserverFunc adapts a non-blocking function to Observer.
type ObserverFunc func(r reading.Reading) error

func (f ObserverFunc) Deliver(r reading.Reading) error { return f(r) }

type Handle uint64

// Recorder is notified about delivery outcomes. metrics.Metrics implements it.
type Recorder interface {
	SetObservers(n int)
	ReadingDropped()
}

type Broadcaster struct {
	l         *slog.Logger
	rec       Recorder
	mu        sync.RWMutex
	next      Handle
	observers map[Handle]Observer
	closed    bool
}

func New(l *slog.Logger, rec Recorder) *Broadcaster {
	return &Broadcaster{
		l:         l.With(slog.String("component", "broadcaster")),
		rec:       rec,
		observers: make(map[Handle]Observer),
	}
}

// Subscribe registers obs for every subsequent Publish.
func (b *Broadcaster) Subscribe(obs Observer) (Handle, error) {
	return b.subscribe(obs, nil)
}

// SubscribeFrom delivers initial to obs before registering it, so the observer sees
// initial ahead of any published reading.
func (b *Broadcaster) SubscribeFrom(obs Observer, initial reading.Reading) (Handle, error) {
	return b.subscribe(obs, &initial)
}

func (b *Broadcaster) subscribe(obs Observer, initial *reading.Reading) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrObserverClosed
	}
	if initial != nil {
		if err := obs.Deliver(*initial); errors.Is(err, ErrObserverClosed) {
			return 0, err
		}
	}

	b.next++
	h := b.next
	b.observers[h] = obs
	b.countLocked()

	return h, nil
}

// Unsubscribe removes the observer. Unknown or already removed handles are ignored.
func (b *Broadcaster) Unsubscribe(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.observers[h]; !ok {
		return
	}
	delete(b.observers, h)
	b.countLocked()
}

func (b *Broadcaster) countLocked() {
	if b.rec != nil {
		b.rec.SetObservers(len(b.observers))
	}
}

func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// Publish hands r to every current observer. Observers that report closed are removed.
func (b *Broadcaster) Publish(r reading.Reading) {
	b.mu.RLock()
	targets := make(map[Handle]Observer, len(b.observers))
	for h, obs := range b.observers {
		targets[h] = obs
	}
	b.mu.RUnlock()

	for h, obs := range targets {
		err := obs.Deliver(r)
		switch {
		case err == nil:
		case errors.Is(err, ErrObserverClosed):
			b.Unsubscribe(h)
		case errors.Is(err, ErrObserverBusy):
			if b.rec != nil {
				b.rec.ReadingDropped()
			}
			b.l.Debug("observer skipped reading", slog.Uint64("handle", uint64(h)))
		default:
			b.l.Warn("observer delivery failed", slog.Uint64("handle", uint64(h)), utils.ErrAttr(err))
		}
	}
}

// Close unregisters every observer and closes those that implement io.Closer.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	observers := b.observers
	b.observers = make(map[Handle]Observer)
	b.closed = true
	b.countLocked()
	b.mu.Unlock()

	for _, obs := range observers {
		if c, ok := obs.(io.Closer); ok {
			utils.LogOnError(b.l, c.Close, "failed to close observer")
		}
	}
}
