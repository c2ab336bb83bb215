package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"smart-led-controller/backend/internal/reading"
	"smart-led-controller/backend/pkg/utils"
)

// ChanObserver buffers readings on a channel and drops them when the buffer is full.
type ChanObserver struct {
	mu     sync.Mutex
	ch     chan reading.Reading
	closed bool
}

func NewChanObserver(size int) *ChanObserver {
	return &ChanObserver{ch: make(chan reading.Reading, size)}
}

func (o *ChanObserver) C() <-chan reading.Reading { return o.ch }

func (o *ChanObserver) Deliver(r reading.Reading) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrObserverClosed
	}
	select {
	case o.ch <- r:
		return nil
	default:
		return ErrObserverBusy
	}
}

func (o *ChanObserver) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.closed = true
		close(o.ch)
	}
	return nil
}

// SendFunc performs the potentially blocking part of a delivery.
type SendFunc func(ctx context.Context, r reading.Reading) error

// AsyncObserver queues readings and sends them in order on its own goroutine, so a
// blocking transport never stalls the broadcaster. Returning ErrObserverClosed from
// the SendFunc stops the observer.
type AsyncObserver struct {
	l      *slog.Logger
	queue  chan reading.Reading
	send   SendFunc
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewAsyncObserver(l *slog.Logger, name string, size int, send SendFunc) *AsyncObserver {
	ctx, cancel := context.WithCancel(context.Background())
	a := &AsyncObserver{
		l:      l.With(slog.String("observer", name)),
		queue:  make(chan reading.Reading, size),
		send:   send,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncObserver) run() {
	defer close(a.done)
	for {
		select {
		case <-a.ctx.Done():
			return
		case r := <-a.queue:
			err := a.send(a.ctx, r)
			if errors.Is(err, ErrObserverClosed) {
				a.cancel()
				return
			}
			if err != nil && a.ctx.Err() == nil {
				a.l.Warn("failed to send reading", utils.ErrAttr(err))
			}
		}
	}
}

func (a *AsyncObserver) Deliver(r reading.Reading) error {
	if a.ctx.Err() != nil {
		return ErrObserverClosed
	}
	select {
	case a.queue <- r:
		return nil
	default:
		return ErrObserverBusy
	}
}

// Done is closed once the sending goroutine has exited.
func (a *AsyncObserver) Done() <-chan struct{} { return a.done }

func (a *AsyncObserver) Close() error {
	a.cancel()
	<-a.done
	return nil
}
