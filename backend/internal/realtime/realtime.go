// Package realtime streams readings to browsers over websockets and accepts control
// commands from them.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"smart-led-controller/backend/internal/broadcast"
	"smart-led-controller/backend/internal/control"
	"smart-led-controller/backend/internal/reading"
	"smart-led-controller/backend/pkg/utils"
)

const (
	EventSensorData   = "sensorData"
	EventCommandError = "commandError"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 16
	replyBuffer    = 4
)

// Controller is the part of the lighting service a session talks to.
type Controller interface {
	Subscribe(ctx context.Context, obs broadcast.Observer) (broadcast.Handle, error)
	Unsubscribe(h broadcast.Handle)
	Submit(ctx context.Context, cmd control.Command) (reading.Reading, error)
}

// Frame is the envelope of every websocket message in both directions. Inbound
// frames name a command in Event.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type CommandError struct {
	Command string `json:"command"`
	Error   string `json:"error"`
}

type Handler struct {
	l        *slog.Logger
	ctrl     Controller
	upgrader websocket.Upgrader

	wg sync.WaitGroup
}

// NewHandler accepts upgrades from the listed origins, or from any origin when the
// list is empty or contains "*".
func NewHandler(l *slog.Logger, ctrl Controller, allowedOrigins []string) *Handler {
	anyOrigin := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")

	return &Handler{
		l:    l.With(slog.String("component", "websocket")),
		ctrl: ctrl,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return anyOrigin || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		h.l.Warn("websocket upgrade failed", utils.ErrAttr(err))
		return
	}

	h.wg.Add(1)
	defer h.wg.Done()

	s := &session{
		l:       h.l.With(slog.String("remote_addr", r.RemoteAddr)),
		conn:    conn,
		ctrl:    h.ctrl,
		obs:     broadcast.NewChanObserver(sendBuffer),
		replies: make(chan Frame, replyBuffer),
		done:    make(chan struct{}),
	}
	s.serve(r.Context())
}

// Wait blocks until every open session has ended.
func (h *Handler) Wait() {
	h.wg.Wait()
}

type session struct {
	l       *slog.Logger
	conn    *websocket.Conn
	ctrl    Controller
	obs     *broadcast.ChanObserver
	replies chan Frame
	done    chan struct{}
}

func (s *session) serve(ctx context.Context) {
	defer s.conn.Close()

	handle, err := s.ctrl.Subscribe(ctx, s.obs)
	if err != nil {
		s.l.Warn("failed to subscribe websocket client", utils.ErrAttr(err))
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "controller unavailable")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		return
	}
	s.l.Info("websocket client connected")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump()
	}()

	s.readPump(ctx)

	s.ctrl.Unsubscribe(handle)
	utils.LogOnError(s.l, s.obs.Close, "failed to close observer")
	close(s.done)
	<-writerDone
	s.l.Info("websocket client disconnected")
}

// readPump applies inbound commands until the connection fails.
func (s *session) readPump(ctx context.Context) {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.l.Debug("websocket read failed", utils.ErrAttr(err))
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			s.l.Debug("discarding malformed frame", utils.ErrAttr(err))
			s.reply(CommandError{Error: "malformed frame"})
			continue
		}

		cmd, err := control.DecodeCommand(frame.Event, frame.Data)
		if err == nil {
			_, err = s.ctrl.Submit(ctx, cmd)
		}
		if err != nil {
			s.l.Warn("websocket command rejected", slog.String("command", frame.Event), utils.ErrAttr(err))
			s.reply(CommandError{Command: frame.Event, Error: err.Error()})
		}
	}
}

func (s *session) reply(ce CommandError) {
	data, err := utils.ToJSON(ce)
	if err != nil {
		return
	}
	select {
	case s.replies <- Frame{Event: EventCommandError, Data: data}:
	default:
	}
}

// writePump owns every write to the connection.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case r, ok := <-s.obs.C():
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
				_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				// Drop the read side too so readPump returns.
				_ = s.conn.Close()
				<-s.done
				return
			}
			data, err := utils.ToJSON(r)
			if err != nil {
				s.l.Error("failed to encode reading", utils.ErrAttr(err))
				continue
			}
			if err := s.write(Frame{Event: EventSensorData, Data: data}); err != nil {
				s.fail(err)
				return
			}

		case f := <-s.replies:
			if err := s.write(f); err != nil {
				s.fail(err)
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.fail(err)
				return
			}

		case <-s.done:
			return
		}
	}
}

func (s *session) write(f Frame) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(f)
}

// fail closes the connection after a write error so readPump stops, then waits for
// the session to finish.
func (s *session) fail(err error) {
	if !errors.Is(err, websocket.ErrCloseSent) {
		s.l.Debug("websocket write failed", utils.ErrAttr(err))
	}
	_ = s.conn.Close()
	<-s.done
}
