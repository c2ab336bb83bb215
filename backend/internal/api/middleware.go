package api

import (
	"bufio"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"smart-led-controller/backend/pkg/utils"
)

// MiddlewareHandler holds the logger for middleware.
type MiddlewareHandler struct {
	l *slog.Logger
}

func NewMiddlewareHandler(l *slog.Logger) *MiddlewareHandler {
	return &MiddlewareHandler{l: l.With(slog.String("component", "http"))}
}

// RequestIDMiddleware takes the request ID from the request header, or generates one,
// and stores it in the request context.
func (m *MiddlewareHandler) RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = utils.NewUUID()
		}

		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), requestID)))
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter

	statusCode   int
	bytesWritten int64
	written      bool
}

// WriteHeader captures the status code.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write captures the status code if WriteHeader was not called.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}

	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// Flush implements http.Flusher if the underlying ResponseWriter supports it.
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack implements http.Hijacker so websocket upgrades pass through.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		rw.written = true
		rw.statusCode = http.StatusSwitchingProtocols
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// LoggerMiddleware adds a request-scoped logger to the context and logs requests.
func (m *MiddlewareHandler) LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLogger := m.l.With(
			slog.String("request_id", GetRequestID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("user_agent", r.UserAgent()),
		)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		reqLogger.Debug("request started")

		next.ServeHTTP(wrapped, r.WithContext(WithLogger(r.Context(), reqLogger)))

		reqLogger.Info("request completed",
			slog.Int("status", wrapped.statusCode),
			slog.Int64("response_bytes", wrapped.bytesWritten),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// RecoveryMiddleware recovers from panics and logs them.
func (m *MiddlewareHandler) RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}

				l := GetLoggerOrNil(r.Context())
				if l == nil {
					l = m.l
				}
				l.Error("panic recovered",
					slog.Any("error", err),
					slog.String("stack", string(debug.Stack())),
				)

				RespondJSON(w, r, http.StatusInternalServerError, &ErrorResponse{
					RequestID: GetRequestID(r.Context()),
					Message:   "Internal Server Error",
				})
			}
		}()

		next.ServeHTTP(w, r)
	})
}
