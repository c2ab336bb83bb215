// Package api serves the REST surface: history, analytics, live state and control
// commands.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"smart-led-controller/backend/pkg/utils"
)

const (
	MaxBodySize     = 1048576 // 1MB
	MaxBodyText     = "1MB"
	RequestIDHeader = "X-Request-ID"

	ReadHeaderTimeout = 5 * time.Second
	ReadTimeout       = 30 * time.Second
	WriteTimeout      = 30 * time.Second
	IdleTimeout       = 120 * time.Second
	ShutdownTimeout   = 30 * time.Second
)

const zeroUUID = "00000000-0000-0000-0000-000000000000"

type HTTPServer struct {
	l      *slog.Logger
	server *http.Server
}

func NewHTTPServer(l *slog.Logger, addr string, handler http.Handler) *HTTPServer {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}
	srv.SetKeepAlivesEnabled(true)

	return &HTTPServer{
		l:      l.With(slog.String("component", "http-server")),
		server: srv,
	}
}

// StartOnBackground serves until shutdown and calls cancel if the listener fails.
func (s *HTTPServer) StartOnBackground(cancel context.CancelFunc) {
	go func() {
		s.l.Info("http server listening", slog.String("address", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.l.Error("http server failed", utils.ErrAttr(err))
			cancel()
		}
	}()
}

func (s *HTTPServer) ShutdownWithDefaultTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// HandlerFunc is a HTTP handler that can return an error.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

func NewError(statusCode int, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Message:    message,
	}
}

func NewValidationError(fieldErrors map[string]string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: http.StatusBadRequest,
		Message:    "Validation failed",
		Errors:     fieldErrors,
	}
}

// ErrorHandler wraps handlers with error handling.
func ErrorHandler(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := GetLogger(r.Context())
		requestID := GetRequestID(r.Context())

		err := fn(w, r)
		if err == nil {
			return
		}

		// Expected HTTP errors are returned to the client as-is
		var httpErr *ErrorResponse
		if errors.As(err, &httpErr) {
			httpErr.RequestID = requestID
			l.Warn("handler returned HTTP error", slog.Int("status", httpErr.StatusCode), slog.String("message", httpErr.Message))
			RespondJSON(w, r, httpErr.StatusCode, httpErr)

			return
		}

		// Internal errors are logged in full, the client only gets a generic message
		l.Error("internal error", utils.ErrAttr(err))
		RespondJSON(w, r, http.StatusInternalServerError, &ErrorResponse{
			RequestID: requestID,
			Message:   "Internal Server Error",
		})
	}
}

// RespondJSON sends a JSON response with the given status code. If data is nil only
// headers are sent. Encoding errors are logged, the status is already written.
func RespondJSON(w http.ResponseWriter, r *http.Request, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data == nil {
		return
	}

	if err := utils.ToJSONStream(w, data); err != nil {
		GetLogger(r.Context()).Error("failed to encode JSON response", utils.ErrAttr(err))
	}
}

// DecodeJSON decodes the request body into T, mapping decoder failures to 4xx errors.
//
//nolint:ireturn // Generic functions must return type parameter T
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var zero T

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	res, err := utils.FromJSONStream[T](r.Body)
	if err != nil {
		var (
			syntaxError        *json.SyntaxError
			unmarshalTypeError *json.UnmarshalTypeError
			maxBytesError      *http.MaxBytesError
		)

		switch {
		case errors.As(err, &syntaxError):
			return zero, NewError(http.StatusBadRequest, fmt.Sprintf("Invalid JSON syntax at position %d", syntaxError.Offset))

		case errors.As(err, &unmarshalTypeError):
			return zero, NewError(http.StatusBadRequest, fmt.Sprintf("Invalid type for field '%s'", unmarshalTypeError.Field))

		case errors.Is(err, io.EOF):
			return zero, NewError(http.StatusBadRequest, "Request body is empty")

		case errors.Is(err, io.ErrUnexpectedEOF):
			return zero, NewError(http.StatusBadRequest, "Malformed JSON")

		case errors.As(err, &maxBytesError):
			return zero, NewError(http.StatusRequestEntityTooLarge, "Request body too large (max "+MaxBodyText+")")

		case errors.Is(err, utils.ErrExtraDataAfterJSON):
			return zero, NewError(http.StatusBadRequest, "Request body contains multiple JSON objects")

		case strings.HasPrefix(err.Error(), "json: unknown field"):
			return zero, NewError(http.StatusBadRequest, err.Error())

		default:
			return zero, NewError(http.StatusBadRequest, "Invalid JSON payload")
		}
	}

	return res, nil
}

// readBody reads a small raw body, for payloads that are decoded elsewhere.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			return nil, NewError(http.StatusRequestEntityTooLarge, "Request body too large (max "+MaxBodyText+")")
		}
		return nil, NewError(http.StatusBadRequest, "Failed to read request body")
	}
	return data, nil
}
