package api

import (
	"time"

	"smart-led-controller/backend/internal/services"
)

// ErrorResponse is the unified error body. It carries either a plain message or a
// message plus field-level validation errors.
//
//nolint:errname // ErrorResponse is an API response type, not a traditional error
type ErrorResponse struct {
	// HTTP status code (internal only, not sent to client)
	StatusCode int `json:"-"`
	// Always false
	Success   bool   `json:"success"`
	RequestID string `json:"requestID"`
	Message   string `json:"error"`
	// Field-level validation errors
	Errors map[string]string `json:"errors,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

// Response wraps every successful payload.
type Response[T any] struct {
	Success    bool                 `json:"success"`
	Data       T                    `json:"data"`
	Pagination *services.Pagination `json:"pagination,omitempty"`
}

func OK[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: data}
}

type PingResponse struct {
	Message string     `json:"message"`
	Status  PingStatus `json:"status"`
	Version string     `json:"version"`
}

type PingStatus string

const (
	PingStatusOK       PingStatus = "OK"
	PingStatusError    PingStatus = "ERROR"
	PingStatusDegraded PingStatus = "DEGRADED"
)

type HealthResponse struct {
	Status    PingStatus `json:"status"`
	Database  bool       `json:"database"`
	Fallback  bool       `json:"fallback,omitempty"`
	MQTT      *bool      `json:"mqtt,omitempty"`
	Breaker   string     `json:"breaker,omitempty"`
	Observers int        `json:"observers"`
	Timestamp time.Time  `json:"timestamp"`
}
