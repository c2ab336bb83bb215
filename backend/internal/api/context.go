package api

import (
	"context"
	"log/slog"
)

type (
	loggerKey    struct{}
	requestIDKey struct{}
)

// WithLogger adds a request-scoped logger to the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the request-scoped logger from context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l := GetLoggerOrNil(ctx); l != nil {
		return l
	}
	return slog.Default()
}

func GetLoggerOrNil(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return nil
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return requestID
	}
	return zeroUUID
}
