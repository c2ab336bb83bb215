package utils

import (
	"bytes"
	"context"
	"log/slog"
	"time"
)

// ErrAttr returns the attribute every component uses to attach an error to a log record.
func ErrAttr(err error) slog.Attr {
	return slog.Any("error", err)
}

// SlogReplacer renders times and durations in a human-readable form.
func SlogReplacer(_ []string, a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindTime:
		return slog.String(a.Key, a.Value.Time().Format(time.DateTime))
	case slog.KindDuration:
		return slog.String(a.Key, a.Value.Duration().String())
	}
	return a
}

// LogOnError runs fn and logs its error, if any. Meant for deferred Close calls.
func LogOnError(l *slog.Logger, fn func() error, msg string) {
	if err := fn(); err != nil {
		l.Error(msg, ErrAttr(err))
	}
}

// LogWriter adapts libraries that want an io.Writer (dbmate, std log) to slog.
type LogWriter struct {
	logger *slog.Logger
	level  slog.Level
}

func NewSlogWriter(l *slog.Logger) *LogWriter {
	return &LogWriter{logger: l, level: slog.LevelInfo}
}

// Write logs every non-empty line of p as a separate record.
func (w *LogWriter) Write(p []byte) (int, error) {
	for line := range bytes.SplitSeq(p, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		w.logger.Log(context.Background(), w.level, string(line))
	}
	return len(p), nil
}
