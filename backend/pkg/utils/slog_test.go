package utils

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLogWriter_Write(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantLines int
	}{
		{name: "single line", input: "applied migration\n", wantLines: 1},
		{name: "no newline", input: "applied migration", wantLines: 1},
		{name: "empty", input: "", wantLines: 0},
		{name: "only newlines", input: "\n\n", wantLines: 0},
		{name: "two lines", input: "one\ntwo\n", wantLines: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			w := NewSlogWriter(slog.New(slog.NewTextHandler(&buf, nil)))

			n, err := w.Write([]byte(tt.input))
			if err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if n != len(tt.input) {
				t.Errorf("Write() n = %d, want %d", n, len(tt.input))
			}
			if got := strings.Count(buf.String(), "\n"); got != tt.wantLines {
				t.Errorf("Write() produced %d records, want %d: %q", got, tt.wantLines, buf.String())
			}
		})
	}
}

func TestErrAttr(t *testing.T) {
	t.Parallel()

	err := errors.New("store down")
	attr := ErrAttr(err)
	if attr.Key != "error" {
		t.Errorf("ErrAttr() key = %q", attr.Key)
	}
	if attr.Value.Any() != err {
		t.Errorf("ErrAttr() value = %v", attr.Value.Any())
	}
}

func TestSlogReplacer(t *testing.T) {
	t.Parallel()

	ts := SlogReplacer(nil, slog.Time("t", time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)))
	if ts.Value.String() != "2024-01-15 10:30:45" {
		t.Errorf("time = %q", ts.Value.String())
	}

	d := SlogReplacer(nil, slog.Duration("d", 2*time.Second))
	if d.Value.Kind() != slog.KindString || d.Value.String() != "2s" {
		t.Errorf("duration = %v", d.Value)
	}

	n := SlogReplacer(nil, slog.Int("pwm", 128))
	if n.Value.Kind() != slog.KindInt64 || n.Value.Int64() != 128 {
		t.Errorf("int = %v", n.Value)
	}
}

func TestLogOnError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))

	LogOnError(l, func() error { return nil }, "close")
	if buf.Len() != 0 {
		t.Fatalf("unexpected log output: %s", buf.String())
	}

	LogOnError(l, func() error { return errors.New("boom") }, "close failed")
	out := buf.String()
	if !strings.Contains(out, "close failed") || !strings.Contains(out, "boom") {
		t.Errorf("missing message or error in %q", out)
	}
}
