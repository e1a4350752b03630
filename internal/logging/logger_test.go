package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_Formats(t *testing.T) {
	t.Parallel()

	// A bytes.Buffer is not a terminal, so "auto" means JSON.
	for _, format := range []string{"json", "auto"} {
		var buf bytes.Buffer
		New("info", format, &buf).Info("hello", "rows", 3)
		var m map[string]any
		if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
			t.Fatalf("format %q: output %q is not JSON: %v", format, buf.String(), err)
		}
		if m["msg"] != "hello" || m["rows"] != float64(3) {
			t.Fatalf("format %q: record = %v", format, m)
		}
	}

	var buf bytes.Buffer
	New("info", "text", &buf).Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Fatalf("text output = %q", buf.String())
	}
}

func TestNew_LevelFilters(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New("warn", "text", &buf)
	l.Info("dropped")
	l.Warn("kept")
	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New("info", "json", &buf)
	ctx := WithFields(WithContext(context.Background(), l), "run_id", "abc")
	FromContext(ctx).Info("step")
	if !strings.Contains(buf.String(), `"run_id":"abc"`) {
		t.Fatalf("output = %q", buf.String())
	}
	if FromContext(context.Background()) != slog.Default() {
		t.Fatal("empty context should fall back to slog.Default()")
	}
}
