package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestComponentLoggingJSON(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	SetLogger(New(&buf, "debug", "json"))
	defer SetLogger(prev)

	InfoWithComponent(ComponentRenderer, "rendered page", "route", "/hello.png")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != ComponentRenderer {
		t.Errorf("Expected component %q, got %v", ComponentRenderer, entry["component"])
	}
	if entry["route"] != "/hello.png" {
		t.Errorf("Expected route attribute, got %v", entry["route"])
	}
}

func TestTextLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	SetLogger(New(&buf, "warn", "text"))
	defer SetLogger(prev)

	Info("hidden")
	Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Info should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("Expected warn output, got %q", out)
	}
}
