package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"default config", DefaultConfig()},
		{"json format", Config{Level: "debug", Format: "json"}},
		{"empty config", Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if l == nil {
				t.Fatal("New() returned nil logger")
			}
			if l.Slog() == nil {
				t.Error("Slog() returned nil")
			}
		})
	}
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"unknown format", Config{Level: "info", Format: "logfmt"}, "unknown format"},
		{"unknown level", Config{Level: "loud"}, "unknown level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("New() error = %v, want %q", err, tt.want)
			}
			if l != nil {
				t.Error("New() returned a logger with an error")
			}
		})
	}
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Config{Level: "warn", Format: "json", Output: &buf})

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below warn should be filtered, got: %s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("warn and error messages missing, got: %s", out)
	}
}

func TestSetLevel(t *testing.T) {
	defer func() { _ = SetLevel("warn") }()

	var buf bytes.Buffer
	l, _ := New(Config{Level: "error", Format: "json", Output: &buf})

	l.Info("hidden")
	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel(debug) error = %v", err)
	}
	if got := CurrentLevel(); got != "debug" {
		t.Errorf("CurrentLevel() = %q, want debug", got)
	}
	if err := SetLevel("loud"); err == nil {
		t.Error("SetLevel(loud) should fail")
	}
	if got := CurrentLevel(); got != "debug" {
		t.Errorf("CurrentLevel() after bad SetLevel = %q, want debug", got)
	}
	l.Debug("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info should be filtered at error level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("debug should be emitted after SetLevel(debug)")
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Config{Level: "info", Format: "json", Output: &buf})

	l.With("component", "session").Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parse log: %v", err)
	}
	if entry["component"] != "session" {
		t.Errorf("component = %v, want session", entry["component"])
	}
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Config{Level: "info", Format: "json", Output: &buf})

	l.WithContext(context.Background()).Info("ctx message")
	if !strings.Contains(buf.String(), "ctx message") {
		t.Error("WithContext logger did not emit")
	}
}

func TestNop(t *testing.T) {
	// Must not panic.
	Nop().With("k", "v").Error("discarded")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"":        "WARN",
		"debug":   "DEBUG",
		"INFO":    "INFO",
		"warning": "WARN",
		" error ": "ERROR",
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error = %v", in, err)
			continue
		}
		if got.String() != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := ParseLevel("bogus"); err == nil {
		t.Error("ParseLevel(bogus) should fail")
	}
}
