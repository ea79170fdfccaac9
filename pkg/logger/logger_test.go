package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{" debug ", slog.LevelDebug},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewText("info", &buf)
	logger.Info("test message")
	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("Expected log output to contain 'test message', got: %s", buf.String())
	}
}

func TestNewWithFormat(t *testing.T) {
	var buf bytes.Buffer
	NewWithFormat("text", "info", &buf).Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "k=v") {
		t.Errorf("Expected text output, got: %s", buf.String())
	}

	buf.Reset()
	NewWithFormat("json", "info", &buf).Info("hello", "k", "v")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		logFunc  func(string, ...any)
		logMsg   string
		expected bool
	}{
		{"Debug when debug level", "debug", Debug, "debug message", true},
		{"Debug when info level", "info", Debug, "debug message", false},
		{"Info when warn level", "warn", Info, "info message", false},
		{"Warn when info level", "info", Warn, "warn message", true},
		{"Error when info level", "info", Error, "error message", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetDefault(New(tt.logLevel, &buf))

			tt.logFunc(tt.logMsg)
			output := buf.String()

			if tt.expected && !strings.Contains(output, tt.logMsg) {
				t.Errorf("Expected log output to contain '%s', got: %s", tt.logMsg, output)
			}
			if !tt.expected && strings.Contains(output, tt.logMsg) {
				t.Errorf("Expected log output NOT to contain '%s', but it did: %s", tt.logMsg, output)
			}
		})
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(New("info", &buf))

	Info("candidate evaluated", "material", "WS2", "layers", 5)

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log output: %v", err)
	}
	if logEntry["msg"] != "candidate evaluated" {
		t.Errorf("Expected msg 'candidate evaluated', got '%v'", logEntry["msg"])
	}
	if logEntry["material"] != "WS2" {
		t.Errorf("Expected material 'WS2', got '%v'", logEntry["material"])
	}
	if logEntry["layers"] != float64(5) {
		t.Errorf("Expected layers 5, got '%v'", logEntry["layers"])
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(New("info", &buf))

	Component("search").Info("started")
	if !strings.Contains(buf.String(), `"component":"search"`) {
		t.Errorf("Expected component attribute, got: %s", buf.String())
	}

	buf.Reset()
	With("run_id", "abc").Info("done")
	if !strings.Contains(buf.String(), "abc") {
		t.Errorf("Expected run_id attribute, got: %s", buf.String())
	}
}
