package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Denis-Evseev/google-daily-trends/pkg/config"
)

func jsonConfig(level string) *config.Config {
	return &config.Config{Env: "test", LogLevel: level, LogFormat: "json"}
}

// decodeLines parses every JSON log line written to buf
func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel zerolog.Level
	}{
		{"debug level", "debug", zerolog.DebugLevel},
		{"info level", "info", zerolog.InfoLevel},
		{"warn level", "warn", zerolog.WarnLevel},
		{"error level", "error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if l := NewWithWriter(jsonConfig(tt.level), &buf); l == nil {
				t.Fatal("Expected logger to be created")
			}
			if zerolog.GlobalLevel() != tt.wantLevel {
				t.Errorf("Expected global level %v, got %v", tt.wantLevel, zerolog.GlobalLevel())
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(jsonConfig("warn"), &buf)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Errorf("shown %d", 2)

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d: %s", len(lines), buf.String())
	}
	if lines[0]["level"] != "warn" || lines[1]["message"] != "shown 2" {
		t.Errorf("Unexpected entries: %v", lines)
	}
	if lines[0]["env"] != "test" {
		t.Errorf("Expected env field, got %v", lines[0]["env"])
	}
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(jsonConfig("debug"), &buf)

	l.WithComponent("stitcher").
		WithKeyword("iphone").
		WithFields(map[string]interface{}{"window": "2020-01-01 2020-09-26"}).
		WithError(errors.New("boom")).
		Info("window failed")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(lines))
	}
	got := lines[0]
	want := map[string]string{
		"component": "stitcher",
		"keyword":   "iphone",
		"window":    "2020-01-01 2020-09-26",
		"error":     "boom",
		"message":   "window failed",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("field %q = %v, want %v", k, got[k], v)
		}
	}
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWithWriter(jsonConfig("info"), &buf)
	_ = parent.WithField("child", true)

	parent.Info("plain")
	lines := decodeLines(t, &buf)
	if _, ok := lines[0]["child"]; ok {
		t.Error("Expected parent logger to stay unchanged")
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("discarded")
	l.WithKeyword("x").Warnf("discarded %d", 1)
}
