package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "WARN", Format: "json", Output: &buf})
	l.Info("hidden")
	l.Warn("shown", "path", "/data/r0.csv")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected INFO to be filtered at WARN, got %q", out)
	}
	if !strings.Contains(out, `"path":"/data/r0.csv"`) {
		t.Errorf("Expected JSON attribute in output, got %q", out)
	}
}

func TestOr(t *testing.T) {
	l := New(Config{Output: &bytes.Buffer{}})
	if Or(l) != l {
		t.Error("Expected Or to return the given logger")
	}
	if Or(nil) == nil {
		t.Error("Expected Or(nil) to fall back to the global logger")
	}
}
