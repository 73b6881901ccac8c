package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter_JSONInProduction(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "nfefilter", "info", "production")
	log.Debug("hidden")
	log.Info("visible", "nf", 106)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["app"] != "nfefilter" || entry["msg"] != "visible" || entry["nf"] != float64(106) {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNewWithWriter_TextInLocal(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "nfefilter", "debug", "local").Debug("detalhe")

	out := buf.String()
	if !strings.Contains(out, "level=DEBUG") || !strings.Contains(out, "msg=detalhe") {
		t.Errorf("unexpected output: %q", out)
	}
	if strings.Contains(out, "\033[") {
		t.Error("colors must be off for non-terminal writers")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
