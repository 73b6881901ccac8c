package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMainConfig_MissingOptionalFileUsesDefaults(t *testing.T) {
	cfg, err := LoadMainConfig(filepath.Join(t.TempDir(), "absent.yaml"), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	def := Default()
	if cfg.Output.RecordPrefix != def.Output.RecordPrefix {
		t.Errorf("RecordPrefix = %q, want %q", cfg.Output.RecordPrefix, def.Output.RecordPrefix)
	}
	if cfg.Classification.FilenameRule != FilenameRuleFallback {
		t.Errorf("FilenameRule = %q, want fallback", cfg.Classification.FilenameRule)
	}
	if !cfg.Classification.Rules.DuplicateFiling || !cfg.Classification.Rules.UnlinkedEvents {
		t.Errorf("structural rules should be enabled by default: %+v", cfg.Classification.Rules)
	}
}

func TestLoadMainConfig_MissingRequiredFileFails(t *testing.T) {
	if _, err := LoadMainConfig(filepath.Join(t.TempDir(), "absent.yaml"), true); err == nil {
		t.Fatal("expected error for missing required config file")
	}
}

func TestLoadMainConfig_YAMLOverridesKeepUnsetDefaults(t *testing.T) {
	path := writeConfig(t, `
classification:
  shipment_cfops: ["5949"]
  filename_rule: always
  rules:
    duplicate_filing: false
output:
  split_by_kind: true
server:
  read_timeout: 5s
`)

	cfg, err := LoadMainConfig(path, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := cfg.Classification.ShipmentCFOPs; len(got) != 1 || got[0] != "5949" {
		t.Errorf("ShipmentCFOPs = %v, want [5949]", got)
	}
	if cfg.Classification.FilenameRule != FilenameRuleAlways {
		t.Errorf("FilenameRule = %q, want always", cfg.Classification.FilenameRule)
	}
	if cfg.Classification.Rules.DuplicateFiling {
		t.Error("DuplicateFiling should be disabled")
	}
	if !cfg.Classification.Rules.UnlinkedEvents {
		t.Error("UnlinkedEvents should keep its default")
	}
	if !cfg.Output.SplitByKind {
		t.Error("SplitByKind should be enabled")
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Classification.CancelEventType != "110111" {
		t.Errorf("CancelEventType = %q, want default", cfg.Classification.CancelEventType)
	}
}

func TestLoadMainConfig_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
log:
  level: warn
server:
  port: 9000
`)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("APP_PORT", "7070")
	t.Setenv("APP_ENV", "production")

	cfg, err := LoadMainConfig(path, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.App.Environment != "production" {
		t.Errorf("App.Environment = %q, want production", cfg.App.Environment)
	}
	if cfg.Server.Address() != ":7070" {
		t.Errorf("Address() = %q", cfg.Server.Address())
	}
}

func TestLoadMainConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad filename rule", "classification:\n  filename_rule: sometimes\n"},
		{"bad port", "server:\n  port: 70000\n"},
		{"ocr without credentials", "ocr:\n  enabled: true\n"},
		{"bad access key length", "classification:\n  access_key_length: 0\n"},
		{"malformed yaml", "classification: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OCR_ENDPOINT", "")
			t.Setenv("OCR_KEY", "")
			if _, err := LoadMainConfig(writeConfig(t, tt.body), true); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
