package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("resultado_filtrado_{uuid}.zip", nil)
	re := regexp.MustCompile(`^resultado_filtrado_[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.zip$`)
	if !re.MatchString(name) {
		t.Errorf("unexpected name %q", name)
	}

	if other := GenerateOutputFileName("resultado_filtrado_{uuid}.zip", nil); other == name {
		t.Error("names should be unique")
	}

	if got := GenerateOutputFileName("lote_{run}", map[string]string{"run": "42"}); got != "lote_42.zip" {
		t.Errorf("got %q, want lote_42.zip", got)
	}
}

func TestWriteOutputFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "saida", "zips")

	path, err := WriteOutputFile(dir, "r.zip", []byte("PK"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != filepath.Join(dir, "r.zip") {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "PK" {
		t.Fatalf("read back: %q, %v", data, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestReadOptionalFile(t *testing.T) {
	data, err := ReadOptionalFile("")
	if data != nil || err != nil {
		t.Errorf("empty path: %v, %v", data, err)
	}

	path := filepath.Join(t.TempDir(), "vazio.zip")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	data, err = ReadOptionalFile(path)
	if err != nil || data == nil {
		t.Errorf("empty file must be supplied but empty: %v, %v", data, err)
	}
	if !FileExists(path) || FileExists(filepath.Join(t.TempDir(), "nada")) {
		t.Error("FileExists mismatch")
	}

	if _, err := ReadOptionalFile(filepath.Join(t.TempDir(), "nada.zip")); err == nil {
		t.Error("expected error for a missing file")
	}
}
