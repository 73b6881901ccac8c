// =============================================================================
// NF-e / DANFE Filter - Archive I/O
// =============================================================================
//
// This module reads the uploaded ZIP archives and writes the result archive.
// Archives are handled entirely in memory; nothing is extracted to disk.
//
// =============================================================================

package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
)

// Entry is one file read from an archive.
type Entry struct {
	Name string
	Data []byte
}

// Read returns the archive entries whose extension is in exts
// (case-insensitive), in archive order. Directories and macOS resource
// forks are skipped. An entry that cannot be decompressed is logged and
// skipped.
//
// RETURNS:
//   - The matching entries.
//   - An error if data is not a ZIP archive.
func Read(data []byte, exts []string, logger *slog.Logger) ([]Entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open zip archive: %w", err)
	}

	var entries []Entry
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || isResourceFork(f.Name) || !hasExtension(f.Name, exts) {
			continue
		}

		content, err := readFile(f)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping unreadable archive entry", "entry", f.Name, "error", err)
			}
			continue
		}
		entries = append(entries, Entry{Name: f.Name, Data: content})
	}
	return entries, nil
}

func readFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func hasExtension(name string, exts []string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func isResourceFork(name string) bool {
	return strings.HasPrefix(name, "__MACOSX/") || strings.HasPrefix(path.Base(name), "._")
}
