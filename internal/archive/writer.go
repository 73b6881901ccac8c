package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrDuplicateEntry is returned by Add for a name already written.
var ErrDuplicateEntry = errors.New("duplicate archive entry")

// Writer builds the result archive in memory.
type Writer struct {
	buf      bytes.Buffer
	zw       *zip.Writer
	modified time.Time
	names    map[string]struct{}
}

// NewWriter creates a Writer. Every entry is stamped with modified.
func NewWriter(modified time.Time) *Writer {
	w := &Writer{modified: modified, names: make(map[string]struct{})}
	w.zw = zip.NewWriter(&w.buf)
	return w
}

// Add writes one deflated entry. Name parts are joined with "/"; an entry
// name already present is rejected.
func (w *Writer) Add(data []byte, parts ...string) error {
	name := Join(parts...)
	if _, dup := w.names[name]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateEntry, name)
	}
	w.names[name] = struct{}{}

	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: w.modified,
	}
	fw, err := w.zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("failed to create entry %q: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("failed to write entry %q: %w", name, err)
	}
	return nil
}

// Bytes finalizes the archive and returns its content.
func (w *Writer) Bytes() ([]byte, error) {
	if err := w.zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize zip archive: %w", err)
	}
	return w.buf.Bytes(), nil
}

// Join builds an entry name from non-empty parts. Empty, "." and ".."
// segments and drive letters are dropped, so a part never climbs above
// the parts before it.
func Join(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		for _, seg := range strings.Split(strings.ReplaceAll(p, "\\", "/"), "/") {
			if seg == "" || seg == "." || seg == ".." || isDriveLetter(seg) {
				continue
			}
			kept = append(kept, seg)
		}
	}
	return strings.Join(kept, "/")
}

func isDriveLetter(seg string) bool {
	return len(seg) == 2 && seg[1] == ':' &&
		(('a' <= seg[0] && seg[0] <= 'z') || ('A' <= seg[0] && seg[0] <= 'Z'))
}
