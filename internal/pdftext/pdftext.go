// =============================================================================
// NF-e / DANFE Filter - PDF Text Source
// =============================================================================
//
// This module reads DANFE PDFs. It exposes the plain text of each page,
// used by the pdf-text strategy, and the JPEG images embedded in the file,
// used by the OCR strategy for scanned DANFEs.
//
// The PDF library panics on some malformed or unsupported streams, so every
// call into it is guarded and turned into an error.
//
// =============================================================================

package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned when a PDF has no extractable text layer.
var ErrNoText = errors.New("pdf has no text")

// Reader implements the text and image sources over PDF bytes.
type Reader struct {
	// MaxPages caps how many pages are read; zero reads them all.
	MaxPages int
}

// New creates a Reader.
func New(maxPages int) *Reader {
	return &Reader{MaxPages: maxPages}
}

// PageTexts returns the plain text of each page, in page order.
//
// PARAMETERS:
//   - data: The PDF bytes.
//
// RETURNS:
//   - One string per page that had text.
//   - ErrNoText if no page had text, or a wrapped parse error.
func (r *Reader) PageTexts(data []byte) (pages []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("pdf reader panic: %v", rec)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	total := doc.NumPage()
	if r.MaxPages > 0 && total > r.MaxPages {
		total = r.MaxPages
	}

	for i := 1; i <= total; i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}

	if len(pages) == 0 {
		return nil, ErrNoText
	}
	return pages, nil
}

// =============================================================================
// EMBEDDED IMAGES
// =============================================================================

var (
	jpegStart = []byte{0xFF, 0xD8, 0xFF}
	jpegEnd   = []byte{0xFF, 0xD9}
	endStream = []byte("endstream")
)

// PageImages returns the JPEG (DCTDecode) images embedded in the PDF, in
// file order, up to max images (zero means no limit).
//
// Scanned DANFEs store each page as one JPEG stream. The stream body is the
// JPEG file itself, so it is cut out of the raw bytes between its
// start-of-image marker and the last end-of-image marker before
// "endstream".
func (r *Reader) PageImages(data []byte, max int) ([][]byte, error) {
	var images [][]byte

	offset := 0
	for offset < len(data) {
		start := bytes.Index(data[offset:], jpegStart)
		if start < 0 {
			break
		}
		start += offset

		streamEnd := bytes.Index(data[start:], endStream)
		if streamEnd < 0 {
			break
		}
		streamEnd += start

		end := bytes.LastIndex(data[start:streamEnd], jpegEnd)
		if end > 0 {
			images = append(images, data[start:start+end+len(jpegEnd)])
			if max > 0 && len(images) >= max {
				break
			}
		}
		offset = streamEnd + len(endStream)
	}

	if len(images) == 0 {
		return nil, errors.New("pdf has no embedded jpeg images")
	}
	return images, nil
}
