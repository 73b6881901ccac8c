// =============================================================================
// NF-e / DANFE Filter - Rendering Number Strategies
// =============================================================================
//
// A DANFE PDF does not carry structured fields, so its invoice number is
// recovered by an ordered chain of strategies. The first strategy that
// yields a number wins:
//   1. filename  - last run of digits in the entry's base name
//   2. pdf-text  - text patterns over the PDF page text
//   3. ocr       - text recovery over embedded page images
//
// =============================================================================

package extractor

import (
	"context"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/ginjaninja78/nfe-danfe-filter/internal/types"
)

// TextSource returns the plain text of each PDF page.
type TextSource interface {
	PageTexts(data []byte) ([]string, error)
}

// ImageSource returns the images embedded in a PDF, up to max images.
type ImageSource interface {
	PageImages(data []byte, max int) ([][]byte, error)
}

// Recognizer turns an image into text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Strategy is one step of the rendering number chain.
type Strategy struct {
	Name    string
	Extract func(ctx context.Context, name string, data []byte) (types.InvoiceNumber, bool)
}

// Chain tries its strategies in order.
type Chain struct {
	strategies []Strategy
	logger     *slog.Logger
}

// NewChain builds a chain from the given strategies, in priority order.
func NewChain(logger *slog.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Chain{strategies: strategies, logger: logger}
}

// ExtractRendering resolves the invoice number of one DANFE.
func (c *Chain) ExtractRendering(ctx context.Context, name string, data []byte) types.Rendering {
	rendering := types.Rendering{SourceName: name}

	for _, s := range c.strategies {
		if ctx.Err() != nil {
			break
		}
		if n, ok := s.Extract(ctx, name, data); ok {
			c.logger.Debug("danfe number resolved", "entry", name, "strategy", s.Name, "nf", n.Value)
			rendering.InvoiceNumber = n
			return rendering
		}
	}

	c.logger.Debug("danfe number unknown", "entry", name)
	return rendering
}

// =============================================================================
// FILENAME STRATEGY
// =============================================================================

var digitRun = regexp.MustCompile(`\d+`)

// NumberFromFilename returns the last run of digits in the base name.
func NumberFromFilename(name string) (types.InvoiceNumber, bool) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	runs := digitRun.FindAllString(base, -1)
	if len(runs) == 0 {
		return types.InvoiceNumber{}, false
	}
	return types.ParseInvoiceNumber(runs[len(runs)-1])
}

// FilenameStrategy looks at the entry name only.
func FilenameStrategy() Strategy {
	return Strategy{
		Name: "filename",
		Extract: func(_ context.Context, name string, _ []byte) (types.InvoiceNumber, bool) {
			return NumberFromFilename(name)
		},
	}
}

// =============================================================================
// PDF TEXT STRATEGY
// =============================================================================

// textPatterns are tried in this order; the first match wins.
var textPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)invoice\s*no\.?\s*[:#]?\s*(\d[\d.]*)`),
	regexp.MustCompile(`(?i)\bnf-?e\s*n[º°o]\.?\s*[:#]?\s*(\d[\d.]*)`),
	regexp.MustCompile(`(?i)n[º°]\.?\s*[:#]?\s*(\d[\d.]*)`),
	regexp.MustCompile(`(?i)\bno\.?\s*[:#]?\s*(\d[\d.]*)`),
	regexp.MustCompile(`(?i)\bnf\b\.?\s*[:#]?\s*(\d[\d.]*)`),
}

// NumberFromText applies the PDF text patterns. Dots are stripped from the
// captured number.
func NumberFromText(text string) (types.InvoiceNumber, bool) {
	for _, re := range textPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if n, ok := types.ParseInvoiceNumber(strings.ReplaceAll(m[1], ".", "")); ok {
			return n, true
		}
	}
	return types.InvoiceNumber{}, false
}

// TextStrategy reads the PDF page text.
func TextStrategy(source TextSource, logger *slog.Logger) Strategy {
	return Strategy{
		Name: "pdf-text",
		Extract: func(_ context.Context, name string, data []byte) (types.InvoiceNumber, bool) {
			pages, err := source.PageTexts(data)
			if err != nil {
				if logger != nil {
					logger.Debug("pdf text unavailable", "entry", name, "error", err)
				}
				return types.InvoiceNumber{}, false
			}
			return NumberFromText(strings.Join(pages, "\n"))
		},
	}
}

// =============================================================================
// OCR STRATEGY
// =============================================================================

// danfeNumberPattern matches the formatted 9-digit DANFE number (000.000.106).
var danfeNumberPattern = regexp.MustCompile(`\b(\d{3}\.\d{3}\.\d{3})\b`)

// NumberFromRecognizedText applies the OCR pattern.
func NumberFromRecognizedText(text string) (types.InvoiceNumber, bool) {
	m := danfeNumberPattern.FindStringSubmatch(text)
	if m == nil {
		return types.InvoiceNumber{}, false
	}
	return types.ParseInvoiceNumber(strings.ReplaceAll(m[1], ".", ""))
}

// OCRStrategy recognizes every embedded page image until one yields a number.
func OCRStrategy(images ImageSource, recognizer Recognizer, maxImages int, logger *slog.Logger) Strategy {
	return Strategy{
		Name: "ocr",
		Extract: func(ctx context.Context, name string, data []byte) (types.InvoiceNumber, bool) {
			imgs, err := images.PageImages(data, maxImages)
			if err != nil {
				if logger != nil {
					logger.Debug("pdf images unavailable", "entry", name, "error", err)
				}
				return types.InvoiceNumber{}, false
			}
			for i, img := range imgs {
				text, err := recognizer.Recognize(ctx, img)
				if err != nil {
					if logger != nil {
						logger.Warn("ocr failed", "entry", name, "image", i, "error", err)
					}
					continue
				}
				if n, ok := NumberFromRecognizedText(text); ok {
					return n, true
				}
			}
			return types.InvoiceNumber{}, false
		},
	}
}
