// =============================================================================
// NF-e / DANFE Filter - Image Text Recovery
// =============================================================================
//
// This module recovers text from scanned DANFE page images using the Azure
// Computer Vision OCR endpoint. Images are cleaned up before upload
// (grayscale, contrast, sharpening) which noticeably improves recognition
// of the small printed invoice number.
//
// =============================================================================

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
	"github.com/disintegration/imaging"

	"github.com/ginjaninja78/nfe-danfe-filter/internal/config"
)

// maxImageSide keeps uploads inside the service's size limits.
const maxImageSide = 3200

// AzureRecognizer calls the Computer Vision printed-text OCR.
type AzureRecognizer struct {
	client   *computervision.BaseClient
	language computervision.OcrLanguages
	timeout  time.Duration
	logger   *slog.Logger
}

// NewAzureRecognizer creates a recognizer from the OCR settings.
func NewAzureRecognizer(cfg config.OCRSettings, logger *slog.Logger) (*AzureRecognizer, error) {
	if cfg.Endpoint == "" || cfg.Key == "" {
		return nil, fmt.Errorf("ocr endpoint and key are required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client := computervision.New(cfg.Endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(cfg.Key)

	return &AzureRecognizer{
		client:   &client,
		language: computervision.OcrLanguages(cfg.Language),
		timeout:  cfg.Timeout,
		logger:   logger,
	}, nil
}

// Recognize preprocesses one image and returns the recognized text, one
// line per OCR line.
func (r *AzureRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	processed, err := Preprocess(image)
	if err != nil {
		return "", err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	result, err := r.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(bytes.NewReader(processed)),
		r.language,
	)
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}

	text := TextFromResult(result)
	r.logger.Debug("ocr completed", "bytes", len(image), "chars", len(text))
	return text, nil
}

// Preprocess decodes an image, cleans it up for OCR and re-encodes it as
// JPEG.
func Preprocess(image []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(image), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)
	img = imaging.AdjustBrightness(img, 10)
	img = imaging.AdjustGamma(img, 1.2)

	b := img.Bounds()
	if b.Dx() > maxImageSide || b.Dy() > maxImageSide {
		img = imaging.Fit(img, maxImageSide, maxImageSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// TextFromResult flattens an OCR result into lines of space-joined words.
func TextFromResult(result computervision.OcrResult) string {
	if result.Regions == nil {
		return ""
	}

	var out strings.Builder
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			words := make([]string, 0, len(*line.Words))
			for _, word := range *line.Words {
				if word.Text != nil {
					words = append(words, *word.Text)
				}
			}
			out.WriteString(strings.Join(words, " "))
			out.WriteByte('\n')
		}
	}
	return out.String()
}
