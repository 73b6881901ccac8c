package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"

	"github.com/ginjaninja78/nfe-danfe-filter/internal/config"
)

func strPtr(s string) *string { return &s }

func TestTextFromResult(t *testing.T) {
	words := func(ws ...string) *[]computervision.OcrWord {
		out := make([]computervision.OcrWord, 0, len(ws))
		for _, w := range ws {
			out = append(out, computervision.OcrWord{Text: strPtr(w)})
		}
		return &out
	}

	result := computervision.OcrResult{
		Regions: &[]computervision.OcrRegion{
			{Lines: &[]computervision.OcrLine{
				{Words: words("DANFE")},
				{Words: words("Nº", "000.000.106")},
			}},
			{Lines: nil},
		},
	}

	want := "DANFE\nNº 000.000.106\n"
	if got := TextFromResult(result); got != want {
		t.Errorf("TextFromResult() = %q, want %q", got, want)
	}
}

func TestTextFromResult_Empty(t *testing.T) {
	if got := TextFromResult(computervision.OcrResult{}); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestPreprocess(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			src.Set(x, y, color.RGBA{R: uint8(x * 6), G: 80, B: uint8(y * 10), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	out, err := Preprocess(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) < 3 || out[0] != 0xFF || out[1] != 0xD8 {
		t.Fatal("expected JPEG output")
	}
}

func TestPreprocess_Garbage(t *testing.T) {
	if _, err := Preprocess([]byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNewAzureRecognizer_RequiresCredentials(t *testing.T) {
	if _, err := NewAzureRecognizer(config.OCRSettings{Endpoint: "https://example.cognitiveservices.azure.com"}, nil); err == nil {
		t.Fatal("expected error without key")
	}
	r, err := NewAzureRecognizer(config.OCRSettings{
		Endpoint: "https://example.cognitiveservices.azure.com",
		Key:      "secret",
		Language: "pt",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.language != computervision.OcrLanguages("pt") {
		t.Errorf("language = %q, want pt", r.language)
	}
}
