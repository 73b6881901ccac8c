package pdftext

import (
	"bytes"
	"testing"
)

func TestPageTexts_NotAPDF(t *testing.T) {
	if _, err := New(0).PageTexts([]byte("this is not a pdf")); err == nil {
		t.Fatal("expected error for non-pdf input")
	}
}

func TestPageTexts_Truncated(t *testing.T) {
	if _, err := New(0).PageTexts([]byte("%PDF-1.4\n1 0 obj\n<<")); err == nil {
		t.Fatal("expected error for truncated pdf")
	}
}

func fakeJPEG(payload string) []byte {
	var b bytes.Buffer
	b.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0})
	b.WriteString(payload)
	b.Write([]byte{0xFF, 0xD9})
	return b.Bytes()
}

func TestPageImages(t *testing.T) {
	first := fakeJPEG("page-one")
	second := fakeJPEG("page-two")

	var doc bytes.Buffer
	doc.WriteString("%PDF-1.4\n4 0 obj\n<< /Filter /DCTDecode >>\nstream\n")
	doc.Write(first)
	doc.WriteString("\nendstream\nendobj\n5 0 obj\n<< /Filter /DCTDecode >>\nstream\n")
	doc.Write(second)
	doc.WriteString("\nendstream\nendobj\n%%EOF")

	images, err := New(0).PageImages(doc.Bytes(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("got %d images, want 2", len(images))
	}
	if !bytes.Equal(images[0], first) || !bytes.Equal(images[1], second) {
		t.Error("image bytes do not match the embedded streams")
	}

	limited, err := New(0).PageImages(doc.Bytes(), 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limit not honored: %d images, err %v", len(limited), err)
	}
}

func TestPageImages_None(t *testing.T) {
	if _, err := New(0).PageImages([]byte("%PDF-1.4\n%%EOF"), 0); err == nil {
		t.Fatal("expected error when no images are embedded")
	}
}
