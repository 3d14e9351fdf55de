package ingest

import (
	"errors"
	"testing"
)

func TestExtractPlainText(t *testing.T) {
	got, err := ExtractText("notes.txt", "text/plain", []byte("  hello world\n"))
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if got != "hello world" {
		t.Errorf("ExtractText() = %q", got)
	}
}

func TestExtractStripsInvalidUTF8(t *testing.T) {
	data := []byte{'o', 'k', 0xff, 0xfe, ' ', 't', 0x00, 'e', 'x', 't'}
	got, err := ExtractText("raw.bin", "application/octet-stream", data)
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if got != "ok text" {
		t.Errorf("ExtractText() = %q, want %q", got, "ok text")
	}
}

func TestExtractMalformedPDF(t *testing.T) {
	_, err := ExtractText("broken.pdf", "application/pdf", []byte("not a pdf"))
	var malformed *MalformedUploadError
	if !errors.As(err, &malformed) {
		t.Fatalf("ExtractText() error = %v, want *MalformedUploadError", err)
	}
}

func TestExtractMalformedXLSX(t *testing.T) {
	_, err := ExtractText("broken.xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		[]byte("not a zip"))
	var malformed *MalformedUploadError
	if !errors.As(err, &malformed) {
		t.Fatalf("ExtractText() error = %v, want *MalformedUploadError", err)
	}
}

func TestFallbackText(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"quarterly_report-2026.pdf", "Document file: quarterly report 2026"},
		{"README", "Document file: README"},
	}
	for _, tt := range tests {
		if got := FallbackText(tt.filename); got != tt.want {
			t.Errorf("FallbackText(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
