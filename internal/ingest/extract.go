// Package ingest implements the document ingestion pipeline: text
// extraction, chunking, categorization, metadata generation and the
// orchestration that ties them to the stores.
package ingest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// MalformedUploadError indicates the uploaded bytes could not be parsed as
// the declared format. This is a hard failure: the document is marked
// failed.
type MalformedUploadError struct {
	Filename string
	Cause    error
}

func (e *MalformedUploadError) Error() string {
	return fmt.Sprintf("malformed upload %s: %v", e.Filename, e.Cause)
}

func (e *MalformedUploadError) Unwrap() error { return e.Cause }

// ExtractText converts uploaded bytes into plain text based on the declared
// content type and filename extension. An empty result is not an error; the
// pipeline substitutes filename-derived text. Unrecognized binary formats
// fall through to a best-effort UTF-8 read.
func ExtractText(filename, contentType string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case ext == ".pdf" || contentType == "application/pdf":
		return extractPDF(filename, data)
	case ext == ".xlsx" || ext == ".xlsm" ||
		strings.Contains(contentType, "spreadsheetml"):
		return extractXLSX(filename, data)
	default:
		return sanitizeText(data), nil
	}
}

// FallbackText synthesizes minimal text from the filename so downstream
// stages always have input.
func FallbackText(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return "Document file: " + strings.TrimSpace(base)
}

func extractPDF(filename string, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &MalformedUploadError{Filename: filename, Cause: err}
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not fail the document.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}

func extractXLSX(filename string, data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", &MalformedUploadError{Filename: filename, Cause: err}
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " "))
			if line == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// sanitizeText reads bytes as UTF-8, dropping invalid sequences and NUL
// bytes that upset the database driver.
func sanitizeText(data []byte) string {
	if utf8.Valid(data) && !bytes.ContainsRune(data, 0) {
		return strings.TrimSpace(string(data))
	}
	var sb strings.Builder
	sb.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		if r == utf8.RuneError && size == 1 {
			continue
		}
		if r == 0 {
			continue
		}
		sb.WriteRune(r)
	}
	return strings.TrimSpace(sb.String())
}
