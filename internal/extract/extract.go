// Package extract pulls embedded text out of uploaded PDF documents. Scanned
// PDFs with no text layer yield an empty string, which sends the caller to
// the OCR provider instead.
package extract

import (
	"bytes"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// IsPDF sniffs the payload for a PDF header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// PDFText extracts the embedded text layer from a PDF payload. Library:
// github.com/ledongthuc/pdf.
func PDFText(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
