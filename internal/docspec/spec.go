package docspec

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Size caps by policy: document-class PDFs and identity/photo-class images.
const (
	MaxPDFBytes   = 2 * 1024 * 1024
	MaxImageBytes = 500 * 1024
)

// Format describes the broad file class a document type accepts.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatImage Format = "image"
)

// Spec is the static validation contract for one document type code.
type Spec struct {
	Code       string
	Name       string
	Format     Format
	Extensions []string
	MaxBytes   int64
	Required   bool
	SortOrder  int
}

var (
	pdfExtensions = []string{".pdf"}
	// PNG often comes from phones; it is normalized to JPG by the optimizer.
	imageExtensions = []string{".jpg", ".jpeg", ".png"}
)

var specs = []Spec{
	{Code: "ijasah", Name: "Ijasah", Format: FormatPDF, Extensions: pdfExtensions, MaxBytes: MaxPDFBytes, Required: true, SortOrder: 1},
	{Code: "sertifikat-keterampilan", Name: "Sertifikat Keterampilan", Format: FormatPDF, Extensions: pdfExtensions, MaxBytes: MaxPDFBytes, Required: false, SortOrder: 2},
	{Code: "ijin-keluarga", Name: "Ijin Keluarga", Format: FormatPDF, Extensions: pdfExtensions, MaxBytes: MaxPDFBytes, Required: true, SortOrder: 3},
	{Code: "surat-keterangan-pemberi-ijin", Name: "Surat Keterangan Pemberi Ijin", Format: FormatPDF, Extensions: pdfExtensions, MaxBytes: MaxPDFBytes, Required: true, SortOrder: 4},
	{Code: "surat-kesehatan", Name: "Surat Kesehatan", Format: FormatPDF, Extensions: pdfExtensions, MaxBytes: MaxPDFBytes, Required: true, SortOrder: 5},
	{Code: "surat-keterangan-status-perkawinan", Name: "Surat Keterangan Status Perkawinan", Format: FormatPDF, Extensions: pdfExtensions, MaxBytes: MaxPDFBytes, Required: true, SortOrder: 6},
	{Code: "perjanjian-penempatan", Name: "Perjanjian Penempatan", Format: FormatPDF, Extensions: pdfExtensions, MaxBytes: MaxPDFBytes, Required: true, SortOrder: 7},
	{Code: "photo-tki", Name: "Photo TKI", Format: FormatImage, Extensions: imageExtensions, MaxBytes: MaxImageBytes, Required: true, SortOrder: 8},
	{Code: "ktp", Name: "KTP", Format: FormatImage, Extensions: imageExtensions, MaxBytes: MaxImageBytes, Required: true, SortOrder: 9},
	{Code: "kartu-keluarga", Name: "Kartu Keluarga", Format: FormatImage, Extensions: imageExtensions, MaxBytes: MaxImageBytes, Required: true, SortOrder: 10},
	{Code: "kartu-bpjs", Name: "Kartu BPJS", Format: FormatImage, Extensions: imageExtensions, MaxBytes: MaxImageBytes, Required: true, SortOrder: 11},
	{Code: "paspor", Name: "Paspor", Format: FormatImage, Extensions: imageExtensions, MaxBytes: MaxImageBytes, Required: false, SortOrder: 12},
}

var byCode = func() map[string]Spec {
	m := make(map[string]Spec, len(specs))
	for _, s := range specs {
		m[s.Code] = s
	}
	return m
}()

// Lookup returns the spec for a document type code.
func Lookup(code string) (Spec, bool) {
	s, ok := byCode[strings.ToLower(strings.TrimSpace(code))]
	return s, ok
}

// All returns every spec ordered by sort order.
func All() []Spec {
	out := make([]Spec, len(specs))
	copy(out, specs)
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// RequiredCodes returns the codes every applicant must have approved for
// document completeness.
func RequiredCodes() []string {
	var out []string
	for _, s := range All() {
		if s.Required {
			out = append(out, s.Code)
		}
	}
	return out
}

// IsImageType reports whether the document type expects an image file.
func IsImageType(code string) bool {
	s, ok := Lookup(code)
	return ok && s.Format == FormatImage
}

// InvalidFormatError reports a file extension outside the allowed set.
type InvalidFormatError struct {
	TypeCode string
	Allowed  []string
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid format for %s: format must be one of: %s", e.TypeCode, strings.Join(e.Allowed, ", "))
}

// FileTooLargeError reports a file over the type's byte cap.
type FileTooLargeError struct {
	TypeCode   string
	MaxBytes   int64
	ActualSize int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file too large for %s: %d bytes exceeds limit of %d bytes", e.TypeCode, e.ActualSize, e.MaxBytes)
}

// Validate checks a file name and size against the spec for typeCode.
// Unknown type codes validate successfully; callers may tighten this at the
// API boundary.
func Validate(fileName string, sizeBytes int64, typeCode string) error {
	spec, ok := Lookup(typeCode)
	if !ok {
		return nil
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	allowed := false
	for _, e := range spec.Extensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return &InvalidFormatError{TypeCode: spec.Code, Allowed: spec.Extensions}
	}

	if sizeBytes > spec.MaxBytes {
		return &FileTooLargeError{TypeCode: spec.Code, MaxBytes: spec.MaxBytes, ActualSize: sizeBytes}
	}
	return nil
}
