package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	DocumentID     string            `json:"documentId"`
	ApplicantID    string            `json:"applicantId"`
	TypeCode       string            `json:"typeCode"`
	FileName       string            `json:"fileName"`
	SizeBytes      int64             `json:"sizeBytes"`
	OCRStatus      string            `json:"ocrStatus"`
	OCRData        map[string]string `json:"ocrData"`
	OCRProcessedAt *time.Time        `json:"ocrProcessedAt,omitempty"`
	ReviewStatus   string            `json:"reviewStatus"`
	ReviewNotes    string            `json:"reviewNotes,omitempty"`
	ReviewedBy     string            `json:"reviewedBy,omitempty"`
	ReviewedAt     *time.Time        `json:"reviewedAt,omitempty"`
	UploadedAt     time.Time         `json:"uploadedAt"`
}

func toResponse(doc Document) DocumentResponse {
	data := doc.OCRData
	if data == nil {
		data = map[string]string{}
	}
	return DocumentResponse{
		DocumentID:     doc.ID,
		ApplicantID:    doc.ApplicantID,
		TypeCode:       doc.TypeCode,
		FileName:       doc.FileName,
		SizeBytes:      doc.SizeBytes,
		OCRStatus:      string(doc.OCRStatus),
		OCRData:        data,
		OCRProcessedAt: doc.OCRProcessedAt,
		ReviewStatus:   string(doc.ReviewStatus),
		ReviewNotes:    doc.ReviewNotes,
		ReviewedBy:     doc.ReviewedBy,
		ReviewedAt:     doc.ReviewedAt,
		UploadedAt:     doc.UploadedAt,
	}
}

// DocumentTypeResponse is one entry of the public document-type listing.
type DocumentTypeResponse struct {
	Code       string   `json:"code"`
	Name       string   `json:"name"`
	Format     string   `json:"format"`
	Extensions []string `json:"extensions"`
	MaxBytes   int64    `json:"maxBytes"`
	Required   bool     `json:"required"`
}
