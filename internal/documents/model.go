package documents

import "time"

// ReviewStatus is the admin review state of one document.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "PENDING"
	ReviewApproved ReviewStatus = "APPROVED"
	ReviewRejected ReviewStatus = "REJECTED"
)

// ValidReviewStatus reports whether s names a known review state.
func ValidReviewStatus(s ReviewStatus) bool {
	switch s {
	case ReviewPending, ReviewApproved, ReviewRejected:
		return true
	}
	return false
}

// OCRStatus is the terminal state of the latest OCR pass for a document.
type OCRStatus string

const (
	OCRPending OCRStatus = "pending"
	OCRDone    OCRStatus = "done"
	OCRFailed  OCRStatus = "failed"
)

// Document is one uploaded file for an applicant, at most one per document
// type; re-uploading replaces the file.
type Document struct {
	ID          string
	ApplicantID string
	TypeCode    string
	FileName    string
	StorageKey  string
	SizeBytes   int64

	OCRText        string
	OCRData        map[string]string
	OCRStatus      OCRStatus
	OCRProcessedAt *time.Time

	ReviewStatus ReviewStatus
	ReviewNotes  string
	ReviewedBy   string
	ReviewedAt   *time.Time

	UploadedAt time.Time
	UpdatedAt  time.Time
}
