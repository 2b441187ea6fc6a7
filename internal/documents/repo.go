package documents

import (
	"context"
	"time"
)

// Repo defines persistence operations for documents. Each updater touches
// only its own field subset so concurrent workers and reviewers do not
// clobber each other.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	GetByApplicantAndType(ctx context.Context, applicantID, typeCode string) (Document, error)
	ListByApplicant(ctx context.Context, applicantID string) ([]Document, error)

	// ReplaceFile swaps the stored file metadata and resets the OCR fields
	// back to their pre-extraction state. The original upload timestamp is
	// immutable and never changes on replacement.
	ReplaceFile(ctx context.Context, id, fileName, storageKey string, sizeBytes int64, updatedAt time.Time) error

	// UpdateOCR overwrites the OCR result fields.
	UpdateOCR(ctx context.Context, id, text string, data map[string]string, status OCRStatus, processedAt *time.Time) error

	// UpdateReview overwrites the review fields.
	UpdateReview(ctx context.Context, id string, status ReviewStatus, notes, reviewedBy string, reviewedAt *time.Time) error
}
