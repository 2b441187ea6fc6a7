package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo for dev and tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document // id -> document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Document)}
}

// Create stores a new document.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[doc.ID] = cloneDoc(doc)
	return nil
}

// GetByID returns a document by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDoc(doc), nil
}

// GetByApplicantAndType returns the document an applicant holds for a type.
func (r *MemoryRepo) GetByApplicantAndType(ctx context.Context, applicantID, typeCode string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, doc := range r.data {
		if doc.ApplicantID == applicantID && doc.TypeCode == typeCode {
			return cloneDoc(doc), nil
		}
	}
	return Document{}, ErrNotFound
}

// ListByApplicant returns every document for an applicant, oldest upload
// first.
func (r *MemoryRepo) ListByApplicant(ctx context.Context, applicantID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Document{}
	for _, doc := range r.data {
		if doc.ApplicantID == applicantID {
			out = append(out, cloneDoc(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.Before(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ReplaceFile swaps file metadata and resets OCR state. The original upload
// timestamp is immutable and stays untouched.
func (r *MemoryRepo) ReplaceFile(ctx context.Context, id, fileName, storageKey string, sizeBytes int64, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	doc.FileName = fileName
	doc.StorageKey = storageKey
	doc.SizeBytes = sizeBytes
	doc.OCRText = ""
	doc.OCRData = map[string]string{}
	doc.OCRStatus = OCRPending
	doc.OCRProcessedAt = nil
	doc.UpdatedAt = updatedAt
	r.data[id] = doc
	return nil
}

// UpdateOCR overwrites the OCR result fields.
func (r *MemoryRepo) UpdateOCR(ctx context.Context, id, text string, data map[string]string, status OCRStatus, processedAt *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	doc.OCRText = text
	doc.OCRData = cloneMap(data)
	doc.OCRStatus = status
	doc.OCRProcessedAt = copyTime(processedAt)
	doc.UpdatedAt = time.Now().UTC()
	r.data[id] = doc
	return nil
}

// UpdateReview overwrites the review fields.
func (r *MemoryRepo) UpdateReview(ctx context.Context, id string, status ReviewStatus, notes, reviewedBy string, reviewedAt *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	doc.ReviewStatus = status
	doc.ReviewNotes = notes
	doc.ReviewedBy = reviewedBy
	doc.ReviewedAt = copyTime(reviewedAt)
	doc.UpdatedAt = time.Now().UTC()
	r.data[id] = doc
	return nil
}

func cloneDoc(doc Document) Document {
	doc.OCRData = cloneMap(doc.OCRData)
	doc.OCRProcessedAt = copyTime(doc.OCRProcessedAt)
	doc.ReviewedAt = copyTime(doc.ReviewedAt)
	return doc
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

var _ Repo = (*MemoryRepo)(nil)
