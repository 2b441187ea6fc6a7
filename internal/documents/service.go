package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"intake-backend/internal/docspec"
	"intake-backend/internal/extract"
	"intake-backend/internal/imaging"
	"intake-backend/internal/ktp"
	"intake-backend/internal/ocr"
	"intake-backend/internal/queue"
	"intake-backend/internal/shared/metrics"
	"intake-backend/internal/shared/storage/object"
	"intake-backend/internal/shared/telemetry"
)

const (
	ocrMaxAttempts      = 3
	optimizeMaxAttempts = 2
)

var optimizeRetryBaseDelay = 500 * time.Millisecond

// withStorageRetry runs a storage step with bounded retries and exponential
// backoff. Optimization jobs get two attempts per step before the failure
// surfaces to the queue for redelivery.
func withStorageRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	delay := optimizeRetryBaseDelay
	for attempt := 1; attempt <= optimizeMaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == optimizeMaxAttempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return lastErr
}

// ApplicantHook receives document-change notifications so the owning
// applicant's cached figures and readiness score stay fresh.
type ApplicantHook interface {
	DocumentsChanged(ctx context.Context, applicantID string)
}

// Service contains business logic for applicant documents.
type Service struct {
	Repo     Repo
	Store    object.ObjectStore
	Queue    queue.Client
	Detector ocr.TextDetector
	Hook     ApplicantHook
	Imaging  imaging.Options
}

// Upload stores a new file for (applicant, type). A second upload for the
// same type replaces the previous file and resets its OCR state. Every
// successful save enqueues background processing for the new payload.
func (s *Service) Upload(ctx context.Context, applicantID, typeCode, fileName string, sizeBytes int64, r io.Reader) (Document, error) {
	if applicantID == "" || fileName == "" {
		return Document{}, ErrInvalidInput
	}
	spec, ok := docspec.Lookup(typeCode)
	if !ok {
		return Document{}, NewValidationError("documentType", "unknown document type code")
	}
	if err := docspec.Validate(fileName, sizeBytes, spec.Code); err != nil {
		var formatErr *docspec.InvalidFormatError
		if errors.As(err, &formatErr) {
			return Document{}, NewValidationError("file", formatErr.Error())
		}
		var sizeErr *docspec.FileTooLargeError
		if errors.As(err, &sizeErr) {
			return Document{}, NewValidationError("file", sizeErr.Error())
		}
		return Document{}, err
	}

	storageKey, size, _, err := s.Store.Save(ctx, applicantID, fileName, r)
	if err != nil {
		return Document{}, err
	}

	now := time.Now().UTC()
	existing, err := s.Repo.GetByApplicantAndType(ctx, applicantID, spec.Code)
	switch {
	case err == nil:
		oldKey := existing.StorageKey
		if err := s.Repo.ReplaceFile(ctx, existing.ID, fileName, storageKey, size, now); err != nil {
			return Document{}, err
		}
		if oldKey != "" && oldKey != storageKey {
			if delErr := s.Store.Delete(ctx, oldKey); delErr != nil {
				telemetry.Error("documents.delete_replaced_file", map[string]any{
					"document_id": existing.ID,
					"storage_key": oldKey,
					"error":       delErr.Error(),
				})
			}
		}
		existing, err = s.Repo.GetByID(ctx, existing.ID)
		if err != nil {
			return Document{}, err
		}
	case errors.Is(err, ErrNotFound):
		existing = Document{
			ID:           uuid.NewString(),
			ApplicantID:  applicantID,
			TypeCode:     spec.Code,
			FileName:     fileName,
			StorageKey:   storageKey,
			SizeBytes:    size,
			OCRData:      map[string]string{},
			OCRStatus:    OCRPending,
			ReviewStatus: ReviewPending,
			UploadedAt:   now,
			UpdatedAt:    now,
		}
		if err := s.Repo.Create(ctx, existing); err != nil {
			return Document{}, err
		}
	default:
		return Document{}, err
	}

	s.enqueueProcessing(ctx, existing, size)
	s.notifyApplicant(ctx, applicantID)
	return existing, nil
}

// Get returns a document by ID.
func (s *Service) Get(ctx context.Context, documentID string) (Document, error) {
	if documentID == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, documentID)
}

// ListByApplicant returns every document for an applicant.
func (s *Service) ListByApplicant(ctx context.Context, applicantID string) ([]Document, error) {
	if applicantID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByApplicant(ctx, applicantID)
}

// SetReviewStatus applies a review transition. Rejection requires notes,
// either newly supplied or already present. The first transition away from
// PENDING stamps reviewedAt and reviewedBy; a reset back to PENDING clears
// all review bookkeeping.
func (s *Service) SetReviewStatus(ctx context.Context, documentID string, newStatus ReviewStatus, reviewerID, notes string) (Document, error) {
	if documentID == "" {
		return Document{}, ErrInvalidInput
	}
	if !ValidReviewStatus(newStatus) {
		return Document{}, NewValidationError("reviewStatus", "must be PENDING, APPROVED or REJECTED")
	}

	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return Document{}, err
	}

	if newStatus == ReviewRejected && notes == "" && doc.ReviewNotes == "" {
		return Document{}, NewValidationError("reviewNotes", "required")
	}

	reviewNotes := doc.ReviewNotes
	if notes != "" {
		reviewNotes = notes
	}
	reviewedBy := doc.ReviewedBy
	reviewedAt := doc.ReviewedAt

	if newStatus == ReviewPending {
		reviewNotes = ""
		reviewedBy = ""
		reviewedAt = nil
	} else if doc.ReviewStatus == ReviewPending {
		now := time.Now().UTC()
		reviewedAt = &now
		if reviewedBy == "" {
			reviewedBy = reviewerID
		}
	}

	if err := s.Repo.UpdateReview(ctx, doc.ID, newStatus, reviewNotes, reviewedBy, reviewedAt); err != nil {
		return Document{}, err
	}
	s.notifyApplicant(ctx, doc.ApplicantID)
	return s.Repo.GetByID(ctx, doc.ID)
}

// BiodataPrefill maps a KTP document's OCR output onto applicant profile
// field names so registration forms can be pre-filled. ErrNotFound when the
// applicant has no KTP document or OCR produced nothing.
func (s *Service) BiodataPrefill(ctx context.Context, applicantID string) (map[string]string, error) {
	if applicantID == "" {
		return nil, ErrInvalidInput
	}
	doc, err := s.Repo.GetByApplicantAndType(ctx, applicantID, "ktp")
	if err != nil {
		return nil, err
	}
	if !hasOCRValues(doc.OCRData) {
		return nil, ErrNotFound
	}
	gender := ""
	if g := doc.OCRData[ktp.FieldGender]; g != "" {
		gender = g[:1]
	}
	return map[string]string{
		"fullName":   doc.OCRData[ktp.FieldName],
		"nik":        doc.OCRData[ktp.FieldNIK],
		"birthPlace": doc.OCRData[ktp.FieldBirthPlace],
		"birthDate":  doc.OCRData[ktp.FieldBirthDate],
		"address":    doc.OCRData[ktp.FieldAddress],
		"gender":     gender,
	}, nil
}

// ProcessOCR runs text extraction for one document. Missing documents and a
// missing detector are silent no-ops; provider exhaustion marks the document
// ocr_status=failed and returns the error for job-level logging. Re-running
// overwrites the OCR fields, so retries are safe.
func (s *Service) ProcessOCR(ctx context.Context, documentID string) error {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if s.Detector == nil {
		telemetry.Info("documents.ocr_skipped", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"document_id": doc.ID,
			"reason":      "no detector configured",
		})
		return nil
	}

	data, err := s.readObject(ctx, doc.StorageKey)
	if err != nil {
		return fmt.Errorf("document %s: read file: %w", doc.ID, err)
	}

	metrics.IncOCRJobStarted()
	startedAt := time.Now()

	// PDFs with an embedded text layer skip the remote provider entirely.
	text := ""
	if extract.IsPDF(data) {
		if embedded, err := extract.PDFText(data); err == nil {
			text = embedded
		}
	}
	if text == "" {
		detector := ocr.NewRetryingDetector(s.Detector, ocrMaxAttempts)
		text, err = detector.DetectText(ctx, data)
		if err != nil {
			metrics.IncOCRJobFailed()
			if updateErr := s.Repo.UpdateOCR(ctx, doc.ID, "", nil, OCRFailed, nil); updateErr != nil {
				telemetry.Error("documents.ocr_mark_failed", map[string]any{
					"document_id": doc.ID,
					"error":       updateErr.Error(),
				})
			}
			return fmt.Errorf("document %s: detect text: %w", doc.ID, err)
		}
	}

	parsed := map[string]string{}
	if doc.TypeCode == "ktp" && text != "" {
		parsed = ktp.Parse(text)
	}

	now := time.Now().UTC()
	if err := s.Repo.UpdateOCR(ctx, doc.ID, text, parsed, OCRDone, &now); err != nil {
		metrics.IncOCRJobFailed()
		return fmt.Errorf("document %s: store ocr result: %w", doc.ID, err)
	}

	metrics.IncOCRJobCompleted()
	metrics.ObserveOCRDurationMs(float64(time.Since(startedAt).Milliseconds()))
	telemetry.Info("documents.ocr_done", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"document_id": doc.ID,
		"type_code":   doc.TypeCode,
		"text_len":    len(text),
	})
	return nil
}

// OptimizeImage recompresses an image document down to the byte budget and
// persists the result as a replacement upload, which re-triggers OCR since
// compression can alter legibility. Non-image types, files already within
// budget, and undecodable payloads are no-ops.
func (s *Service) OptimizeImage(ctx context.Context, documentID string) error {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !docspec.IsImageType(doc.TypeCode) {
		return nil
	}
	opts := s.Imaging
	if opts.BudgetBytes <= 0 {
		opts = imaging.Defaults()
	}
	if doc.SizeBytes <= opts.BudgetBytes {
		return nil
	}

	var data []byte
	err = withStorageRetry(ctx, func() error {
		var readErr error
		data, readErr = s.readObject(ctx, doc.StorageKey)
		return readErr
	})
	if err != nil {
		return fmt.Errorf("document %s: read file: %w", doc.ID, err)
	}

	metrics.IncOptimizeJobStarted()
	encoded, result, err := imaging.Optimize(data, opts)
	if err != nil {
		if errors.Is(err, imaging.ErrUndecodable) {
			telemetry.Info("documents.optimize_skipped", map[string]any{
				"request_id":  requestIDFromContext(ctx),
				"document_id": doc.ID,
				"reason":      "undecodable image",
			})
			return nil
		}
		metrics.IncOptimizeJobFailed()
		return fmt.Errorf("document %s: optimize: %w", doc.ID, err)
	}
	if !result.WithinBudget {
		telemetry.Error("documents.optimize_over_budget", map[string]any{
			"request_id":   requestIDFromContext(ctx),
			"document_id":  doc.ID,
			"size_bytes":   len(encoded),
			"budget_bytes": opts.BudgetBytes,
			"shrink_iters": result.ShrinkIters,
		})
	}

	newName := imaging.NormalizeFileName(doc.FileName)
	var (
		storageKey string
		size       int64
	)
	err = withStorageRetry(ctx, func() error {
		var saveErr error
		storageKey, size, _, saveErr = s.Store.Save(ctx, doc.ApplicantID, newName, bytes.NewReader(encoded))
		return saveErr
	})
	if err != nil {
		metrics.IncOptimizeJobFailed()
		return fmt.Errorf("document %s: save optimized file: %w", doc.ID, err)
	}

	now := time.Now().UTC()
	if err := s.Repo.ReplaceFile(ctx, doc.ID, newName, storageKey, size, now); err != nil {
		metrics.IncOptimizeJobFailed()
		return fmt.Errorf("document %s: replace file: %w", doc.ID, err)
	}
	if doc.StorageKey != "" && doc.StorageKey != storageKey {
		if delErr := s.Store.Delete(ctx, doc.StorageKey); delErr != nil {
			telemetry.Error("documents.delete_replaced_file", map[string]any{
				"document_id": doc.ID,
				"storage_key": doc.StorageKey,
				"error":       delErr.Error(),
			})
		}
	}

	metrics.IncOptimizeJobCompleted()
	telemetry.Info("documents.optimize_done", map[string]any{
		"request_id":    requestIDFromContext(ctx),
		"document_id":   doc.ID,
		"size_bytes":    size,
		"quality":       result.Quality,
		"width":         result.Width,
		"height":        result.Height,
		"within_budget": result.WithinBudget,
	})

	// The replacement save is a new file payload, so extraction runs again.
	s.enqueueJob(ctx, queue.KindOCR, doc.ID)
	return nil
}

// enqueueProcessing schedules background jobs for a freshly saved payload.
func (s *Service) enqueueProcessing(ctx context.Context, doc Document, sizeBytes int64) {
	s.enqueueJob(ctx, queue.KindOCR, doc.ID)

	budget := s.Imaging.BudgetBytes
	if budget <= 0 {
		budget = imaging.Defaults().BudgetBytes
	}
	if docspec.IsImageType(doc.TypeCode) && sizeBytes > budget {
		s.enqueueJob(ctx, queue.KindOptimizeImage, doc.ID)
	}
}

// enqueueJob fires a queue message, or runs the job on a goroutine when no
// queue is configured. Delivery failures are logged, never surfaced to the
// uploader.
func (s *Service) enqueueJob(ctx context.Context, kind, documentID string) {
	if s.Queue == nil {
		go s.runInline(backgroundWithRequestID(ctx), kind, documentID)
		return
	}
	msg := queue.Message{
		Kind:       kind,
		DocumentID: documentID,
		RequestID:  requestIDFromContext(ctx),
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    1,
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		telemetry.Error("documents.enqueue_failed", map[string]any{
			"request_id":  msg.RequestID,
			"document_id": documentID,
			"kind":        kind,
			"error":       err.Error(),
		})
	}
}

func (s *Service) runInline(ctx context.Context, kind, documentID string) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("documents.job_panic", map[string]any{
				"document_id": documentID,
				"kind":        kind,
				"panic":       fmt.Sprintf("%v", r),
			})
		}
	}()

	var err error
	switch kind {
	case queue.KindOCR:
		err = s.ProcessOCR(ctx, documentID)
	case queue.KindOptimizeImage:
		err = s.OptimizeImage(ctx, documentID)
	}
	if err != nil {
		telemetry.Error("documents.job_failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"document_id": documentID,
			"kind":        kind,
			"error":       err.Error(),
		})
	}
}

func (s *Service) notifyApplicant(ctx context.Context, applicantID string) {
	if s.Hook == nil {
		return
	}
	s.Hook.DocumentsChanged(ctx, applicantID)
}

func (s *Service) readObject(ctx context.Context, storageKey string) ([]byte, error) {
	body, err := s.Store.Open(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

func hasOCRValues(data map[string]string) bool {
	for _, v := range data {
		if v != "" {
			return true
		}
	}
	return false
}
