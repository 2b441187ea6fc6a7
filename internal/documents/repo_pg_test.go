package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreateDefaultsStatuses(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	doc := Document{
		ID:          "doc-1",
		ApplicantID: "applicant-1",
		TypeCode:    "ktp",
		FileName:    "ktp.jpg",
		StorageKey:  "applicant-1/ktp.jpg",
		SizeBytes:   2048,
		UploadedAt:  now,
		UpdatedAt:   now,
	}

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(
			doc.ID,
			doc.ApplicantID,
			doc.TypeCode,
			doc.FileName,
			doc.StorageKey,
			doc.SizeBytes,
			"",
			sqlmock.AnyArg(), // ocr_data json
			string(OCRPending),
			string(ReviewPending),
			doc.UploadedAt,
			doc.UpdatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDScansOCRData(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	cols := []string{
		"id", "applicant_id", "type_code", "file_name", "storage_key", "size_bytes",
		"ocr_text", "ocr_data", "ocr_status", "ocr_processed_at",
		"review_status", "review_notes", "reviewed_by", "reviewed_at",
		"uploaded_at", "updated_at",
	}
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id =").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"doc-1", "applicant-1", "ktp", "ktp.jpg", "applicant-1/ktp.jpg", int64(2048),
			"NIK : 3174041501900003", []byte(`{"nik":"3174041501900003"}`), string(OCRDone), now,
			string(ReviewPending), "", nil, nil,
			now, now,
		))

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.OCRData["nik"] != "3174041501900003" {
		t.Fatalf("ocr data not decoded: %#v", doc.OCRData)
	}
	if doc.OCRStatus != OCRDone {
		t.Fatalf("expected OCR status %q, got %q", OCRDone, doc.OCRStatus)
	}
	if doc.OCRProcessedAt == nil {
		t.Fatal("expected ocr_processed_at to be set")
	}
	if doc.ReviewedBy != "" || doc.ReviewedAt != nil {
		t.Fatalf("expected empty review metadata, got %q %v", doc.ReviewedBy, doc.ReviewedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	cols := []string{
		"id", "applicant_id", "type_code", "file_name", "storage_key", "size_bytes",
		"ocr_text", "ocr_data", "ocr_status", "ocr_processed_at",
		"review_status", "review_notes", "reviewed_by", "reviewed_at",
		"uploaded_at", "updated_at",
	}
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id =").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(cols))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoReplaceFileResetsOCR(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE documents").
		WithArgs("new.jpg", "applicant-1/new.jpg", int64(4096), string(OCRPending), now, "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.ReplaceFile(context.Background(), "doc-1", "new.jpg", "applicant-1/new.jpg", 4096, now); err != nil {
		t.Fatalf("ReplaceFile: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoReplaceFileMissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE documents").
		WithArgs("new.jpg", "applicant-1/new.jpg", int64(4096), string(OCRPending), now, "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ReplaceFile(context.Background(), "ghost", "new.jpg", "applicant-1/new.jpg", 4096, now)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoUpdateReviewResetClearsReviewer(t *testing.T) {
	repo, mock := newMockRepo(t)

	// Reopening a decision binds NULL for reviewed_by and reviewed_at; the
	// column is nullable so the reset round-trips.
	mock.ExpectExec("UPDATE documents").
		WithArgs(string(ReviewPending), "", nil, nil, sqlmock.AnyArg(), "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateReview(context.Background(), "doc-1", ReviewPending, "", "", nil); err != nil {
		t.Fatalf("UpdateReview: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateReviewWritesReviewer(t *testing.T) {
	repo, mock := newMockRepo(t)
	reviewedAt := time.Now().UTC()

	mock.ExpectExec("UPDATE documents").
		WithArgs(string(ReviewRejected), "photo is blurry", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateReview(context.Background(), "doc-1", ReviewRejected, "photo is blurry", "staff-1", &reviewedAt); err != nil {
		t.Fatalf("UpdateReview: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
