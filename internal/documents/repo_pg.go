package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const docColumns = `
id, applicant_id, type_code, file_name, storage_key, size_bytes,
ocr_text, ocr_data, ocr_status, ocr_processed_at,
review_status, review_notes, reviewed_by, reviewed_at,
uploaded_at, updated_at`

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    applicant_id,
    type_code,
    file_name,
    storage_key,
    size_bytes,
    ocr_text,
    ocr_data,
    ocr_status,
    review_status,
    uploaded_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	ocrStatus := doc.OCRStatus
	if ocrStatus == "" {
		ocrStatus = OCRPending
	}
	reviewStatus := doc.ReviewStatus
	if reviewStatus == "" {
		reviewStatus = ReviewPending
	}
	ocrData, err := encodeOCRData(doc.OCRData)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.ApplicantID,
		doc.TypeCode,
		doc.FileName,
		doc.StorageKey,
		doc.SizeBytes,
		doc.OCRText,
		ocrData,
		string(ocrStatus),
		string(reviewStatus),
		doc.UploadedAt,
		doc.UpdatedAt,
	)
	return err
}

// GetByID fetches a document by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	const query = `
SELECT ` + docColumns + `
FROM documents
WHERE id = $1
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, id))
}

// GetByApplicantAndType fetches the document an applicant holds for a type.
func (r *PGRepo) GetByApplicantAndType(ctx context.Context, applicantID, typeCode string) (Document, error) {
	const query = `
SELECT ` + docColumns + `
FROM documents
WHERE applicant_id = $1 AND type_code = $2
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, applicantID, typeCode))
}

// ListByApplicant lists documents for an applicant, oldest upload first.
func (r *PGRepo) ListByApplicant(ctx context.Context, applicantID string) ([]Document, error) {
	const query = `
SELECT ` + docColumns + `
FROM documents
WHERE applicant_id = $1
ORDER BY uploaded_at ASC, id ASC`

	rows, err := r.DB.QueryContext(ctx, query, applicantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDoc(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// ReplaceFile swaps file metadata and resets the OCR fields. The original
// upload timestamp is immutable and stays untouched.
func (r *PGRepo) ReplaceFile(ctx context.Context, id, fileName, storageKey string, sizeBytes int64, updatedAt time.Time) error {
	const query = `
UPDATE documents
SET file_name = $1,
    storage_key = $2,
    size_bytes = $3,
    ocr_text = '',
    ocr_data = '{}',
    ocr_status = $4,
    ocr_processed_at = NULL,
    updated_at = $5
WHERE id = $6`
	res, err := r.DB.ExecContext(ctx, query, fileName, storageKey, sizeBytes, string(OCRPending), updatedAt, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateOCR overwrites the OCR result fields.
func (r *PGRepo) UpdateOCR(ctx context.Context, id, text string, data map[string]string, status OCRStatus, processedAt *time.Time) error {
	const query = `
UPDATE documents
SET ocr_text = $1,
    ocr_data = $2,
    ocr_status = $3,
    ocr_processed_at = $4,
    updated_at = $5
WHERE id = $6`
	ocrData, err := encodeOCRData(data)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, text, ocrData, string(status), nullTime(processedAt), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateReview overwrites the review fields.
func (r *PGRepo) UpdateReview(ctx context.Context, id string, status ReviewStatus, notes, reviewedBy string, reviewedAt *time.Time) error {
	const query = `
UPDATE documents
SET review_status = $1,
    review_notes = $2,
    reviewed_by = $3,
    reviewed_at = $4,
    updated_at = $5
WHERE id = $6`
	res, err := r.DB.ExecContext(ctx, query, string(status), notes, nullString(reviewedBy), nullTime(reviewedAt), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) scanOne(row *sql.Row) (Document, error) {
	doc, err := scanDoc(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

func scanDoc(row rowScanner) (Document, error) {
	var (
		doc         Document
		ocrData     []byte
		ocrStatus   string
		reviewSt    string
		reviewedBy  sql.NullString
		reviewedAt  sql.NullTime
		processedAt sql.NullTime
	)
	err := row.Scan(
		&doc.ID,
		&doc.ApplicantID,
		&doc.TypeCode,
		&doc.FileName,
		&doc.StorageKey,
		&doc.SizeBytes,
		&doc.OCRText,
		&ocrData,
		&ocrStatus,
		&processedAt,
		&reviewSt,
		&doc.ReviewNotes,
		&reviewedBy,
		&reviewedAt,
		&doc.UploadedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return Document{}, err
	}

	doc.OCRStatus = OCRStatus(ocrStatus)
	doc.ReviewStatus = ReviewStatus(reviewSt)
	if reviewedBy.Valid {
		doc.ReviewedBy = reviewedBy.String
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		doc.ReviewedAt = &t
	}
	if processedAt.Valid {
		t := processedAt.Time
		doc.OCRProcessedAt = &t
	}

	doc.OCRData = map[string]string{}
	if len(ocrData) > 0 {
		if err := json.Unmarshal(ocrData, &doc.OCRData); err != nil {
			return Document{}, err
		}
	}
	return doc, nil
}

func encodeOCRData(data map[string]string) ([]byte, error) {
	if data == nil {
		data = map[string]string{}
	}
	return json.Marshal(data)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
