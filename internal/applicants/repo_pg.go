package applicants

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const profileColumns = `
id, full_name, nik, birth_place, birth_date, gender, address, contact_phone,
province, district, village, education_level, marital_status,
verification_status, submitted_at, verified_at, verified_by, verification_notes,
score, created_at, updated_at`

// Create inserts a new applicant profile.
func (r *PGRepo) Create(ctx context.Context, p Profile) error {
	const query = `
INSERT INTO applicant_profiles (
    id,
    full_name,
    nik,
    birth_place,
    birth_date,
    gender,
    address,
    contact_phone,
    province,
    district,
    village,
    education_level,
    marital_status,
    verification_status,
    score,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	status := p.VerificationStatus
	if status == "" {
		status = StatusDraft
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		p.ID,
		p.FullName,
		p.NIK,
		p.BirthPlace,
		nullTimePtr(p.BirthDate),
		p.Gender,
		p.Address,
		p.ContactPhone,
		p.Province,
		p.District,
		p.Village,
		p.EducationLevel,
		p.MaritalStatus,
		string(status),
		p.Score,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

// GetByID fetches a profile by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Profile, error) {
	const query = `
SELECT ` + profileColumns + `
FROM applicant_profiles
WHERE id = $1
LIMIT 1`
	p, err := scanProfile(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

// List returns profiles ordered oldest-first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Profile, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT ` + profileColumns + `
FROM applicant_profiles
ORDER BY created_at ASC, id ASC
LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateBiodata overwrites the editable biodata fields.
func (r *PGRepo) UpdateBiodata(ctx context.Context, id string, in ProfileInput, updatedAt time.Time) error {
	const query = `
UPDATE applicant_profiles
SET full_name = $1,
    nik = $2,
    birth_place = $3,
    birth_date = $4,
    gender = $5,
    address = $6,
    contact_phone = $7,
    province = $8,
    district = $9,
    village = $10,
    education_level = $11,
    marital_status = $12,
    updated_at = $13
WHERE id = $14`
	res, err := r.DB.ExecContext(
		ctx,
		query,
		in.FullName,
		in.NIK,
		in.BirthPlace,
		nullTimePtr(in.BirthDate),
		in.Gender,
		in.Address,
		in.ContactPhone,
		in.Province,
		in.District,
		in.Village,
		in.EducationLevel,
		in.MaritalStatus,
		updatedAt,
		id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateVerification overwrites the verification bookkeeping fields.
func (r *PGRepo) UpdateVerification(ctx context.Context, id string, status VerificationStatus, submittedAt, verifiedAt *time.Time, verifiedBy, notes string) error {
	const query = `
UPDATE applicant_profiles
SET verification_status = $1,
    submitted_at = $2,
    verified_at = $3,
    verified_by = $4,
    verification_notes = $5,
    updated_at = $6
WHERE id = $7`
	res, err := r.DB.ExecContext(ctx, query, string(status), nullTimePtr(submittedAt), nullTimePtr(verifiedAt), nullStr(verifiedBy), notes, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateScore persists a recomputed readiness score.
func (r *PGRepo) UpdateScore(ctx context.Context, id string, score float64) error {
	const query = `
UPDATE applicant_profiles
SET score = $1
WHERE id = $2`
	res, err := r.DB.ExecContext(ctx, query, score, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (Profile, error) {
	var (
		p           Profile
		birthDate   sql.NullTime
		status      string
		submittedAt sql.NullTime
		verifiedAt  sql.NullTime
		verifiedBy  sql.NullString
	)
	err := row.Scan(
		&p.ID,
		&p.FullName,
		&p.NIK,
		&p.BirthPlace,
		&birthDate,
		&p.Gender,
		&p.Address,
		&p.ContactPhone,
		&p.Province,
		&p.District,
		&p.Village,
		&p.EducationLevel,
		&p.MaritalStatus,
		&status,
		&submittedAt,
		&verifiedAt,
		&verifiedBy,
		&p.VerificationNotes,
		&p.Score,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return Profile{}, err
	}

	p.VerificationStatus = VerificationStatus(status)
	if birthDate.Valid {
		t := birthDate.Time
		p.BirthDate = &t
	}
	if submittedAt.Valid {
		t := submittedAt.Time
		p.SubmittedAt = &t
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		p.VerifiedAt = &t
	}
	if verifiedBy.Valid {
		p.VerifiedBy = verifiedBy.String
	}
	return p, nil
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
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
