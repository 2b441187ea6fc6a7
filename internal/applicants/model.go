package applicants

import "time"

// VerificationStatus is the applicant-level verification state.
type VerificationStatus string

const (
	StatusDraft     VerificationStatus = "DRAFT"
	StatusSubmitted VerificationStatus = "SUBMITTED"
	StatusAccepted  VerificationStatus = "ACCEPTED"
	StatusRejected  VerificationStatus = "REJECTED"
)

// Profile is the applicant biodata record plus verification bookkeeping.
type Profile struct {
	ID string

	FullName       string
	NIK            string
	BirthPlace     string
	BirthDate      *time.Time
	Gender         string
	Address        string
	ContactPhone   string
	Province       string
	District       string
	Village        string
	EducationLevel string
	MaritalStatus  string

	VerificationStatus VerificationStatus
	SubmittedAt        *time.Time
	VerifiedAt         *time.Time
	VerifiedBy         string
	VerificationNotes  string

	Score float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileInput carries the editable biodata fields.
type ProfileInput struct {
	FullName       string
	NIK            string
	BirthPlace     string
	BirthDate      *time.Time
	Gender         string
	Address        string
	ContactPhone   string
	Province       string
	District       string
	Village        string
	EducationLevel string
	MaritalStatus  string
}
