package applicants

import (
	"context"
	"time"
)

// Repo defines persistence operations for applicant profiles.
type Repo interface {
	Create(ctx context.Context, p Profile) error
	GetByID(ctx context.Context, id string) (Profile, error)
	List(ctx context.Context, limit, offset int) ([]Profile, error)

	// UpdateBiodata overwrites the editable biodata fields.
	UpdateBiodata(ctx context.Context, id string, in ProfileInput, updatedAt time.Time) error

	// UpdateVerification overwrites the verification bookkeeping fields.
	UpdateVerification(ctx context.Context, id string, status VerificationStatus, submittedAt, verifiedAt *time.Time, verifiedBy, notes string) error

	// UpdateScore persists a recomputed readiness score.
	UpdateScore(ctx context.Context, id string, score float64) error
}
