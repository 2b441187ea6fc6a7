package applicants

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo for dev and tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Profile
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Profile)}
}

// Create stores a new profile.
func (r *MemoryRepo) Create(ctx context.Context, p Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[p.ID] = cloneProfile(p)
	return nil
}

// GetByID returns a profile by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.data[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return cloneProfile(p), nil
}

// List returns profiles ordered oldest-first, honoring limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	all := make([]Profile, 0, len(r.data))
	for _, p := range r.data {
		all = append(all, cloneProfile(p))
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	if offset >= len(all) {
		return []Profile{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

// UpdateBiodata overwrites the editable biodata fields.
func (r *MemoryRepo) UpdateBiodata(ctx context.Context, id string, in ProfileInput, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	p.FullName = in.FullName
	p.NIK = in.NIK
	p.BirthPlace = in.BirthPlace
	p.BirthDate = copyTime(in.BirthDate)
	p.Gender = in.Gender
	p.Address = in.Address
	p.ContactPhone = in.ContactPhone
	p.Province = in.Province
	p.District = in.District
	p.Village = in.Village
	p.EducationLevel = in.EducationLevel
	p.MaritalStatus = in.MaritalStatus
	p.UpdatedAt = updatedAt
	r.data[id] = p
	return nil
}

// UpdateVerification overwrites the verification bookkeeping fields.
func (r *MemoryRepo) UpdateVerification(ctx context.Context, id string, status VerificationStatus, submittedAt, verifiedAt *time.Time, verifiedBy, notes string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	p.VerificationStatus = status
	p.SubmittedAt = copyTime(submittedAt)
	p.VerifiedAt = copyTime(verifiedAt)
	p.VerifiedBy = verifiedBy
	p.VerificationNotes = notes
	p.UpdatedAt = time.Now().UTC()
	r.data[id] = p
	return nil
}

// UpdateScore persists a recomputed readiness score.
func (r *MemoryRepo) UpdateScore(ctx context.Context, id string, score float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	p.Score = score
	r.data[id] = p
	return nil
}

func cloneProfile(p Profile) Profile {
	p.BirthDate = copyTime(p.BirthDate)
	p.SubmittedAt = copyTime(p.SubmittedAt)
	p.VerifiedAt = copyTime(p.VerifiedAt)
	return p
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

var _ Repo = (*MemoryRepo)(nil)
