package applicants

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"intake-backend/internal/docspec"
	"intake-backend/internal/shared/cache"
	"intake-backend/internal/shared/telemetry"
)

// DocumentStats summarizes an applicant's uploaded documents for scoring and
// submission gating.
type DocumentStats struct {
	Total             int
	Approved          int
	ApprovedTypeCodes []string
}

// DocumentSource exposes the document side of the system to this package
// without importing it.
type DocumentSource interface {
	DocumentStats(ctx context.Context, applicantID string) (DocumentStats, error)
}

const defaultFigureTTL = 10 * time.Minute

// Service contains business logic for applicant profiles.
type Service struct {
	Repo  Repo
	Docs  DocumentSource
	Cache cache.Cache

	// FigureTTL bounds staleness of the cached derived figures. Zero means
	// defaultFigureTTL.
	FigureTTL time.Duration
}

// Create registers a new applicant profile in DRAFT.
func (s *Service) Create(ctx context.Context, in ProfileInput) (Profile, error) {
	if strings.TrimSpace(in.FullName) == "" {
		return Profile{}, NewValidationError("fullName", "required")
	}
	now := time.Now().UTC()
	p := Profile{
		ID:                 uuid.NewString(),
		FullName:           in.FullName,
		NIK:                in.NIK,
		BirthPlace:         in.BirthPlace,
		BirthDate:          copyTime(in.BirthDate),
		Gender:             in.Gender,
		Address:            in.Address,
		ContactPhone:       in.ContactPhone,
		Province:           in.Province,
		District:           in.District,
		Village:            in.Village,
		EducationLevel:     in.EducationLevel,
		MaritalStatus:      in.MaritalStatus,
		VerificationStatus: StatusDraft,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	p.Score = ReadinessScore(p, 0)
	if err := s.Repo.Create(ctx, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Get returns a profile by ID.
func (s *Service) Get(ctx context.Context, applicantID string) (Profile, error) {
	if applicantID == "" {
		return Profile{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, applicantID)
}

// List returns profiles ordered oldest-first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Profile, error) {
	return s.Repo.List(ctx, limit, offset)
}

// Update overwrites the editable biodata fields and recomputes the readiness
// score from the new values.
func (s *Service) Update(ctx context.Context, applicantID string, in ProfileInput) (Profile, error) {
	if applicantID == "" {
		return Profile{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.FullName) == "" {
		return Profile{}, NewValidationError("fullName", "required")
	}
	if _, err := s.Repo.GetByID(ctx, applicantID); err != nil {
		return Profile{}, err
	}
	if err := s.Repo.UpdateBiodata(ctx, applicantID, in, time.Now().UTC()); err != nil {
		return Profile{}, err
	}
	if err := s.RecalculateScore(ctx, applicantID); err != nil {
		telemetry.Error("applicants.recalculate_score", map[string]any{
			"applicant_id": applicantID,
			"error":        err.Error(),
		})
	}
	return s.Repo.GetByID(ctx, applicantID)
}

// Submit moves a DRAFT profile to SUBMITTED. The identity core of the biodata
// must be filled before submission.
func (s *Service) Submit(ctx context.Context, applicantID string) (Profile, error) {
	p, err := s.Get(ctx, applicantID)
	if err != nil {
		return Profile{}, err
	}
	if p.VerificationStatus != StatusDraft {
		return Profile{}, fmt.Errorf("%w: cannot submit from %s", ErrInvalidTransition, p.VerificationStatus)
	}

	missing := map[string]string{}
	if strings.TrimSpace(p.FullName) == "" {
		missing["fullName"] = "required before submission"
	}
	if strings.TrimSpace(p.NIK) == "" {
		missing["nik"] = "required before submission"
	}
	if p.BirthDate == nil {
		missing["birthDate"] = "required before submission"
	}
	if strings.TrimSpace(p.Address) == "" {
		missing["address"] = "required before submission"
	}
	if len(missing) > 0 {
		return Profile{}, &ValidationError{Fields: missing}
	}

	now := time.Now().UTC()
	if err := s.Repo.UpdateVerification(ctx, p.ID, StatusSubmitted, &now, nil, "", p.VerificationNotes); err != nil {
		return Profile{}, err
	}
	return s.Repo.GetByID(ctx, p.ID)
}

// Approve moves a SUBMITTED profile to ACCEPTED. Every uploaded document must
// already be approved, otherwise the transition is blocked with a
// PreconditionError naming the rule. An empty document set does not block.
func (s *Service) Approve(ctx context.Context, applicantID, verifierID, notes string) (Profile, error) {
	p, err := s.Get(ctx, applicantID)
	if err != nil {
		return Profile{}, err
	}
	if p.VerificationStatus != StatusSubmitted {
		return Profile{}, fmt.Errorf("%w: cannot approve from %s", ErrInvalidTransition, p.VerificationStatus)
	}

	stats, err := s.documentStats(ctx, p.ID)
	if err != nil {
		return Profile{}, err
	}
	if stats.Approved < stats.Total {
		return Profile{}, &PreconditionError{
			Message: fmt.Sprintf("all documents must be approved first (%d of %d approved)", stats.Approved, stats.Total),
		}
	}

	now := time.Now().UTC()
	submittedAt := p.SubmittedAt
	if submittedAt == nil {
		submittedAt = &now
	}
	if notes == "" {
		notes = p.VerificationNotes
	}
	if err := s.Repo.UpdateVerification(ctx, p.ID, StatusAccepted, submittedAt, &now, verifierID, notes); err != nil {
		return Profile{}, err
	}
	return s.Repo.GetByID(ctx, p.ID)
}

// Reject moves a SUBMITTED profile to REJECTED. Notes are mandatory so the
// applicant always learns why.
func (s *Service) Reject(ctx context.Context, applicantID, verifierID, notes string) (Profile, error) {
	p, err := s.Get(ctx, applicantID)
	if err != nil {
		return Profile{}, err
	}
	if p.VerificationStatus != StatusSubmitted {
		return Profile{}, fmt.Errorf("%w: cannot reject from %s", ErrInvalidTransition, p.VerificationStatus)
	}
	if strings.TrimSpace(notes) == "" {
		return Profile{}, NewValidationError("verificationNotes", "required")
	}

	now := time.Now().UTC()
	if err := s.Repo.UpdateVerification(ctx, p.ID, StatusRejected, p.SubmittedAt, &now, verifierID, notes); err != nil {
		return Profile{}, err
	}
	return s.Repo.GetByID(ctx, p.ID)
}

// DocumentApprovalRate returns the 0..100 percentage of the applicant's
// uploaded documents that are approved. The figure is cached since reviewers
// poll applicant listings far more often than documents change.
func (s *Service) DocumentApprovalRate(ctx context.Context, applicantID string) (float64, error) {
	key := approvalRateKey(applicantID)
	if cached, err := s.cacheGet(ctx, key); err == nil {
		if rate, parseErr := strconv.ParseFloat(cached, 64); parseErr == nil {
			return rate, nil
		}
	}

	stats, err := s.documentStats(ctx, applicantID)
	if err != nil {
		return 0, err
	}
	rate := 0.0
	if stats.Total > 0 {
		rate = float64(stats.Approved) / float64(stats.Total) * 100
	}
	s.cacheSet(ctx, key, strconv.FormatFloat(rate, 'f', -1, 64))
	return rate, nil
}

// HasCompleteDocuments reports whether every required document type has an
// approved upload.
func (s *Service) HasCompleteDocuments(ctx context.Context, applicantID string) (bool, error) {
	key := completeDocsKey(applicantID)
	if cached, err := s.cacheGet(ctx, key); err == nil {
		return cached == "1", nil
	}

	stats, err := s.documentStats(ctx, applicantID)
	if err != nil {
		return false, err
	}
	approved := make(map[string]bool, len(stats.ApprovedTypeCodes))
	for _, code := range stats.ApprovedTypeCodes {
		approved[code] = true
	}
	complete := true
	for _, code := range docspec.RequiredCodes() {
		if !approved[code] {
			complete = false
			break
		}
	}

	value := "0"
	if complete {
		value = "1"
	}
	s.cacheSet(ctx, key, value)
	return complete, nil
}

// DocumentsChanged invalidates the cached figures for an applicant and
// recomputes the readiness score. Wired as the documents package's hook.
func (s *Service) DocumentsChanged(ctx context.Context, applicantID string) {
	if s.Cache != nil {
		if err := s.Cache.Delete(ctx, approvalRateKey(applicantID), completeDocsKey(applicantID)); err != nil {
			telemetry.Error("applicants.cache_invalidate", map[string]any{
				"applicant_id": applicantID,
				"error":        err.Error(),
			})
		}
	}
	if err := s.RecalculateScore(ctx, applicantID); err != nil {
		telemetry.Error("applicants.recalculate_score", map[string]any{
			"applicant_id": applicantID,
			"error":        err.Error(),
		})
	}
}

// RecalculateScore recomputes the readiness score and persists it only when
// the rounded value actually changed.
func (s *Service) RecalculateScore(ctx context.Context, applicantID string) error {
	p, err := s.Repo.GetByID(ctx, applicantID)
	if err != nil {
		return err
	}

	stats, err := s.documentStats(ctx, applicantID)
	if err != nil {
		return err
	}
	rate := 0.0
	if stats.Total > 0 {
		rate = float64(stats.Approved) / float64(stats.Total) * 100
	}

	score := ReadinessScore(p, rate)
	if score == p.Score {
		return nil
	}
	if err := s.Repo.UpdateScore(ctx, applicantID, score); err != nil {
		return err
	}
	telemetry.Info("applicants.score_updated", map[string]any{
		"applicant_id": applicantID,
		"score":        score,
		"previous":     p.Score,
	})
	return nil
}

func (s *Service) documentStats(ctx context.Context, applicantID string) (DocumentStats, error) {
	if s.Docs == nil {
		return DocumentStats{}, nil
	}
	return s.Docs.DocumentStats(ctx, applicantID)
}

func (s *Service) cacheGet(ctx context.Context, key string) (string, error) {
	if s.Cache == nil {
		return "", cache.ErrMiss
	}
	return s.Cache.Get(ctx, key)
}

func (s *Service) cacheSet(ctx context.Context, key, value string) {
	if s.Cache == nil {
		return
	}
	ttl := s.FigureTTL
	if ttl <= 0 {
		ttl = defaultFigureTTL
	}
	if err := s.Cache.Set(ctx, key, value, ttl); err != nil {
		telemetry.Error("applicants.cache_set", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
	}
}

func approvalRateKey(applicantID string) string {
	return "applicant:" + applicantID + ":approval-rate"
}

func completeDocsKey(applicantID string) string {
	return "applicant:" + applicantID + ":has-complete-docs"
}
