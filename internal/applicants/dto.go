package applicants

import "time"

const birthDateLayout = "2006-01-02"

// ProfileRequest is the create/update payload for applicant biodata.
type ProfileRequest struct {
	FullName       string `json:"fullName"`
	NIK            string `json:"nik"`
	BirthPlace     string `json:"birthPlace"`
	BirthDate      string `json:"birthDate"`
	Gender         string `json:"gender"`
	Address        string `json:"address"`
	ContactPhone   string `json:"contactPhone"`
	Province       string `json:"province"`
	District       string `json:"district"`
	Village        string `json:"village"`
	EducationLevel string `json:"educationLevel"`
	MaritalStatus  string `json:"maritalStatus"`
}

func (r ProfileRequest) toInput() (ProfileInput, error) {
	in := ProfileInput{
		FullName:       r.FullName,
		NIK:            r.NIK,
		BirthPlace:     r.BirthPlace,
		Gender:         r.Gender,
		Address:        r.Address,
		ContactPhone:   r.ContactPhone,
		Province:       r.Province,
		District:       r.District,
		Village:        r.Village,
		EducationLevel: r.EducationLevel,
		MaritalStatus:  r.MaritalStatus,
	}
	if r.BirthDate != "" {
		t, err := time.Parse(birthDateLayout, r.BirthDate)
		if err != nil {
			return ProfileInput{}, NewValidationError("birthDate", "must be YYYY-MM-DD")
		}
		in.BirthDate = &t
	}
	return in, nil
}

// ProfileResponse is the outward-facing representation of an applicant
// profile, including the derived readiness figures.
type ProfileResponse struct {
	ApplicantID    string `json:"applicantId"`
	FullName       string `json:"fullName"`
	NIK            string `json:"nik,omitempty"`
	BirthPlace     string `json:"birthPlace,omitempty"`
	BirthDate      string `json:"birthDate,omitempty"`
	Gender         string `json:"gender,omitempty"`
	Address        string `json:"address,omitempty"`
	ContactPhone   string `json:"contactPhone,omitempty"`
	Province       string `json:"province,omitempty"`
	District       string `json:"district,omitempty"`
	Village        string `json:"village,omitempty"`
	EducationLevel string `json:"educationLevel,omitempty"`
	MaritalStatus  string `json:"maritalStatus,omitempty"`

	VerificationStatus string     `json:"verificationStatus"`
	SubmittedAt        *time.Time `json:"submittedAt,omitempty"`
	VerifiedAt         *time.Time `json:"verifiedAt,omitempty"`
	VerifiedBy         string     `json:"verifiedBy,omitempty"`
	VerificationNotes  string     `json:"verificationNotes,omitempty"`

	Score                float64 `json:"score"`
	ProfileCompleteness  float64 `json:"profileCompleteness"`
	DocumentApprovalRate float64 `json:"documentApprovalRate"`
	HasCompleteDocuments bool    `json:"hasCompleteDocuments"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toResponse(p Profile, approvalRate float64, completeDocs bool) ProfileResponse {
	resp := ProfileResponse{
		ApplicantID:          p.ID,
		FullName:             p.FullName,
		NIK:                  p.NIK,
		BirthPlace:           p.BirthPlace,
		Gender:               p.Gender,
		Address:              p.Address,
		ContactPhone:         p.ContactPhone,
		Province:             p.Province,
		District:             p.District,
		Village:              p.Village,
		EducationLevel:       p.EducationLevel,
		MaritalStatus:        p.MaritalStatus,
		VerificationStatus:   string(p.VerificationStatus),
		SubmittedAt:          p.SubmittedAt,
		VerifiedAt:           p.VerifiedAt,
		VerifiedBy:           p.VerifiedBy,
		VerificationNotes:    p.VerificationNotes,
		Score:                p.Score,
		ProfileCompleteness:  ProfileCompletenessRatio(p),
		DocumentApprovalRate: approvalRate,
		HasCompleteDocuments: completeDocs,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
	if p.BirthDate != nil {
		resp.BirthDate = p.BirthDate.Format(birthDateLayout)
	}
	return resp
}
