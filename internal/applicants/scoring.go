package applicants

import (
	"math"
	"strings"
)

// Readiness score weights. Profile completeness dominates; document approval
// tops it up.
const (
	profileCompletenessWeight = 0.6
	documentWeight            = 0.4
)

// completenessField is one biodata criterion counted towards profile
// completeness. Declarative so new criteria are a one-line addition.
type completenessField struct {
	name   string
	filled func(Profile) bool
}

func stringField(name string, get func(Profile) string) completenessField {
	return completenessField{
		name:   name,
		filled: func(p Profile) bool { return strings.TrimSpace(get(p)) != "" },
	}
}

var completenessFields = []completenessField{
	stringField("fullName", func(p Profile) string { return p.FullName }),
	stringField("nik", func(p Profile) string { return p.NIK }),
	{name: "birthDate", filled: func(p Profile) bool { return p.BirthDate != nil }},
	stringField("gender", func(p Profile) string { return p.Gender }),
	stringField("address", func(p Profile) string { return p.Address }),
	stringField("contactPhone", func(p Profile) string { return p.ContactPhone }),
	stringField("province", func(p Profile) string { return p.Province }),
	stringField("district", func(p Profile) string { return p.District }),
	stringField("village", func(p Profile) string { return p.Village }),
	stringField("educationLevel", func(p Profile) string { return p.EducationLevel }),
	stringField("maritalStatus", func(p Profile) string { return p.MaritalStatus }),
}

// ProfileCompletenessRatio returns the 0..1 fraction of biodata criteria
// that are filled.
func ProfileCompletenessRatio(p Profile) float64 {
	total := len(completenessFields)
	if total == 0 {
		return 0
	}
	filled := 0
	for _, f := range completenessFields {
		if f.filled(p) {
			filled++
		}
	}
	return float64(filled) / float64(total)
}

// DocumentRatio converts a 0..100 approval rate into a 0..1 ratio. Malformed
// values collapse to 0 rather than propagating.
func DocumentRatio(approvalRate float64) float64 {
	if math.IsNaN(approvalRate) || math.IsInf(approvalRate, 0) {
		return 0
	}
	if approvalRate <= 0 {
		return 0
	}
	if approvalRate >= 100 {
		return 1
	}
	return approvalRate / 100
}

// ReadinessScore combines profile completeness and document approval into a
// 0..100 score rounded to one decimal. Pure and side-effect free.
func ReadinessScore(p Profile, documentApprovalRate float64) float64 {
	total := ProfileCompletenessRatio(p)*profileCompletenessWeight*100 +
		DocumentRatio(documentApprovalRate)*documentWeight*100

	if total < 0 {
		total = 0
	} else if total > 100 {
		total = 100
	}
	return math.Round(total*10) / 10
}
