package draft

import (
	"strings"

	"uk-eta-backend/internal/models"
)

// RequiredFields are counted by Completion, ten per applicant.
var RequiredFields = []string{
	"first_name", "last_name", "date_of_birth", "nationality", "passport_number",
	"passport_expiry", "email", "phone", "address", "job_title",
}

func requiredValues(a models.ApplicantInput) []string {
	return []string{
		a.FirstName, a.LastName, a.DateOfBirth, a.Nationality, a.PassportNumber,
		a.PassportExpiry, a.Email, a.Phone, a.Address, a.JobTitle.Original,
	}
}

// Completion is the share of required fields filled across all applicants,
// as a whole percentage. A submitted draft is 100.
func Completion(d *models.Draft) int {
	if d.State == models.DraftSubmitted {
		return 100
	}
	if len(d.Applicants) == 0 {
		return 0
	}
	filled := 0
	for _, a := range d.Applicants {
		for _, v := range requiredValues(a) {
			if strings.TrimSpace(v) != "" {
				filled++
			}
		}
	}
	return filled * 100 / (len(d.Applicants) * len(RequiredFields))
}

// MissingFields lists the required fields still empty for one applicant.
func MissingFields(a models.ApplicantInput) []string {
	var missing []string
	for i, v := range requiredValues(a) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, RequiredFields[i])
		}
	}
	return missing
}
