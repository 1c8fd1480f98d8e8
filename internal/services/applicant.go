package services

import (
	"context"

	"github.com/google/uuid"
	"uk-eta-backend/internal/draft"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/security"
	"uk-eta-backend/internal/validation"
)

// ApplicantNormalizer is the single input boundary for applicant form data:
// structured fields are validated and canonicalized, free text is sanitized.
// Empty fields are allowed because drafts are saved while incomplete.
type ApplicantNormalizer struct {
	validator *validation.Validator
	sanitizer *security.Sanitizer
}

func NewApplicantNormalizer(v *validation.Validator, s *security.Sanitizer) *ApplicantNormalizer {
	return &ApplicantNormalizer{validator: v, sanitizer: s}
}

// Normalize returns the canonical input. A non-nil ValidationError lists every
// structured field that failed.
func (n *ApplicantNormalizer) Normalize(ctx context.Context, in models.ApplicantInput) (models.ApplicantInput, error) {
	out := in
	fields := make(map[string]string)

	check := func(field string, value *string, fn func(string) validation.Result) {
		if *value == "" {
			return
		}
		res := fn(*value)
		if !res.IsValid {
			fields[field] = res.Error
			return
		}
		*value = res.Sanitized
	}

	check("first_name", &out.FirstName, n.validator.PassportName)
	check("middle_names", &out.MiddleNames, n.validator.PassportName)
	check("last_name", &out.LastName, n.validator.PassportName)
	check("date_of_birth", &out.DateOfBirth, n.validator.DateOfBirth)
	check("nationality", &out.Nationality, n.validator.Nationality)
	check("passport_number", &out.PassportNumber, n.validator.PassportNumber)
	check("passport_expiry", &out.PassportExpiry, n.validator.PassportExpiry)
	check("email", &out.Email, n.validator.Email)
	check("phone", &out.Phone, n.validator.Phone)
	check("job_title", &out.JobTitle.Original, n.validator.JobTitle)

	out.Address = n.sanitizer.Clean(ctx, "address", out.Address)
	out.JobTitle.Original = n.sanitizer.Clean(ctx, "job_title", out.JobTitle.Original)
	out.JobTitle.Translated = n.sanitizer.CleanPtr(ctx, "job_title_translated", out.JobTitle.Translated)

	if len(fields) > 0 {
		return out, &ValidationError{Fields: fields}
	}
	return out, nil
}

// ToApplicant maps form input onto the persisted row for applicant number.
func ToApplicant(in models.ApplicantInput, applicationID uuid.UUID, number int) *models.Applicant {
	status := models.ApplicantComplete
	if len(draft.MissingFields(in)) > 0 {
		status = models.ApplicantIncomplete
	}
	return &models.Applicant{
		ApplicationID:      applicationID,
		ApplicantNumber:    number,
		FirstName:          in.FirstName,
		MiddleNames:        in.MiddleNames,
		LastName:           in.LastName,
		DateOfBirth:        models.DatePtr(in.DateOfBirth),
		Nationality:        in.Nationality,
		PassportNumber:     in.PassportNumber,
		PassportExpiry:     models.DatePtr(in.PassportExpiry),
		Email:              in.Email,
		Phone:              in.Phone,
		Address:            in.Address,
		JobTitle:           in.JobTitle.Original,
		JobTitleTranslated: in.JobTitle.Translated,
		Status:             status,
	}
}

// FromApplicant is the inverse of ToApplicant.
func FromApplicant(a models.Applicant) models.ApplicantInput {
	in := models.ApplicantInput{
		FirstName:      a.FirstName,
		MiddleNames:    a.MiddleNames,
		LastName:       a.LastName,
		Nationality:    a.Nationality,
		PassportNumber: a.PassportNumber,
		Email:          a.Email,
		Phone:          a.Phone,
		Address:        a.Address,
		JobTitle:       models.JobTitleField{Original: a.JobTitle, Translated: a.JobTitleTranslated},
	}
	if a.DateOfBirth != nil {
		in.DateOfBirth = a.DateOfBirth.String()
	}
	if a.PassportExpiry != nil {
		in.PassportExpiry = a.PassportExpiry.String()
	}
	return in
}
