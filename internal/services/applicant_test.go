package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/security"
	"uk-eta-backend/internal/services"
	"uk-eta-backend/internal/validation"
)

func newNormalizer() *services.ApplicantNormalizer {
	today := func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }
	return services.NewApplicantNormalizer(validation.New(validation.WithClock(today)), security.NewSanitizer())
}

func TestNormalize_Canonicalizes(t *testing.T) {
	out, err := newNormalizer().Normalize(context.Background(), models.ApplicantInput{
		FirstName:      "jane",
		LastName:       "o'neil",
		DateOfBirth:    " 1990-01-31 ",
		Nationality:    "usa",
		PassportNumber: "x7r-29 q4",
		PassportExpiry: "2030-05-01",
		Email:          " Jane@Example.COM ",
		Phone:          "+1 (415) 555-0100",
		Address:        "<script>alert(1)</script>1 Main Street",
		JobTitle:       models.JobTitleField{Original: "  senior   engineer "},
	})
	require.NoError(t, err)

	assert.Equal(t, "JANE", out.FirstName)
	assert.Equal(t, "O'NEIL", out.LastName)
	assert.Equal(t, "1990-01-31", out.DateOfBirth)
	assert.Equal(t, "USA", out.Nationality)
	assert.Equal(t, "X7R29Q4", out.PassportNumber)
	assert.Equal(t, "jane@example.com", out.Email)
	assert.Equal(t, "+14155550100", out.Phone)
	assert.Equal(t, "1 Main Street", out.Address)
	assert.Equal(t, "Senior Engineer", out.JobTitle.Original)
	assert.Nil(t, out.JobTitle.Translated)
}

func TestNormalize_EmptyFieldsAreAllowed(t *testing.T) {
	out, err := newNormalizer().Normalize(context.Background(), models.ApplicantInput{FirstName: "jane"})
	require.NoError(t, err)
	assert.Equal(t, "JANE", out.FirstName)
	assert.Empty(t, out.PassportNumber)
}

func TestNormalize_FieldErrors(t *testing.T) {
	_, err := newNormalizer().Normalize(context.Background(), models.ApplicantInput{
		FirstName:      "J4NE",
		PassportNumber: "123456",
		Nationality:    "US",
		PassportExpiry: "2020-01-01",
		Email:          "jane@example.com",
	})

	var verr *services.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Len(t, verr.Fields, 4)
	assert.Contains(t, verr.Fields["first_name"], "letters A-Z")
	assert.Contains(t, verr.Fields["passport_number"], "sequences")
	assert.Contains(t, verr.Fields["nationality"], "three letter")
	assert.Equal(t, "Passport has expired", verr.Fields["passport_expiry"])
	assert.NotContains(t, verr.Fields, "email")
}

func TestApplicantMapping(t *testing.T) {
	translated := "Engineer"
	in := fullApplicant("JANE")
	in.MiddleNames = "MARY"
	in.JobTitle = models.JobTitleField{Original: "Ingeniera", Translated: &translated}
	appID := uuid.New()

	a := services.ToApplicant(in, appID, 2)
	assert.Equal(t, appID, a.ApplicationID)
	assert.Equal(t, 2, a.ApplicantNumber)
	assert.Equal(t, models.ApplicantComplete, a.Status)
	require.NotNil(t, a.DateOfBirth)
	assert.Equal(t, "1990-01-31", a.DateOfBirth.String())

	assert.Equal(t, in, services.FromApplicant(*a))

	in.Phone = ""
	assert.Equal(t, models.ApplicantIncomplete, services.ToApplicant(in, appID, 1).Status)
	in.DateOfBirth = ""
	assert.Nil(t, services.ToApplicant(in, appID, 1).DateOfBirth)
}
