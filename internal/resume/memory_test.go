package resume_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/resume"
	"uk-eta-backend/internal/store"
)

func snapshot(token string) *models.ResumeSnapshot {
	translated := "Engineer"
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	return &models.ResumeSnapshot{
		Token: token,
		Applicants: []models.ApplicantInput{
			{FirstName: "JANE", LastName: "DOE", JobTitle: models.JobTitleField{Original: "Ingeniera", Translated: &translated}},
			{FirstName: "JOHN", LastName: "DOE"},
		},
		Email:     "jane@example.com",
		Step:      2,
		SavedAt:   now,
		ExpiresAt: now.Add(30 * 24 * time.Hour),
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := resume.NewMemoryStore()

	in := snapshot("tok-1")
	require.NoError(t, s.Save(ctx, in))

	out, err := s.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// mutating the returned copy leaves the stored snapshot alone
	*out.Applicants[0].JobTitle.Translated = "changed"
	out.Applicants[1].FirstName = "X"
	again, err := s.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "Engineer", *again.Applicants[0].JobTitle.Translated)
	assert.Equal(t, "JOHN", again.Applicants[1].FirstName)
}

func TestMemoryStore_NotFoundAndDelete(t *testing.T) {
	ctx := context.Background()
	s := resume.NewMemoryStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Save(ctx, snapshot("tok-2")))
	assert.Equal(t, 1, s.Len())
	require.NoError(t, s.Delete(ctx, "tok-2"))
	_, err = s.Get(ctx, "tok-2")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Save(ctx, snapshot("tok-3")))
	s.Reset()
	assert.Equal(t, 0, s.Len())
}
