package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/notification"
	"uk-eta-backend/internal/services"
	"uk-eta-backend/internal/store"
)

func TestResume_RoundTrip(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	partial := fullApplicant("JOHN")
	partial.Phone = ""
	draftID := e.newDraft(t, fullApplicant("JANE"), partial)
	_, err := e.drafts.Advance(draftID)
	require.NoError(t, err)

	link, err := e.resumes.SaveForLater(ctx, draftID, "later@example.com")
	require.NoError(t, err)
	assert.True(t, link.Success)
	_, err = uuid.Parse(link.ResumeToken)
	require.NoError(t, err)
	assert.Equal(t, testPortal+"/resume/"+link.ResumeToken, link.ResumeURL)
	assert.Equal(t, e.now.Add(services.ResumeLinkTTL), link.ExpiresAt)

	sent := e.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notification.TemplateResumeLink, sent[0].Template)
	assert.Equal(t, "later@example.com", sent[0].To)
	assert.Contains(t, sent[0].Text, link.ResumeURL)

	e.advance(29 * 24 * time.Hour)
	for i := 0; i < 2; i++ {
		resp, err := e.resumes.Resume(ctx, link.ResumeToken, "")
		require.NoError(t, err)
		assert.True(t, resp.Success)
		require.NotNil(t, resp.Application)
		assert.Equal(t, []models.ApplicantInput{fullApplicant("JANE"), partial}, resp.Application.Applicants)
		assert.Equal(t, "later@example.com", resp.Application.Email)

		restored, err := e.drafts.Get(uuid.MustParse(resp.DraftID))
		require.NoError(t, err)
		assert.Equal(t, models.StepDocuments, restored.Step)
		assert.Equal(t, resp.Application.Applicants, restored.Applicants)
	}
}

func TestResume_NewSessionTakesOverApplication(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	d := e.drafts.CreateFor("user-1", testEmail)
	_, err := e.drafts.WriteApplicant(d.ID, 1, fullApplicant("JANE"))
	require.NoError(t, err)
	saved, err := e.apps.SaveDraft(ctx, d.ID, testEmail)
	require.NoError(t, err)
	link, err := e.resumes.SaveForLater(ctx, d.ID, testEmail)
	require.NoError(t, err)

	resp, err := e.resumes.Resume(ctx, link.ResumeToken, "user-2")
	require.NoError(t, err)
	restored, err := e.drafts.Get(uuid.MustParse(resp.DraftID))
	require.NoError(t, err)
	assert.True(t, restored.OwnedBy("user-2"))
	assert.False(t, restored.OwnedBy("user-1"))

	resaved, err := e.apps.SaveDraft(ctx, restored.ID, testEmail)
	require.NoError(t, err)
	assert.Equal(t, saved.ApplicationID, resaved.ApplicationID)
	assert.Equal(t, saved.ApplicantIDs, resaved.ApplicantIDs)

	app, err := e.store.GetApplication(ctx, uuid.MustParse(saved.ApplicationID))
	require.NoError(t, err)
	assert.Equal(t, "user-2", app.OwnerID)
}

func TestResume_Expired(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	link, err := e.resumes.SaveAndEmailResumeLink(ctx, []models.ApplicantInput{fullApplicant("JANE")}, testEmail, 1, nil)
	require.NoError(t, err)
	require.Equal(t, 1, e.links.Len())

	e.advance(services.ResumeLinkTTL + time.Minute)
	_, err = e.resumes.Resume(ctx, link.ResumeToken, "")
	assert.ErrorIs(t, err, store.ErrExpired)
	assert.Equal(t, 0, e.links.Len())

	_, err = e.resumes.Resume(ctx, link.ResumeToken, "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResume_UnknownToken(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.resumes.Resume(context.Background(), uuid.NewString(), "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSaveForLater_EmailFailureKeepsLink(t *testing.T) {
	e := newTestEnv(t)
	draftID := e.newDraft(t, fullApplicant("JANE"))
	e.mailer.SetErr(assert.AnError)

	link, err := e.resumes.SaveForLater(context.Background(), draftID, testEmail)
	require.NoError(t, err)
	assert.NotEmpty(t, link.ResumeToken)
	assert.Equal(t, 1, e.links.Len())
	require.Len(t, e.notifier.Pending(), 1)
	assert.Equal(t, notification.TemplateResumeLink, e.notifier.Pending()[0].Template)
}

func TestSaveForLater_SubmittedDraft(t *testing.T) {
	e := newTestEnv(t)
	s := e.seedReady(t)
	e.toReview(t, s.draftID)
	_, err := e.apps.SubmitDraft(context.Background(), s.draftID, testEmail)
	require.NoError(t, err)

	_, err = e.resumes.SaveForLater(context.Background(), s.draftID, testEmail)
	assert.ErrorIs(t, err, store.ErrInvalidState)
}
