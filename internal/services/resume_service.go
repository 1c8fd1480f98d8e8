package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"uk-eta-backend/internal/draft"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/notification"
	"uk-eta-backend/internal/resume"
	"uk-eta-backend/internal/store"
)

// ResumeLinkTTL is how long a save-for-later link stays usable.
const ResumeLinkTTL = 30 * 24 * time.Hour

type ResumeService struct {
	base
	links     resume.Store
	drafts    *draft.Manager
	notifier  *notification.Service
	portalURL string
}

func NewResumeService(links resume.Store, drafts *draft.Manager, notifier *notification.Service, portalURL string, opts ...Option) *ResumeService {
	return &ResumeService{
		base:      newBase(opts),
		links:     links,
		drafts:    drafts,
		notifier:  notifier,
		portalURL: strings.TrimRight(portalURL, "/"),
	}
}

// SaveForLater snapshots a draft and emails the resume link to email.
func (s *ResumeService) SaveForLater(ctx context.Context, draftID uuid.UUID, email string) (*models.ResumeLinkResponse, error) {
	d, err := s.drafts.Get(draftID)
	if err != nil {
		return nil, err
	}
	if d.State == models.DraftSubmitted {
		return nil, fmt.Errorf("draft %s already submitted: %w", draftID, store.ErrInvalidState)
	}
	if _, err := s.drafts.SetEmail(draftID, email); err != nil {
		return nil, err
	}
	return s.saveLink(ctx, &models.ResumeSnapshot{
		Applicants:    d.Applicants,
		Email:         email,
		Step:          d.Step,
		ApplicationID: d.ApplicationID,
		ApplicantIDs:  d.ApplicantIDs,
	})
}

// SaveAndEmailResumeLink stores the snapshot under a new token. The link is
// returned even when the email cannot be delivered; the email waits in the
// notification outbox.
func (s *ResumeService) SaveAndEmailResumeLink(ctx context.Context, applicants []models.ApplicantInput, email string, step int, applicationID *uuid.UUID) (*models.ResumeLinkResponse, error) {
	return s.saveLink(ctx, &models.ResumeSnapshot{
		Applicants:    applicants,
		Email:         email,
		Step:          step,
		ApplicationID: applicationID,
	})
}

func (s *ResumeService) saveLink(ctx context.Context, snap *models.ResumeSnapshot) (*models.ResumeLinkResponse, error) {
	now := s.now()
	snap.Token = uuid.NewString()
	snap.SavedAt = now
	snap.ExpiresAt = now.Add(ResumeLinkTTL)
	email := snap.Email
	if err := s.links.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to save resume link: %w", err)
	}
	s.metrics.IncResumeLink("saved")

	link := s.ResumeURL(snap.Token)
	s.notify(ctx, s.notifier, email, notification.TemplateResumeLink, notification.Data{
		ResumeURL: link,
		ExpiresAt: snap.ExpiresAt.UTC().Format("2 January 2006"),
	})

	return &models.ResumeLinkResponse{
		Success:     true,
		ResumeToken: snap.Token,
		ResumeURL:   link,
		ExpiresAt:   snap.ExpiresAt,
	}, nil
}

// Resume rehydrates the snapshot into a new draft owned by subject. Links are
// reusable until they expire; an expired snapshot is deleted and reported as
// store.ErrExpired.
func (s *ResumeService) Resume(ctx context.Context, token, subject string) (*models.ResumeResponse, error) {
	snap, err := s.links.Get(ctx, token)
	if err != nil {
		s.metrics.IncResumeLink("not_found")
		return nil, err
	}
	if s.now().After(snap.ExpiresAt) {
		if err := s.links.Delete(ctx, token); err != nil {
			s.logger.WarnContext(ctx, "failed to delete expired resume link", "error", err)
		}
		s.metrics.IncResumeLink("expired")
		return nil, fmt.Errorf("resume link: %w", store.ErrExpired)
	}

	d := s.drafts.Restore(subject, snap)
	s.metrics.IncResumeLink("resumed")
	return &models.ResumeResponse{Success: true, DraftID: d.ID.String(), Application: snap}, nil
}

func (s *ResumeService) ResumeURL(token string) string {
	return s.portalURL + "/resume/" + token
}
