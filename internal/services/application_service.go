package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"uk-eta-backend/internal/draft"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/notification"
	"uk-eta-backend/internal/store"
)

type ApplicationService struct {
	base
	store     store.Store
	objects   store.ObjectStore
	drafts    *draft.Manager
	notifier  *notification.Service
	fee       decimal.Decimal
	portalURL string
}

type ApplicationConfig struct {
	FeePerApplicant decimal.Decimal
	PortalURL       string
	// Objects holds uploaded files; blobs of removed applicants are deleted from it.
	Objects store.ObjectStore
}

func NewApplicationService(st store.Store, drafts *draft.Manager, notifier *notification.Service, cfg ApplicationConfig, opts ...Option) *ApplicationService {
	return &ApplicationService{
		base:      newBase(opts),
		store:     st,
		objects:   cfg.Objects,
		drafts:    drafts,
		notifier:  notifier,
		fee:       cfg.FeePerApplicant,
		portalURL: strings.TrimRight(cfg.PortalURL, "/"),
	}
}

// SaveDraft persists the draft's application and applicants in one
// transaction and records the resulting ids on the draft.
func (s *ApplicationService) SaveDraft(ctx context.Context, draftID uuid.UUID, actor string) (*models.PersistDraftResponse, error) {
	d, err := s.drafts.Get(draftID)
	if err != nil {
		return nil, err
	}
	if d.State == models.DraftSubmitted {
		return nil, fmt.Errorf("draft %s already submitted: %w", draftID, store.ErrInvalidState)
	}

	var (
		app     *models.Application
		ids     []uuid.UUID
		dropped []models.Document
	)
	err = s.retryReference(ctx, func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			app, ids, dropped, err = s.persistDraft(ctx, d, actor)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	s.removeBlobs(ctx, dropped)

	if _, err := s.drafts.AttachApplication(draftID, app.ID, ids, app.ReferenceNumber); err != nil {
		return nil, err
	}

	resp := &models.PersistDraftResponse{
		ApplicationID:   app.ID.String(),
		ReferenceNumber: app.ReferenceNumber,
		ApplicantIDs:    make([]string, 0, len(ids)),
	}
	for _, id := range ids {
		resp.ApplicantIDs = append(resp.ApplicantIDs, id.String())
	}
	return resp, nil
}

// persistDraft matches draft applicants to rows by the ids recorded on the
// draft, renumbering kept rows densely. Rows the draft no longer lists are
// deleted together with their documents, which are returned so the caller can
// remove the stored files once the transaction commits.
func (s *ApplicationService) persistDraft(ctx context.Context, d *models.Draft, actor string) (*models.Application, []uuid.UUID, []models.Document, error) {
	n := len(d.Applicants)
	email := d.Email
	if email == "" && n > 0 {
		email = d.Applicants[0].Email
	}

	input := &models.Application{
		UserEmail:       email,
		ApplicationType: models.ApplicationTypeFor(n),
		PaymentAmount:   s.amountFor(n),
		OwnerID:         d.OwnerID,
	}
	if d.ApplicationID != nil {
		input.ID = *d.ApplicationID
	}

	app, err := s.saveApplication(ctx, input, actor)
	if err != nil {
		return nil, nil, nil, err
	}

	existing, err := s.store.ListApplicants(ctx, app.ID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list applicants: %w", err)
	}
	known := make(map[uuid.UUID]bool, len(existing))
	for _, a := range existing {
		known[a.ID] = true
	}

	// Drafts restored from older snapshots carry no ids; rows then line up by number.
	rowIDs := d.ApplicantIDs
	if len(rowIDs) == 0 {
		for _, a := range existing {
			rowIDs = append(rowIDs, a.ID)
		}
	}
	slots := make([]uuid.UUID, n)
	kept := make(map[uuid.UUID]bool, n)
	for i := range slots {
		if i < len(rowIDs) && known[rowIDs[i]] && !kept[rowIDs[i]] {
			slots[i] = rowIDs[i]
			kept[rowIDs[i]] = true
		}
	}

	var dropped []models.Document
	for _, a := range existing {
		if kept[a.ID] {
			continue
		}
		docs, err := s.store.ListDocumentsByApplicant(ctx, a.ID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to list documents of removed applicant: %w", err)
		}
		if err := s.store.DeleteApplicant(ctx, a.ID); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to remove applicant %d: %w", a.ApplicantNumber, err)
		}
		err = audit(ctx, s.store, app.ID, actor, models.AuditApplicantRemoved, models.JSONMap{
			"applicant_id": a.ID.String(),
			"documents":    len(docs),
		})
		if err != nil {
			return nil, nil, nil, err
		}
		dropped = append(dropped, docs...)
	}

	// Kept rows only ever move to a lower number, so renumbering in order never
	// collides. New applicants are inserted afterwards into the freed numbers.
	ids := make([]uuid.UUID, n)
	for i, in := range d.Applicants {
		if slots[i] == uuid.Nil {
			continue
		}
		applicant := ToApplicant(in, app.ID, i+1)
		applicant.ID = slots[i]
		if err := s.store.UpdateApplicant(ctx, applicant); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to save applicant %d: %w", i+1, err)
		}
		ids[i] = applicant.ID
	}
	for i, in := range d.Applicants {
		if slots[i] != uuid.Nil {
			continue
		}
		applicant := ToApplicant(in, app.ID, i+1)
		if err := s.store.UpsertApplicant(ctx, applicant); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to save applicant %d: %w", i+1, err)
		}
		ids[i] = applicant.ID
	}
	return app, ids, dropped, nil
}

// removeBlobs deletes the stored files of documents whose rows are gone.
// Failures leave an orphaned object behind and are only logged.
func (s *ApplicationService) removeBlobs(ctx context.Context, docs []models.Document) {
	if s.objects == nil {
		return
	}
	for _, doc := range docs {
		if err := s.objects.Remove(ctx, doc.Bucket, doc.StoragePath); err != nil {
			s.logger.WarnContext(ctx, "failed to remove stored file of removed applicant",
				"document_id", doc.ID, "bucket", doc.Bucket, "error", err)
		}
	}
}

// SaveApplication creates the application on first call, with a fresh
// reference number, and updates it afterwards. Only drafts can be saved.
func (s *ApplicationService) SaveApplication(ctx context.Context, app *models.Application, actor string) (*models.Application, error) {
	var saved *models.Application
	err := s.retryReference(ctx, func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			saved, err = s.saveApplication(ctx, app, actor)
			return err
		})
	})
	return saved, err
}

func (s *ApplicationService) saveApplication(ctx context.Context, in *models.Application, actor string) (*models.Application, error) {
	if in.ID != uuid.Nil {
		existing, err := s.store.GetApplication(ctx, in.ID)
		switch {
		case err == nil:
			if existing.Status != models.StatusDraft {
				return nil, NewBusinessError("Application %s has already been submitted", existing.ReferenceNumber)
			}
			if in.UserEmail != "" {
				existing.UserEmail = in.UserEmail
			}
			if in.ApplicationType != "" {
				existing.ApplicationType = in.ApplicationType
			}
			if in.ApplicationData != nil {
				existing.ApplicationData = in.ApplicationData
			}
			// a draft restored from a resume link hands the application to its new session
			if in.OwnerID != "" {
				existing.OwnerID = in.OwnerID
			}
			existing.PaymentAmount = in.PaymentAmount
			if err := s.store.UpdateApplication(ctx, existing); err != nil {
				return nil, fmt.Errorf("failed to update application: %w", err)
			}
			if err := audit(ctx, s.store, existing.ID, actor, models.AuditApplicationSaved, nil); err != nil {
				return nil, err
			}
			return existing, nil
		case !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("failed to load application: %w", err)
		}
	}

	reference, err := NewReferenceNumber(s.now())
	if err != nil {
		return nil, err
	}
	app := &models.Application{
		ID:              in.ID,
		ReferenceNumber: reference,
		Status:          models.StatusDraft,
		PaymentStatus:   models.PaymentPending,
		PaymentAmount:   in.PaymentAmount,
		UserEmail:       in.UserEmail,
		ApplicationType: in.ApplicationType,
		ApplicationData: in.ApplicationData,
		OwnerID:         in.OwnerID,
	}
	if app.ApplicationType == "" {
		app.ApplicationType = models.ApplicationSingle
	}
	if err := s.store.CreateApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	if err := audit(ctx, s.store, app.ID, actor, models.AuditApplicationCreated, models.JSONMap{"reference_number": reference}); err != nil {
		return nil, err
	}
	return app, nil
}

// SaveApplicant upserts one applicant by (application_id, applicant_number).
func (s *ApplicationService) SaveApplicant(ctx context.Context, applicant *models.Applicant) error {
	return s.store.WithinTx(ctx, func(ctx context.Context) error {
		app, err := s.store.GetApplication(ctx, applicant.ApplicationID)
		if err != nil {
			return fmt.Errorf("failed to load application: %w", err)
		}
		if app.Status != models.StatusDraft {
			return NewBusinessError("Application %s has already been submitted", app.ReferenceNumber)
		}
		if err := s.store.UpsertApplicant(ctx, applicant); err != nil {
			return fmt.Errorf("failed to save applicant %d: %w", applicant.ApplicantNumber, err)
		}
		return nil
	})
}

// retryReference reruns fn when it fails on a unique violation, which for a
// new application means the generated reference number was already taken.
func (s *ApplicationService) retryReference(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= referenceAttempts; attempt++ {
		err = fn(ctx)
		if !errors.Is(err, store.ErrConflict) {
			return err
		}
		s.logger.WarnContext(ctx, "reference number collision, retrying", "attempt", attempt)
	}
	return fmt.Errorf("failed to allocate a unique reference number: %w", err)
}

// SubmitApplication checks every applicant is complete and has a passport and
// a photo, then marks the application submitted.
func (s *ApplicationService) SubmitApplication(ctx context.Context, applicationID uuid.UUID, actor string) (*models.Application, error) {
	var (
		app   *models.Application
		first models.Applicant
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		app, err = s.store.GetApplication(ctx, applicationID)
		if err != nil {
			return fmt.Errorf("failed to load application: %w", err)
		}
		if app.Status != models.StatusDraft {
			return NewBusinessError("Application %s has already been submitted", app.ReferenceNumber)
		}

		applicants, err := s.store.ListApplicants(ctx, app.ID)
		if err != nil {
			return fmt.Errorf("failed to list applicants: %w", err)
		}
		if len(applicants) == 0 {
			return NewBusinessError("Application has no applicants")
		}
		if err := checkApplicantsComplete(applicants); err != nil {
			return err
		}

		docs, err := s.store.ListDocumentsByApplication(ctx, app.ID)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		if err := checkRequiredDocuments(applicants, docs); err != nil {
			return err
		}

		if app.ReferenceNumber == "" {
			if app.ReferenceNumber, err = NewReferenceNumber(s.now()); err != nil {
				return err
			}
		}
		now := s.now()
		app.Status = models.StatusSubmitted
		app.SubmittedAt = &now
		app.ApplicationType = models.ApplicationTypeFor(len(applicants))
		app.PaymentAmount = s.amountFor(len(applicants))
		if err := s.store.UpdateApplication(ctx, app); err != nil {
			return fmt.Errorf("failed to update application: %w", err)
		}

		for _, a := range applicants {
			if err := s.store.UpdateApplicantStatus(ctx, a.ID, models.ApplicantSubmitted); err != nil {
				return fmt.Errorf("failed to update applicant %d: %w", a.ApplicantNumber, err)
			}
		}
		first = applicants[0]

		return audit(ctx, s.store, app.ID, actor, models.AuditApplicationSubmit, models.JSONMap{
			"reference_number": app.ReferenceNumber,
			"applicants":       len(applicants),
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncSubmission()
	s.logger.InfoContext(ctx, "application submitted", "application_id", app.ID, "reference_number", app.ReferenceNumber)

	to := app.UserEmail
	if to == "" {
		to = first.Email
	}
	s.notify(ctx, s.notifier, to, notification.TemplateConfirmation, notification.Data{
		Name:            applicantName(first),
		ReferenceNumber: app.ReferenceNumber,
		TrackURL:        s.trackURL(app.ReferenceNumber),
	})
	return app, nil
}

// SubmitDraft persists a draft on the review step, submits it and closes the draft.
func (s *ApplicationService) SubmitDraft(ctx context.Context, draftID uuid.UUID, actor string) (*models.Application, error) {
	d, err := s.drafts.Get(draftID)
	if err != nil {
		return nil, err
	}
	if d.State != models.DraftInProgress || d.Step != models.StepReview {
		return nil, fmt.Errorf("draft must be on the review step to submit: %w", store.ErrInvalidState)
	}

	saved, err := s.SaveDraft(ctx, draftID, actor)
	if err != nil {
		return nil, err
	}
	appID, err := uuid.Parse(saved.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("invalid application id %q: %w", saved.ApplicationID, err)
	}

	app, err := s.SubmitApplication(ctx, appID, actor)
	if err != nil {
		return nil, err
	}
	if _, err := s.drafts.MarkSubmitted(draftID, app.ReferenceNumber); err != nil {
		s.logger.WarnContext(ctx, "application submitted but draft not closed", "draft_id", draftID, "error", err)
	}
	return app, nil
}

// Track returns the public status of an application. A wrong email reads as
// not found so references cannot be probed.
func (s *ApplicationService) Track(ctx context.Context, reference, email string) (*models.TrackResponse, error) {
	reference = strings.ToUpper(strings.TrimSpace(reference))
	app, err := s.store.GetApplicationByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if app.UserEmail == "" || !strings.EqualFold(app.UserEmail, strings.TrimSpace(email)) {
		return nil, fmt.Errorf("application %s: %w", reference, store.ErrNotFound)
	}

	applicants, err := s.store.ListApplicants(ctx, app.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applicants: %w", err)
	}
	return &models.TrackResponse{
		ReferenceNumber: app.ReferenceNumber,
		Status:          app.Status,
		PaymentStatus:   app.PaymentStatus,
		ApplicationType: app.ApplicationType,
		Applicants:      len(applicants),
		SubmittedAt:     app.SubmittedAt,
		UpdatedAt:       app.UpdatedAt,
	}, nil
}

func (s *ApplicationService) amountFor(applicants int) decimal.Decimal {
	return s.fee.Mul(decimal.NewFromInt(int64(applicants)))
}

func (s *ApplicationService) trackURL(reference string) string {
	return s.portalURL + "/track?reference=" + url.QueryEscape(reference)
}

func checkApplicantsComplete(applicants []models.Applicant) error {
	var incomplete []string
	for _, a := range applicants {
		if missing := draft.MissingFields(FromApplicant(a)); len(missing) > 0 {
			incomplete = append(incomplete, fmt.Sprintf("applicant %d (%s)", a.ApplicantNumber, strings.Join(missing, ", ")))
		}
	}
	if len(incomplete) > 0 {
		return NewBusinessError("Incomplete applicant details: %s", strings.Join(incomplete, "; "))
	}
	return nil
}

// checkRequiredDocuments wants a passport and a photo per applicant. Rejected
// documents do not count.
func checkRequiredDocuments(applicants []models.Applicant, docs []models.Document) error {
	have := make(map[uuid.UUID]map[models.DocumentType]bool, len(applicants))
	for _, d := range docs {
		if d.VerificationStatus == models.VerificationRejected {
			continue
		}
		if have[d.ApplicantID] == nil {
			have[d.ApplicantID] = make(map[models.DocumentType]bool)
		}
		have[d.ApplicantID][d.DocumentType] = true
	}

	var missing []string
	for _, a := range applicants {
		for _, t := range []models.DocumentType{models.DocumentPassport, models.DocumentPhoto} {
			if !have[a.ID][t] {
				missing = append(missing, fmt.Sprintf("applicant %d %s", a.ApplicantNumber, t))
			}
		}
	}
	if len(missing) > 0 {
		return NewBusinessError("Missing required documents: %s", strings.Join(missing, ", "))
	}
	return nil
}
