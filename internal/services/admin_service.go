package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"uk-eta-backend/internal/draft"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/notification"
	"uk-eta-backend/internal/store"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100

	DefaultReminderAge = 3 * 24 * time.Hour
)

// StatsProvider aggregates application counts by status over a date range.
type StatsProvider interface {
	DashboardStats(ctx context.Context, from, to *time.Time) (*models.DashboardStats, error)
}

// StoreStats counts applications through the store.
type StoreStats struct {
	Store store.ApplicationStore
}

func (p StoreStats) DashboardStats(ctx context.Context, from, to *time.Time) (*models.DashboardStats, error) {
	counts, err := p.Store.CountApplicationsByStatus(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}
	stats := &models.DashboardStats{From: from, To: to, ByStatus: make(map[string]int, len(counts))}
	for status, n := range counts {
		stats.ByStatus[string(status)] = n
		stats.Total += n
	}
	return stats, nil
}

type AdminService struct {
	base
	store     store.Store
	stats     StatsProvider
	notifier  *notification.Service
	portalURL string
}

// NewAdminService falls back to StoreStats when stats is nil.
func NewAdminService(st store.Store, stats StatsProvider, notifier *notification.Service, portalURL string, opts ...Option) *AdminService {
	fallback := StoreStats{Store: st}
	if stats == nil {
		stats = fallback
	}
	return &AdminService{
		base:      newBase(opts),
		store:     st,
		stats:     stats,
		notifier:  notifier,
		portalURL: strings.TrimRight(portalURL, "/"),
	}
}

// GetStats asks the configured provider and falls back to counting through the
// store when it fails.
func (s *AdminService) GetStats(ctx context.Context, from, to *time.Time) (*models.DashboardStats, error) {
	stats, err := s.stats.DashboardStats(ctx, from, to)
	if err == nil {
		return stats, nil
	}
	if _, isStore := s.stats.(StoreStats); isStore {
		return nil, err
	}
	s.logger.WarnContext(ctx, "dashboard stats provider failed, counting from store", "error", err)
	return StoreStats{Store: s.store}.DashboardStats(ctx, from, to)
}

func (s *AdminService) DashboardMetrics(ctx context.Context) (*models.DashboardMetrics, error) {
	var (
		byStatus  map[models.ApplicationStatus]int
		byPayment map[models.PaymentStatus]int
		pending   int
		revenue   decimal.Decimal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byStatus, err = s.store.CountApplicationsByStatus(gctx, nil, nil)
		return err
	})
	g.Go(func() error {
		var err error
		byPayment, err = s.store.CountApplicationsByPaymentStatus(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		pending, err = s.store.CountDocumentsByVerification(gctx, models.VerificationPending)
		return err
	})
	g.Go(func() error {
		var err error
		revenue, err = s.store.SumPaidAmount(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load dashboard metrics: %w", err)
	}

	out := &models.DashboardMetrics{
		ByStatus:         make(map[string]int, len(byStatus)),
		ByPaymentStatus:  make(map[string]int, len(byPayment)),
		PendingDocuments: pending,
		Revenue:          revenue,
	}
	for k, v := range byStatus {
		out.ByStatus[string(k)] = v
	}
	for k, v := range byPayment {
		out.ByPaymentStatus[string(k)] = v
	}
	return out, nil
}

type ListApplicationsInput struct {
	Page          int
	PerPage       int
	Status        string
	PaymentStatus string
	Search        string
}

func (s *AdminService) ListApplications(ctx context.Context, in ListApplicationsInput) (*models.ApplicationListResponse, error) {
	page := max(in.Page, 1)
	perPage := in.PerPage
	switch {
	case perPage <= 0:
		perPage = DefaultPerPage
	case perPage > MaxPerPage:
		perPage = MaxPerPage
	}

	filter := store.ApplicationFilter{
		Search: strings.TrimSpace(in.Search),
		Offset: (page - 1) * perPage,
		Limit:  perPage,
	}
	if in.Status != "" {
		status := models.ApplicationStatus(in.Status)
		if !status.Valid() {
			return nil, NewBusinessError("Unknown application status %q", in.Status)
		}
		filter.Status = status
	}
	if in.PaymentStatus != "" {
		status := models.PaymentStatus(in.PaymentStatus)
		if !status.Valid() {
			return nil, NewBusinessError("Unknown payment status %q", in.PaymentStatus)
		}
		filter.PaymentStatus = status
	}

	apps, total, err := s.store.ListApplications(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	if apps == nil {
		apps = []models.Application{}
	}
	return &models.ApplicationListResponse{Applications: apps, Total: total, Page: page, PerPage: perPage}, nil
}

func (s *AdminService) GetApplication(ctx context.Context, id uuid.UUID) (*models.ApplicationDetail, error) {
	app, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	applicants, err := s.store.ListApplicants(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list applicants: %w", err)
	}
	docs, err := s.store.ListDocumentsByApplication(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	if applicants == nil {
		applicants = []models.Applicant{}
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return &models.ApplicationDetail{Application: *app, Applicants: applicants, Documents: docs}, nil
}

// UpdateApplicationStatus accepts any known status; transitions are not restricted.
func (s *AdminService) UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus, notes, actor string) (*models.StatusUpdateResponse, error) {
	if !status.Valid() {
		return nil, NewBusinessError("Unknown application status %q", status)
	}

	var (
		app      *models.Application
		previous models.ApplicationStatus
		lead     models.Applicant
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		app, err = s.store.GetApplication(ctx, id)
		if err != nil {
			return err
		}
		previous = app.Status
		app.Status = status
		if status == models.StatusSubmitted && app.SubmittedAt == nil {
			now := s.now()
			app.SubmittedAt = &now
		}
		if err := s.store.UpdateApplication(ctx, app); err != nil {
			return fmt.Errorf("failed to update application: %w", err)
		}

		applicants, err := s.store.ListApplicants(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list applicants: %w", err)
		}
		if len(applicants) > 0 {
			lead = applicants[0]
		}

		details := models.JSONMap{"from": string(previous), "to": string(status)}
		if notes != "" {
			details["notes"] = notes
		}
		return audit(ctx, s.store, id, actor, models.AuditStatusUpdated, details)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncStatusUpdate(string(status))
	s.logger.InfoContext(ctx, "application status updated", "application_id", id, "from", string(previous), "to", string(status))

	if previous != status {
		to := app.UserEmail
		if to == "" {
			to = lead.Email
		}
		data := notification.Data{Name: applicantName(lead), ReferenceNumber: app.ReferenceNumber, Reason: notes}
		switch status {
		case models.StatusApproved:
			s.notify(ctx, s.notifier, to, notification.TemplateApproval, data)
		case models.StatusRejected:
			s.notify(ctx, s.notifier, to, notification.TemplateRejection, data)
		}
	}
	return &models.StatusUpdateResponse{Success: true, Application: *app}, nil
}

// VerifyDocument records a reviewer's decision on a pending document. Once
// both a passport and a photo of an applicant are verified the applicant moves
// to documents_verified.
func (s *AdminService) VerifyDocument(ctx context.Context, documentID uuid.UUID, status models.VerificationStatus, notes, actor string) (*models.VerifyDocumentResponse, error) {
	if status != models.VerificationVerified && status != models.VerificationRejected {
		return nil, NewBusinessError("Verification status must be verified or rejected")
	}

	var (
		doc             *models.Document
		applicantStatus models.ApplicantStatus
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.store.GetDocument(ctx, documentID)
		if err != nil {
			return err
		}
		if doc.VerificationStatus != models.VerificationPending {
			return NewBusinessError("Document has already been %s", doc.VerificationStatus)
		}

		now := s.now()
		doc.VerificationStatus = status
		doc.VerifiedBy = &actor
		doc.VerifiedAt = &now
		if notes != "" {
			doc.Metadata.Notes = notes
		}
		if err := s.store.UpdateDocumentVerification(ctx, doc); err != nil {
			return fmt.Errorf("failed to update document: %w", err)
		}

		applicantStatus, err = applyDocumentsVerified(ctx, s.store, doc.ApplicantID)
		if err != nil {
			return err
		}
		return audit(ctx, s.store, doc.ApplicationID, actor, models.AuditDocumentVerified, models.JSONMap{
			"document_id":         doc.ID.String(),
			"verification_status": string(status),
			"applicant_status":    string(applicantStatus),
		})
	})
	if err != nil {
		return nil, err
	}
	return &models.VerifyDocumentResponse{Success: true, Document: *doc, ApplicantStatus: applicantStatus}, nil
}

// SendReminders emails the owners of drafts untouched for olderThan and
// returns how many emails went out.
func (s *AdminService) SendReminders(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		olderThan = DefaultReminderAge
	}
	apps, err := s.store.ListDraftsUpdatedBefore(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to list stale drafts: %w", err)
	}

	sent := 0
	for _, app := range apps {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		applicants, err := s.store.ListApplicants(ctx, app.ID)
		if err != nil {
			return sent, fmt.Errorf("failed to list applicants: %w", err)
		}

		d := &models.Draft{State: models.DraftInProgress}
		var name string
		for i, a := range applicants {
			if i == 0 {
				name = applicantName(a)
			}
			d.Applicants = append(d.Applicants, FromApplicant(a))
		}

		err = s.notifier.Send(ctx, app.UserEmail, notification.TemplateReminder, notification.Data{
			Name:        name,
			ContinueURL: s.portalURL + "/application",
			Completion:  draft.Completion(d),
		})
		if err != nil {
			s.logger.WarnContext(ctx, "reminder not delivered", "application_id", app.ID, "error", err)
			continue
		}
		sent++
	}
	s.logger.InfoContext(ctx, "reminders sent", "sent", sent, "candidates", len(apps))
	return sent, nil
}

// RetryEmails re-delivers queued emails.
func (s *AdminService) RetryEmails(ctx context.Context) (int, error) {
	return s.notifier.RetryAll(ctx)
}
