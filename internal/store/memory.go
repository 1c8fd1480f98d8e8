package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"uk-eta-backend/internal/models"
)

// MemoryStore keeps everything in process memory. It backs local development
// and tests. Transactions are serialized and roll back by restoring a snapshot.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	now  func() time.Time

	applications map[uuid.UUID]models.Application
	references   map[string]uuid.UUID
	applicants   map[uuid.UUID]models.Applicant
	documents    map[uuid.UUID]models.Document
	auditLogs    []models.AuditLog
	payments     map[string]models.PaymentTransaction
	admins       map[string]models.AdminUser
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{now: time.Now}
	s.Reset()
	return s
}

// Reset drops all data.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applications = make(map[uuid.UUID]models.Application)
	s.references = make(map[string]uuid.UUID)
	s.applicants = make(map[uuid.UUID]models.Applicant)
	s.documents = make(map[uuid.UUID]models.Document)
	s.auditLogs = nil
	s.payments = make(map[string]models.PaymentTransaction)
	s.admins = make(map[string]models.AdminUser)
}

// SetClock overrides the timestamp source.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

type memoryTxKey struct{}

type memorySnapshot struct {
	applications map[uuid.UUID]models.Application
	references   map[string]uuid.UUID
	applicants   map[uuid.UUID]models.Applicant
	documents    map[uuid.UUID]models.Document
	auditLogs    []models.AuditLog
	payments     map[string]models.PaymentTransaction
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memoryTxKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snap := memorySnapshot{
		applications: maps.Clone(s.applications),
		references:   maps.Clone(s.references),
		applicants:   maps.Clone(s.applicants),
		documents:    maps.Clone(s.documents),
		auditLogs:    slices.Clone(s.auditLogs),
		payments:     maps.Clone(s.payments),
	}
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, memoryTxKey{}, true)); err != nil {
		s.mu.Lock()
		s.applications = snap.applications
		s.references = snap.references
		s.applicants = snap.applicants
		s.documents = snap.documents
		s.auditLogs = snap.auditLogs
		s.payments = snap.payments
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemoryStore) CreateApplication(ctx context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	if _, ok := s.applications[app.ID]; ok {
		return fmt.Errorf("application %s: %w", app.ID, ErrConflict)
	}
	if app.ReferenceNumber != "" {
		if _, ok := s.references[app.ReferenceNumber]; ok {
			return fmt.Errorf("reference number %s: %w", app.ReferenceNumber, ErrConflict)
		}
	}

	now := s.now()
	app.CreatedAt = now
	app.UpdatedAt = now
	s.applications[app.ID] = *app
	if app.ReferenceNumber != "" {
		s.references[app.ReferenceNumber] = app.ID
	}
	return nil
}

func (s *MemoryStore) UpdateApplication(ctx context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.applications[app.ID]
	if !ok {
		return fmt.Errorf("application %s: %w", app.ID, ErrNotFound)
	}
	if app.ReferenceNumber != existing.ReferenceNumber && app.ReferenceNumber != "" {
		if _, taken := s.references[app.ReferenceNumber]; taken {
			return fmt.Errorf("reference number %s: %w", app.ReferenceNumber, ErrConflict)
		}
		delete(s.references, existing.ReferenceNumber)
		s.references[app.ReferenceNumber] = app.ID
	}

	app.CreatedAt = existing.CreatedAt
	app.UpdatedAt = s.now()
	s.applications[app.ID] = *app
	return nil
}

func (s *MemoryStore) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.applications[id]
	if !ok {
		return nil, fmt.Errorf("application %s: %w", id, ErrNotFound)
	}
	return &app, nil
}

func (s *MemoryStore) GetApplicationByReference(ctx context.Context, reference string) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.references[reference]
	if !ok {
		return nil, fmt.Errorf("reference %s: %w", reference, ErrNotFound)
	}
	app := s.applications[id]
	return &app, nil
}

func (s *MemoryStore) ListApplications(ctx context.Context, filter ApplicationFilter) ([]models.Application, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var matched []models.Application
	for _, app := range s.applications {
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		if filter.PaymentStatus != "" && app.PaymentStatus != filter.PaymentStatus {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(app.ReferenceNumber), search) &&
			!strings.Contains(strings.ToLower(app.UserEmail), search) {
			continue
		}
		matched = append(matched, app)
	}

	slices.SortFunc(matched, func(a, b models.Application) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	total := len(matched)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return matched[start:end], total, nil
}

func (s *MemoryStore) ListDraftsUpdatedBefore(ctx context.Context, before time.Time) ([]models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Application
	for _, app := range s.applications {
		if app.Status == models.StatusDraft && app.UpdatedAt.Before(before) && app.UserEmail != "" {
			out = append(out, app)
		}
	}
	slices.SortFunc(out, func(a, b models.Application) int { return a.UpdatedAt.Compare(b.UpdatedAt) })
	return out, nil
}

func (s *MemoryStore) CountApplicationsByStatus(ctx context.Context, from, to *time.Time) (map[models.ApplicationStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.ApplicationStatus]int)
	for _, app := range s.applications {
		if from != nil && app.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && app.CreatedAt.After(*to) {
			continue
		}
		counts[app.Status]++
	}
	return counts, nil
}

func (s *MemoryStore) CountApplicationsByPaymentStatus(ctx context.Context) (map[models.PaymentStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.PaymentStatus]int)
	for _, app := range s.applications {
		counts[app.PaymentStatus]++
	}
	return counts, nil
}

func (s *MemoryStore) SumPaidAmount(ctx context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, app := range s.applications {
		if app.PaymentStatus == models.PaymentPaid {
			total = total.Add(app.PaymentAmount)
		}
	}
	return total, nil
}

func (s *MemoryStore) UpsertApplicant(ctx context.Context, applicant *models.Applicant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.applications[applicant.ApplicationID]; !ok {
		return fmt.Errorf("application %s: %w", applicant.ApplicationID, ErrNotFound)
	}

	now := s.now()
	for id, existing := range s.applicants {
		if existing.ApplicationID == applicant.ApplicationID && existing.ApplicantNumber == applicant.ApplicantNumber {
			applicant.ID = id
			applicant.CreatedAt = existing.CreatedAt
			applicant.UpdatedAt = now
			s.applicants[id] = *applicant
			return nil
		}
	}

	if applicant.ID == uuid.Nil {
		applicant.ID = uuid.New()
	}
	applicant.CreatedAt = now
	applicant.UpdatedAt = now
	s.applicants[applicant.ID] = *applicant
	return nil
}

func (s *MemoryStore) GetApplicant(ctx context.Context, id uuid.UUID) (*models.Applicant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.applicants[id]
	if !ok {
		return nil, fmt.Errorf("applicant %s: %w", id, ErrNotFound)
	}
	return &a, nil
}

func (s *MemoryStore) ListApplicants(ctx context.Context, applicationID uuid.UUID) ([]models.Applicant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Applicant
	for _, a := range s.applicants {
		if a.ApplicationID == applicationID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b models.Applicant) int { return a.ApplicantNumber - b.ApplicantNumber })
	return out, nil
}

func (s *MemoryStore) UpdateApplicant(ctx context.Context, applicant *models.Applicant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.applicants[applicant.ID]
	if !ok {
		return fmt.Errorf("applicant %s: %w", applicant.ID, ErrNotFound)
	}
	for id, other := range s.applicants {
		if id != applicant.ID && other.ApplicationID == existing.ApplicationID && other.ApplicantNumber == applicant.ApplicantNumber {
			return fmt.Errorf("applicant number %d is taken: %w", applicant.ApplicantNumber, ErrConflict)
		}
	}
	applicant.ApplicationID = existing.ApplicationID
	applicant.CreatedAt = existing.CreatedAt
	applicant.UpdatedAt = s.now()
	s.applicants[applicant.ID] = *applicant
	return nil
}

func (s *MemoryStore) DeleteApplicant(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.applicants[id]; !ok {
		return fmt.Errorf("applicant %s: %w", id, ErrNotFound)
	}
	for docID, d := range s.documents {
		if d.ApplicantID == id {
			delete(s.documents, docID)
		}
	}
	delete(s.applicants, id)
	return nil
}

func (s *MemoryStore) UpdateApplicantStatus(ctx context.Context, id uuid.UUID, status models.ApplicantStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.applicants[id]
	if !ok {
		return fmt.Errorf("applicant %s: %w", id, ErrNotFound)
	}
	a.Status = status
	a.UpdatedAt = s.now()
	s.applicants[id] = a
	return nil
}

func (s *MemoryStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.applicants[doc.ApplicantID]; !ok {
		return fmt.Errorf("applicant %s: %w", doc.ApplicantID, ErrNotFound)
	}
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := s.now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	s.documents[doc.ID] = *doc
	return nil
}

func (s *MemoryStore) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return &d, nil
}

func (s *MemoryStore) listDocuments(match func(models.Document) bool) []models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Document
	for _, d := range s.documents {
		if match(d) {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b models.Document) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

func (s *MemoryStore) ListDocumentsByApplication(ctx context.Context, applicationID uuid.UUID) ([]models.Document, error) {
	return s.listDocuments(func(d models.Document) bool { return d.ApplicationID == applicationID }), nil
}

func (s *MemoryStore) ListDocumentsByApplicant(ctx context.Context, applicantID uuid.UUID) ([]models.Document, error) {
	return s.listDocuments(func(d models.Document) bool { return d.ApplicantID == applicantID }), nil
}

func (s *MemoryStore) UpdateDocumentVerification(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.documents[doc.ID]
	if !ok {
		return fmt.Errorf("document %s: %w", doc.ID, ErrNotFound)
	}
	existing.VerificationStatus = doc.VerificationStatus
	existing.VerifiedBy = doc.VerifiedBy
	existing.VerifiedAt = doc.VerifiedAt
	existing.Metadata = doc.Metadata
	existing.UpdatedAt = s.now()
	s.documents[doc.ID] = existing
	*doc = existing
	return nil
}

func (s *MemoryStore) CountDocumentsByVerification(ctx context.Context, status models.VerificationStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, d := range s.documents {
		if d.VerificationStatus == status {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = s.now()
	s.auditLogs = append(s.auditLogs, *entry)
	return nil
}

func (s *MemoryStore) ListAuditLogs(ctx context.Context, applicationID uuid.UUID) ([]models.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.AuditLog
	for _, e := range s.auditLogs {
		if e.ApplicationID != nil && *e.ApplicationID == applicationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreatePaymentTransaction(ctx context.Context, txn *models.PaymentTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[txn.OrderID]; ok {
		return fmt.Errorf("payment order %s: %w", txn.OrderID, ErrConflict)
	}
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	now := s.now()
	txn.CreatedAt = now
	txn.UpdatedAt = now
	s.payments[txn.OrderID] = *txn
	return nil
}

func (s *MemoryStore) GetPaymentTransactionByOrderID(ctx context.Context, orderID string) (*models.PaymentTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.payments[orderID]
	if !ok {
		return nil, fmt.Errorf("payment order %s: %w", orderID, ErrNotFound)
	}
	return &txn, nil
}

func (s *MemoryStore) UpdatePaymentTransaction(ctx context.Context, txn *models.PaymentTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.payments[txn.OrderID]
	if !ok {
		return fmt.Errorf("payment order %s: %w", txn.OrderID, ErrNotFound)
	}
	txn.ID = existing.ID
	txn.CreatedAt = existing.CreatedAt
	txn.UpdatedAt = s.now()
	s.payments[txn.OrderID] = *txn
	return nil
}

func (s *MemoryStore) ListPaymentTransactions(ctx context.Context, applicationID uuid.UUID) ([]models.PaymentTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.PaymentTransaction
	for _, txn := range s.payments {
		if txn.ApplicationID == applicationID {
			out = append(out, txn)
		}
	}
	slices.SortFunc(out, func(a, b models.PaymentTransaction) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

// AddAdminUser registers an operator. Admin users are otherwise managed outside the portal.
func (s *MemoryStore) AddAdminUser(user models.AdminUser) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	s.admins[strings.ToLower(user.Email)] = user
}

func (s *MemoryStore) GetAdminUserByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.admins[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("admin %s: %w", email, ErrNotFound)
	}
	return &u, nil
}

var _ Store = (*MemoryStore)(nil)
