// Package draft holds in-progress application forms between requests.
//
// A draft moves NotStarted -> InProgress(step 1..3) -> Submitted. The step is a
// navigation marker only; it is not tied to whether the fields on earlier steps
// are complete. Clear returns any draft to NotStarted.
package draft

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/store"
)

const (
	DefaultTTL    = 24 * time.Hour
	MaxApplicants = 10
)

type Manager struct {
	mu     sync.Mutex
	drafts map[uuid.UUID]*models.Draft
	now    func() time.Time
	ttl    time.Duration
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithTTL sets how long an untouched draft survives PurgeExpired.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		drafts: make(map[uuid.UUID]*models.Draft),
		now:    time.Now,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m *Manager) Create(email string) *models.Draft {
	return m.CreateFor("", email)
}

// CreateFor starts a draft that only subject may use. An empty subject leaves
// the draft open to any caller.
func (m *Manager) CreateFor(subject, email string) *models.Draft {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	d := &models.Draft{
		ID:         uuid.New(),
		State:      models.DraftNotStarted,
		Email:      email,
		Applicants: []models.ApplicantInput{{}},
		OwnerID:    subject,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.drafts[d.ID] = d
	return clone(d)
}

func (m *Manager) Get(id uuid.UUID) (*models.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return clone(d), nil
}

// WriteApplicant replaces the form fields of applicant n (1-based). The first
// write to a NotStarted draft moves it to step 1.
func (m *Manager) WriteApplicant(id uuid.UUID, n int, input models.ApplicantInput) (*models.Draft, error) {
	return m.update(id, func(d *models.Draft) error {
		if d.State == models.DraftSubmitted {
			return fmt.Errorf("draft already submitted: %w", store.ErrInvalidState)
		}
		if n < 1 || n > len(d.Applicants) {
			return fmt.Errorf("applicant %d: %w", n, store.ErrNotFound)
		}
		d.Applicants[n-1] = input
		if d.State == models.DraftNotStarted {
			d.State = models.DraftInProgress
			d.Step = models.StepPersonal
		}
		return nil
	})
}

// AddApplicant appends an empty applicant and returns its number.
func (m *Manager) AddApplicant(id uuid.UUID) (*models.Draft, int, error) {
	var number int
	d, err := m.update(id, func(d *models.Draft) error {
		if d.State == models.DraftSubmitted {
			return fmt.Errorf("draft already submitted: %w", store.ErrInvalidState)
		}
		if len(d.Applicants) >= MaxApplicants {
			return fmt.Errorf("at most %d applicants per application: %w", MaxApplicants, store.ErrInvalidState)
		}
		d.Applicants = append(d.Applicants, models.ApplicantInput{})
		number = len(d.Applicants)
		return nil
	})
	return d, number, err
}

// RemoveApplicant drops applicant n; later applicants move down so numbers stay
// dense from 1 and keep their persisted ids. The last remaining applicant
// cannot be removed.
func (m *Manager) RemoveApplicant(id uuid.UUID, n int) (*models.Draft, error) {
	return m.update(id, func(d *models.Draft) error {
		if d.State == models.DraftSubmitted {
			return fmt.Errorf("draft already submitted: %w", store.ErrInvalidState)
		}
		if n < 1 || n > len(d.Applicants) {
			return fmt.Errorf("applicant %d: %w", n, store.ErrNotFound)
		}
		if len(d.Applicants) == 1 {
			return fmt.Errorf("an application needs at least one applicant: %w", store.ErrInvalidState)
		}
		d.Applicants = slices.Delete(d.Applicants, n-1, n)
		if n <= len(d.ApplicantIDs) {
			d.ApplicantIDs = slices.Delete(d.ApplicantIDs, n-1, n)
		}
		return nil
	})
}

func (m *Manager) Advance(id uuid.UUID) (*models.Draft, error) {
	return m.update(id, func(d *models.Draft) error {
		if d.State != models.DraftInProgress {
			return fmt.Errorf("draft is %s: %w", d.State, store.ErrInvalidState)
		}
		if d.Step >= models.StepReview {
			return fmt.Errorf("already on the last step: %w", store.ErrInvalidState)
		}
		d.Step++
		return nil
	})
}

// GoTo moves back to an earlier step, or stays on the current one.
func (m *Manager) GoTo(id uuid.UUID, step int) (*models.Draft, error) {
	return m.update(id, func(d *models.Draft) error {
		if d.State != models.DraftInProgress {
			return fmt.Errorf("draft is %s: %w", d.State, store.ErrInvalidState)
		}
		if step < models.StepPersonal || step > d.Step {
			return fmt.Errorf("cannot go to step %d from step %d: %w", step, d.Step, store.ErrInvalidState)
		}
		d.Step = step
		return nil
	})
}

func (m *Manager) SetEmail(id uuid.UUID, email string) (*models.Draft, error) {
	return m.update(id, func(d *models.Draft) error {
		d.Email = email
		return nil
	})
}

// AttachApplication records the persisted ids after a save.
func (m *Manager) AttachApplication(id, applicationID uuid.UUID, applicantIDs []uuid.UUID, reference string) (*models.Draft, error) {
	return m.update(id, func(d *models.Draft) error {
		d.ApplicationID = &applicationID
		d.ApplicantIDs = append([]uuid.UUID(nil), applicantIDs...)
		d.ReferenceNumber = reference
		return nil
	})
}

// Clear starts the draft over. The persisted application, if any, is detached.
func (m *Manager) Clear(id uuid.UUID) (*models.Draft, error) {
	return m.update(id, func(d *models.Draft) error {
		d.State = models.DraftNotStarted
		d.Step = 0
		d.Applicants = []models.ApplicantInput{{}}
		d.ApplicationID = nil
		d.ApplicantIDs = nil
		d.ReferenceNumber = ""
		return nil
	})
}

// MarkSubmitted finishes the draft from the review step and drops the form data.
func (m *Manager) MarkSubmitted(id uuid.UUID, reference string) (*models.Draft, error) {
	return m.update(id, func(d *models.Draft) error {
		if d.State != models.DraftInProgress || d.Step != models.StepReview {
			return fmt.Errorf("draft must be on the review step to submit: %w", store.ErrInvalidState)
		}
		d.State = models.DraftSubmitted
		d.Applicants = nil
		d.ReferenceNumber = reference
		return nil
	})
}

// Restore creates a new draft from a resume snapshot, owned by subject.
func (m *Manager) Restore(subject string, snap *models.ResumeSnapshot) *models.Draft {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	step := min(max(snap.Step, models.StepPersonal), models.StepReview)
	applicants := append([]models.ApplicantInput(nil), snap.Applicants...)
	if len(applicants) == 0 {
		applicants = []models.ApplicantInput{{}}
	}

	d := &models.Draft{
		ID:         uuid.New(),
		State:      models.DraftInProgress,
		Step:       step,
		Email:      snap.Email,
		Applicants: applicants,
		OwnerID:    subject,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if snap.ApplicationID != nil {
		appID := *snap.ApplicationID
		d.ApplicationID = &appID
		d.ApplicantIDs = append([]uuid.UUID(nil), snap.ApplicantIDs...)
	}
	m.drafts[d.ID] = d
	return clone(d)
}

func (m *Manager) Delete(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, id)
}

// PurgeExpired removes drafts untouched for longer than the TTL.
func (m *Manager) PurgeExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.ttl)
	purged := 0
	for id, d := range m.drafts {
		if d.UpdatedAt.Before(cutoff) {
			delete(m.drafts, id)
			purged++
		}
	}
	return purged
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.drafts)
}

func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts = make(map[uuid.UUID]*models.Draft)
}

func (m *Manager) lookup(id uuid.UUID) (*models.Draft, error) {
	d, ok := m.drafts[id]
	if !ok {
		return nil, fmt.Errorf("draft %s: %w", id, store.ErrNotFound)
	}
	if d.UpdatedAt.Before(m.now().Add(-m.ttl)) {
		delete(m.drafts, id)
		return nil, fmt.Errorf("draft %s: %w", id, store.ErrExpired)
	}
	return d, nil
}

func (m *Manager) update(id uuid.UUID, fn func(d *models.Draft) error) (*models.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	next := clone(d)
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = m.now()
	m.drafts[id] = next
	return clone(next), nil
}

func clone(d *models.Draft) *models.Draft {
	out := *d
	out.Applicants = append([]models.ApplicantInput(nil), d.Applicants...)
	for i := range out.Applicants {
		if t := out.Applicants[i].JobTitle.Translated; t != nil {
			v := *t
			out.Applicants[i].JobTitle.Translated = &v
		}
	}
	out.ApplicantIDs = append([]uuid.UUID(nil), d.ApplicantIDs...)
	if d.ApplicationID != nil {
		appID := *d.ApplicationID
		out.ApplicationID = &appID
	}
	return &out
}
