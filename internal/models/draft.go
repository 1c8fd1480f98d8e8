package models

import (
	"time"

	"github.com/google/uuid"
)

type DraftState string

const (
	DraftNotStarted DraftState = "not_started"
	DraftInProgress DraftState = "in_progress"
	DraftSubmitted  DraftState = "submitted"
)

const (
	StepPersonal  = 1
	StepDocuments = 2
	StepReview    = 3
)

// Draft is the in-progress form state for one browser session.
type Draft struct {
	ID              uuid.UUID        `json:"id"`
	State           DraftState       `json:"state"`
	Step            int              `json:"step"`
	Email           string           `json:"email,omitempty"`
	Applicants      []ApplicantInput `json:"applicants"`
	ApplicationID   *uuid.UUID       `json:"application_id,omitempty"`
	ApplicantIDs    []uuid.UUID      `json:"applicant_ids,omitempty"`
	ReferenceNumber string           `json:"reference_number,omitempty"`
	OwnerID         string           `json:"-"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// OwnedBy reports whether the auth subject may use the draft.
func (d *Draft) OwnedBy(subject string) bool {
	return d.OwnerID == "" || d.OwnerID == subject
}

// ResumeSnapshot is what a resume token points at.
type ResumeSnapshot struct {
	Token         string           `json:"token"`
	Applicants    []ApplicantInput `json:"applicants"`
	Email         string           `json:"email"`
	Step          int              `json:"step"`
	ApplicationID *uuid.UUID       `json:"application_id,omitempty"`
	ApplicantIDs  []uuid.UUID      `json:"applicant_ids,omitempty"`
	SavedAt       time.Time        `json:"saved_at"`
	ExpiresAt     time.Time        `json:"expires_at"`
}
