// Package store defines the persistence contract for applications, applicants,
// documents, audit rows, payments and admin users.
//
// Implementations return the sentinel errors below (optionally wrapped) so that
// services can translate them into HTTP responses.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"uk-eta-backend/internal/models"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
)

type ApplicationFilter struct {
	Status        models.ApplicationStatus
	PaymentStatus models.PaymentStatus
	// Search is a case-insensitive substring of the reference number or email.
	Search string
	Offset int
	Limit  int
}

type ApplicationStore interface {
	// CreateApplication assigns ID and timestamps when unset. A duplicate
	// reference number yields ErrConflict.
	CreateApplication(ctx context.Context, app *models.Application) error
	UpdateApplication(ctx context.Context, app *models.Application) error
	GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)
	GetApplicationByReference(ctx context.Context, reference string) (*models.Application, error)
	// ListApplications returns one page, newest first, and the total match count.
	ListApplications(ctx context.Context, filter ApplicationFilter) ([]models.Application, int, error)
	ListDraftsUpdatedBefore(ctx context.Context, before time.Time) ([]models.Application, error)
	CountApplicationsByStatus(ctx context.Context, from, to *time.Time) (map[models.ApplicationStatus]int, error)
	CountApplicationsByPaymentStatus(ctx context.Context) (map[models.PaymentStatus]int, error)
	SumPaidAmount(ctx context.Context) (decimal.Decimal, error)
}

type ApplicantStore interface {
	// UpsertApplicant is keyed by (application_id, applicant_number).
	UpsertApplicant(ctx context.Context, applicant *models.Applicant) error
	GetApplicant(ctx context.Context, id uuid.UUID) (*models.Applicant, error)
	ListApplicants(ctx context.Context, applicationID uuid.UUID) ([]models.Applicant, error)
	// UpdateApplicant rewrites the row with applicant.ID, number included.
	UpdateApplicant(ctx context.Context, applicant *models.Applicant) error
	// DeleteApplicant removes the applicant and its document rows.
	DeleteApplicant(ctx context.Context, id uuid.UUID) error
	UpdateApplicantStatus(ctx context.Context, id uuid.UUID, status models.ApplicantStatus) error
}

type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListDocumentsByApplication(ctx context.Context, applicationID uuid.UUID) ([]models.Document, error)
	ListDocumentsByApplicant(ctx context.Context, applicantID uuid.UUID) ([]models.Document, error)
	// UpdateDocumentVerification writes status, verifier and metadata.
	UpdateDocumentVerification(ctx context.Context, doc *models.Document) error
	CountDocumentsByVerification(ctx context.Context, status models.VerificationStatus) (int, error)
}

type AuditStore interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
	ListAuditLogs(ctx context.Context, applicationID uuid.UUID) ([]models.AuditLog, error)
}

type PaymentStore interface {
	CreatePaymentTransaction(ctx context.Context, txn *models.PaymentTransaction) error
	GetPaymentTransactionByOrderID(ctx context.Context, orderID string) (*models.PaymentTransaction, error)
	UpdatePaymentTransaction(ctx context.Context, txn *models.PaymentTransaction) error
	// ListPaymentTransactions returns every order of the application, oldest first.
	ListPaymentTransactions(ctx context.Context, applicationID uuid.UUID) ([]models.PaymentTransaction, error)
}

type AdminStore interface {
	GetAdminUserByEmail(ctx context.Context, email string) (*models.AdminUser, error)
}

// Store is the full persistence surface. WithinTx runs fn so that every store
// call made with the ctx it receives commits or rolls back together. Nested
// calls join the outer transaction.
type Store interface {
	ApplicationStore
	ApplicantStore
	DocumentStore
	AuditStore
	PaymentStore
	AdminStore

	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
