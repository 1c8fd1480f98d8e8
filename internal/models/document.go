package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DocumentType string

const (
	DocumentPassport   DocumentType = "passport"
	DocumentPhoto      DocumentType = "photo"
	DocumentSupporting DocumentType = "supporting"
)

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentPassport, DocumentPhoto, DocumentSupporting:
		return true
	}
	return false
}

// Bucket returns the storage bucket documents of this type are kept in.
func (t DocumentType) Bucket() string {
	switch t {
	case DocumentPhoto:
		return "photos"
	case DocumentPassport:
		return "passports"
	default:
		return "documents"
	}
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

type Document struct {
	ID                 uuid.UUID          `json:"id"`
	ApplicationID      uuid.UUID          `json:"application_id"`
	ApplicantID        uuid.UUID          `json:"applicant_id"`
	DocumentType       DocumentType       `json:"document_type"`
	FileName           string             `json:"file_name"`
	Bucket             string             `json:"bucket"`
	StoragePath        string             `json:"storage_path"`
	MimeType           string             `json:"mime_type"`
	FileSize           int64              `json:"file_size"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	Metadata           DocumentMetadata   `json:"metadata"`
	VerifiedBy         *string            `json:"verified_by,omitempty"`
	VerifiedAt         *time.Time         `json:"verified_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// DocumentMetadata never carries image bytes; previews come from signed storage URLs.
type DocumentMetadata struct {
	OriginalFilename string   `json:"original_filename,omitempty"`
	QualityScore     *int     `json:"quality_score,omitempty"`
	QualityPasses    []string `json:"quality_passes,omitempty"`
	QualityWarnings  []string `json:"quality_warnings,omitempty"`
	QualityErrors    []string `json:"quality_errors,omitempty"`
	Width            int      `json:"width,omitempty"`
	Height           int      `json:"height,omitempty"`
	AutoVerified     bool     `json:"auto_verified,omitempty"`
	Notes            string   `json:"notes,omitempty"`
}

func (m DocumentMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *DocumentMetadata) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = DocumentMetadata{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into DocumentMetadata", src)
	}
}

type AuditLog struct {
	ID            uuid.UUID  `json:"id"`
	ApplicationID *uuid.UUID `json:"application_id,omitempty"`
	Actor         string     `json:"actor"`
	Action        string     `json:"action"`
	Details       JSONMap    `json:"details,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

const (
	AuditApplicationCreated  = "application_created"
	AuditApplicationSaved    = "application_saved"
	AuditApplicationSubmit   = "application_submitted"
	AuditApplicantRemoved    = "applicant_removed"
	AuditStatusUpdated       = "status_updated"
	AuditDocumentUploaded    = "document_uploaded"
	AuditDocumentVerified    = "document_verified"
	AuditDocumentAutoScored  = "document_auto_scored"
	AuditPaymentCreated      = "payment_created"
	AuditPaymentNotification = "payment_notification"
)

type PaymentTransaction struct {
	ID                    uuid.UUID       `json:"id"`
	ApplicationID         uuid.UUID       `json:"application_id"`
	OrderID               string          `json:"order_id"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	Status                PaymentStatus   `json:"status"`
	Provider              string          `json:"provider"`
	ProviderTransactionID string          `json:"provider_transaction_id,omitempty"`
	ProviderStatus        string          `json:"provider_status,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

type AdminRole string

const (
	RoleAdmin      AdminRole = "admin"
	RoleSuperAdmin AdminRole = "super_admin"
)

type AdminUser struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Role        AdminRole `json:"role"`
	Preferences JSONMap   `json:"preferences,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
