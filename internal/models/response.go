package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

type PublicConfigResponse struct {
	PaymentPublicKey  string `json:"payment_public_key"`
	CaptchaSiteKey    string `json:"captcha_site_key,omitempty"`
	CaptchaEnabled    bool   `json:"captcha_enabled"`
	PassportNumberMin int    `json:"passport_number_min"`
	PassportNumberMax int    `json:"passport_number_max"`
	FeePerApplicant   string `json:"fee_per_applicant"`
	Currency          string `json:"currency"`
}

type DraftResponse struct {
	Draft      Draft `json:"draft"`
	Completion int   `json:"completion"`
}

type PersistDraftResponse struct {
	ApplicationID   string   `json:"application_id"`
	ReferenceNumber string   `json:"reference_number"`
	ApplicantIDs    []string `json:"applicant_ids"`
}

type SubmitApplicationResponse struct {
	Success         bool              `json:"success"`
	ApplicationID   string            `json:"application_id"`
	ReferenceNumber string            `json:"reference_number"`
	Status          ApplicationStatus `json:"status"`
	SubmittedAt     *time.Time        `json:"submitted_at,omitempty"`
}

type ResumeLinkResponse struct {
	Success     bool      `json:"success"`
	ResumeToken string    `json:"resume_token,omitempty"`
	ResumeURL   string    `json:"resume_url,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type ResumeResponse struct {
	Success     bool            `json:"success"`
	Error       string          `json:"error,omitempty"`
	DraftID     string          `json:"draft_id,omitempty"`
	Application *ResumeSnapshot `json:"application,omitempty"`
}

type QualitySummary struct {
	Score    int      `json:"score"`
	Passes   []string `json:"passes"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}

type DocumentUploadResponse struct {
	Document Document        `json:"document"`
	Quality  *QualitySummary `json:"quality,omitempty"`
}

type PreviewResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

type TrackResponse struct {
	ReferenceNumber string            `json:"reference_number"`
	Status          ApplicationStatus `json:"status"`
	PaymentStatus   PaymentStatus     `json:"payment_status"`
	ApplicationType ApplicationType   `json:"application_type"`
	Applicants      int               `json:"applicants"`
	SubmittedAt     *time.Time        `json:"submitted_at,omitempty"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type PaymentIntentResponse struct {
	Success         bool            `json:"success"`
	OrderID         string          `json:"order_id"`
	Token           string          `json:"token"`
	RedirectURL     string          `json:"redirect_url"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	ConfirmationURL string          `json:"confirmation_url"`
}

type DashboardStats struct {
	From     *time.Time     `json:"from,omitempty"`
	To       *time.Time     `json:"to,omitempty"`
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

type DashboardMetrics struct {
	ByStatus         map[string]int  `json:"by_status"`
	ByPaymentStatus  map[string]int  `json:"by_payment_status"`
	PendingDocuments int             `json:"pending_documents"`
	Revenue          decimal.Decimal `json:"revenue"`
}

type ApplicationListResponse struct {
	Applications []Application `json:"applications"`
	Total        int           `json:"total"`
	Page         int           `json:"page"`
	PerPage      int           `json:"per_page"`
}

type StatusUpdateResponse struct {
	Success     bool        `json:"success"`
	Application Application `json:"application"`
}

type VerifyDocumentResponse struct {
	Success         bool            `json:"success"`
	Document        Document        `json:"document"`
	ApplicantStatus ApplicantStatus `json:"applicant_status"`
}

type AutoVerifyResponse struct {
	Success  bool            `json:"success"`
	Document Document        `json:"document"`
	Quality  *QualitySummary `json:"quality,omitempty"`
}

type RemindersResponse struct {
	Success bool `json:"success"`
	Sent    int  `json:"sent"`
}

type TranslateResponse struct {
	Original               string  `json:"original"`
	Normalized             string  `json:"normalized"`
	Translated             *string `json:"translated"`
	NeedsManualTranslation bool    `json:"needs_manual_translation"`
}
