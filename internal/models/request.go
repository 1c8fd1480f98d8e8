package models

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ValidationErrorResponse lists the first failing rule per field.
type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields"`
}

// JobTitleField holds what the applicant typed and, once known, its English translation.
type JobTitleField struct {
	Original   string  `json:"original" binding:"omitempty,job_title"`
	Translated *string `json:"translated"`
}

// ApplicantInput is the per-applicant form state. Every field is optional while
// the application is a draft.
type ApplicantInput struct {
	FirstName      string        `json:"first_name" binding:"omitempty,passport_name"`
	MiddleNames    string        `json:"middle_names,omitempty" binding:"omitempty,passport_name"`
	LastName       string        `json:"last_name" binding:"omitempty,passport_name"`
	DateOfBirth    string        `json:"date_of_birth" binding:"omitempty,dob"`
	Nationality    string        `json:"nationality" binding:"omitempty,nationality"`
	PassportNumber string        `json:"passport_number" binding:"omitempty,passport_number"`
	PassportExpiry string        `json:"passport_expiry" binding:"omitempty,passport_expiry"`
	Email          string        `json:"email" binding:"omitempty,eta_email"`
	Phone          string        `json:"phone" binding:"omitempty,phone"`
	Address        string        `json:"address"`
	JobTitle       JobTitleField `json:"job_title"`
}

type CreateDraftRequest struct {
	Email string `json:"email" binding:"omitempty,eta_email"`
}

type StepRequest struct {
	Step int `json:"step" binding:"required,min=1,max=3"`
}

type SaveForLaterRequest struct {
	Email        string `json:"email" binding:"required,eta_email"`
	CaptchaToken string `json:"captcha_token"`
}

type SubmitDraftRequest struct {
	CaptchaToken string `json:"captcha_token"`
}

type SubmitApplicationRequest struct {
	ApplicationID string `json:"application_id" binding:"required,uuid"`
}

type CreatePaymentIntentRequest struct {
	ApplicationID string `json:"application_id" binding:"required,uuid"`
}

type VerifyDocumentRequest struct {
	DocumentID string `json:"document_id" binding:"required,uuid"`
}

type TranslateJobTitleRequest struct {
	Title          string `json:"title" binding:"required,max=200"`
	SourceLanguage string `json:"source_language,omitempty"`
}

// AdminDashboardRequest is the action-dispatch body of the admin-dashboard function.
// Fields are read according to Action.
type AdminDashboardRequest struct {
	Action             string `json:"action" binding:"required"`
	DateFrom           string `json:"date_from,omitempty"`
	DateTo             string `json:"date_to,omitempty"`
	Page               int    `json:"page,omitempty"`
	PerPage            int    `json:"per_page,omitempty"`
	Status             string `json:"status,omitempty"`
	PaymentStatus      string `json:"payment_status,omitempty"`
	Search             string `json:"search,omitempty"`
	ApplicationID      string `json:"application_id,omitempty"`
	DocumentID         string `json:"document_id,omitempty"`
	VerificationStatus string `json:"verification_status,omitempty"`
	Notes              string `json:"notes,omitempty"`
	OlderThanDays      int    `json:"older_than_days,omitempty"`
}

// PaymentNotification is the processor's HTTP notification body.
type PaymentNotification struct {
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status" binding:"required"`
	StatusCode        string `json:"status_code" binding:"required"`
	SignatureKey      string `json:"signature_key" binding:"required"`
	OrderID           string `json:"order_id" binding:"required"`
	GrossAmount       string `json:"gross_amount" binding:"required"`
	PaymentType       string `json:"payment_type"`
	FraudStatus       string `json:"fraud_status"`
}
