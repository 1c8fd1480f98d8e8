package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ApplicationStatus string

const (
	StatusDraft      ApplicationStatus = "draft"
	StatusSubmitted  ApplicationStatus = "submitted"
	StatusProcessing ApplicationStatus = "processing"
	StatusApproved   ApplicationStatus = "approved"
	StatusRejected   ApplicationStatus = "rejected"
)

var ApplicationStatuses = []ApplicationStatus{
	StatusDraft, StatusSubmitted, StatusProcessing, StatusApproved, StatusRejected,
}

func (s ApplicationStatus) Valid() bool {
	for _, v := range ApplicationStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

var PaymentStatuses = []PaymentStatus{PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded}

func (s PaymentStatus) Valid() bool {
	for _, v := range PaymentStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type ApplicationType string

const (
	ApplicationSingle ApplicationType = "single"
	ApplicationGroup  ApplicationType = "group"
)

// ApplicationTypeFor returns group for more than one applicant.
func ApplicationTypeFor(applicants int) ApplicationType {
	if applicants > 1 {
		return ApplicationGroup
	}
	return ApplicationSingle
}

type ApplicantStatus string

const (
	ApplicantIncomplete        ApplicantStatus = "incomplete"
	ApplicantComplete          ApplicantStatus = "complete"
	ApplicantSubmitted         ApplicantStatus = "submitted"
	ApplicantDocumentsVerified ApplicantStatus = "documents_verified"
)

type Application struct {
	ID              uuid.UUID         `json:"id"`
	ReferenceNumber string            `json:"reference_number"`
	Status          ApplicationStatus `json:"status"`
	PaymentStatus   PaymentStatus     `json:"payment_status"`
	PaymentAmount   decimal.Decimal   `json:"payment_amount"`
	UserEmail       string            `json:"user_email"`
	ApplicationType ApplicationType   `json:"application_type"`
	ApplicationData JSONMap           `json:"application_data,omitempty"`
	OwnerID         string            `json:"owner_id,omitempty"`
	SubmittedAt     *time.Time        `json:"submitted_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type Applicant struct {
	ID                 uuid.UUID       `json:"id"`
	ApplicationID      uuid.UUID       `json:"application_id"`
	ApplicantNumber    int             `json:"applicant_number"`
	FirstName          string          `json:"first_name"`
	MiddleNames        string          `json:"middle_names,omitempty"`
	LastName           string          `json:"last_name"`
	DateOfBirth        *Date           `json:"date_of_birth,omitempty"`
	Nationality        string          `json:"nationality"`
	PassportNumber     string          `json:"passport_number"`
	PassportExpiry     *Date           `json:"passport_expiry,omitempty"`
	Email              string          `json:"email"`
	Phone              string          `json:"phone"`
	Address            string          `json:"address"`
	JobTitle           string          `json:"job_title"`
	JobTitleTranslated *string         `json:"job_title_translated"`
	Status             ApplicantStatus `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ApplicationDetail is an application with its applicants and documents.
type ApplicationDetail struct {
	Application
	Applicants []Applicant `json:"applicants"`
	Documents  []Document  `json:"documents"`
}

const DateLayout = "2006-01-02"

// Date is a calendar date stored as a Postgres DATE and serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// DatePtr parses s, returning nil for an empty or malformed value.
func DatePtr(s string) *Date {
	if s == "" {
		return nil
	}
	d, err := ParseDate(s)
	if err != nil {
		return nil
	}
	return &d
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// JSONMap is a free-form JSONB column.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", src)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(data, m)
}

// OwnedBy reports whether the auth subject may act on the application.
// Applications saved by sessions without a subject are open to any caller.
func (a *Application) OwnedBy(subject string) bool {
	return a.OwnerID == "" || a.OwnerID == subject
}
