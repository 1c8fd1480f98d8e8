// Package validation holds the field validators used by the applicant form.
// Each validator normalizes its input and reports the first rule that fails.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DateLayout = "2006-01-02"

	maxPassportNameLength = 50
	maxJobTitleLength     = 100
	maxAgeYears           = 120
	maxPassportValidYears = 15
)

// Result is the outcome of validating a single field.
type Result struct {
	IsValid   bool   `json:"is_valid"`
	Sanitized string `json:"sanitized"`
	Error     string `json:"error,omitempty"`
}

// PassportNumberRange bounds the length of a normalized passport number.
type PassportNumberRange struct {
	Min int
	Max int
}

// DefaultPassportNumberRange is the canonical bound used across the portal.
var DefaultPassportNumberRange = PassportNumberRange{Min: 6, Max: 12}

var (
	passportNamePattern   = regexp.MustCompile(`^[A-Z]([A-Z\s'-]*)?$`)
	repeatedNameSeparator = regexp.MustCompile(`[\s'-]{2,}`)
	leadingNameSeparator  = regexp.MustCompile(`^[\s'-]`)
	emailPattern          = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	nationalityPattern    = regexp.MustCompile(`^[A-Z]{3}$`)
	phonePattern          = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	jobTitlePattern       = regexp.MustCompile(`^[\p{L}\p{M}0-9 .,&'/()+-]+$`)
)

// Validator validates applicant fields against a fixed clock and passport bound.
type Validator struct {
	now           func() time.Time
	passportRange PassportNumberRange
}

type Option func(*Validator)

// WithClock overrides the clock used for date checks.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithPassportNumberRange overrides the accepted passport number length.
func WithPassportNumberRange(r PassportNumberRange) Option {
	return func(v *Validator) {
		if r.Min > 0 && r.Max >= r.Min {
			v.passportRange = r
		}
	}
}

func New(opts ...Option) *Validator {
	v := &Validator{
		now:           time.Now,
		passportRange: DefaultPassportNumberRange,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// PassportNumberRange returns the bound this validator enforces.
func (v *Validator) PassportNumberRange() PassportNumberRange {
	return v.passportRange
}

func valid(sanitized string) Result {
	return Result{IsValid: true, Sanitized: sanitized}
}

func invalid(sanitized, msg string) Result {
	return Result{IsValid: false, Sanitized: sanitized, Error: msg}
}

// PassportName checks a name exactly as it must appear in the machine readable zone.
func (v *Validator) PassportName(input string) Result {
	name := strings.ToUpper(input)

	switch {
	case strings.TrimSpace(name) == "":
		return invalid(name, "Name is required")
	case utf8.RuneCountInString(name) > maxPassportNameLength:
		return invalid(name, fmt.Sprintf("Name must be %d characters or fewer", maxPassportNameLength))
	case leadingNameSeparator.MatchString(name):
		return invalid(name, "Name cannot start with a space, hyphen or apostrophe")
	case repeatedNameSeparator.MatchString(name):
		return invalid(name, "Name cannot contain consecutive spaces, hyphens or apostrophes")
	case !passportNamePattern.MatchString(name):
		return invalid(name, "Name may only contain letters A-Z, spaces, hyphens and apostrophes as shown in your passport")
	}
	return valid(name)
}

// NormalizePassportNumber uppercases the input and drops everything that is not A-Z or 0-9.
func NormalizePassportNumber(input string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(input) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (v *Validator) PassportNumber(input string) Result {
	number := NormalizePassportNumber(input)
	r := v.passportRange

	switch {
	case number == "":
		return invalid(number, "Passport number is required")
	case len(number) < r.Min || len(number) > r.Max:
		return invalid(number, fmt.Sprintf("Passport number must be between %d and %d letters or digits", r.Min, r.Max))
	case hasRepeatedRun(number, 3):
		return invalid(number, "Passport number cannot contain 3 or more repeated characters")
	case hasSequentialRun(number, 3):
		return invalid(number, "Passport number cannot contain sequences such as 123 or ABC")
	}
	return valid(number)
}

func hasRepeatedRun(s string, n int) bool {
	run := 1
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1] {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

// hasSequentialRun reports ascending or descending runs inside one character class.
func hasSequentialRun(s string, n int) bool {
	if n < 2 {
		return false
	}
	for i := 0; i+n <= len(s); i++ {
		window := s[i : i+n]
		if !sameClass(window) {
			continue
		}
		if isStep(window, 1) || isStep(window, -1) {
			return true
		}
	}
	return false
}

func sameClass(s string) bool {
	digits, letters := 0, 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
			digits++
		case s[i] >= 'A' && s[i] <= 'Z':
			letters++
		}
	}
	return digits == len(s) || letters == len(s)
}

func isStep(s string, step int) bool {
	for i := 1; i < len(s); i++ {
		if int(s[i])-int(s[i-1]) != step {
			return false
		}
	}
	return true
}

func (v *Validator) Email(input string) Result {
	email := strings.TrimSpace(input)

	switch {
	case email == "":
		return invalid(email, "Email address is required")
	case strings.IndexFunc(email, unicode.IsSpace) >= 0:
		return invalid(email, "Email address cannot contain spaces")
	case strings.Count(email, "@") == 0:
		return invalid(email, "Email address must contain an @")
	case strings.Count(email, "@") > 1:
		return invalid(email, "Email address can only contain one @")
	case strings.Contains(email, ".."):
		return invalid(email, "Email address cannot contain consecutive dots")
	case strings.HasPrefix(email, ".") || strings.HasPrefix(email, "@") ||
		strings.HasSuffix(email, ".") || strings.HasSuffix(email, "@"):
		return invalid(email, "Email address cannot start or end with a dot or @")
	case strings.Contains(email, ".@") || strings.Contains(email, "@."):
		return invalid(email, "Email address cannot have a dot next to the @")
	case !emailPattern.MatchString(email):
		return invalid(email, "Please enter a valid email address")
	}
	return valid(strings.ToLower(email))
}

func (v *Validator) today() time.Time {
	y, m, d := v.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (v *Validator) DateOfBirth(input string) Result {
	s := strings.TrimSpace(input)
	if s == "" {
		return invalid(s, "Date of birth is required")
	}

	dob, err := time.Parse(DateLayout, s)
	if err != nil {
		return invalid(s, "Date of birth must be a valid date in YYYY-MM-DD format")
	}

	today := v.today()
	if dob.After(today) {
		return invalid(s, "Date of birth cannot be in the future")
	}
	if today.Year()-dob.Year() > maxAgeYears {
		return invalid(s, fmt.Sprintf("Date of birth cannot be more than %d years ago", maxAgeYears))
	}
	return valid(dob.Format(DateLayout))
}

// PassportExpiry requires a passport that is still valid today.
func (v *Validator) PassportExpiry(input string) Result {
	s := strings.TrimSpace(input)
	if s == "" {
		return invalid(s, "Passport expiry date is required")
	}

	expiry, err := time.Parse(DateLayout, s)
	if err != nil {
		return invalid(s, "Passport expiry date must be a valid date in YYYY-MM-DD format")
	}

	today := v.today()
	if !expiry.After(today) {
		return invalid(s, "Passport has expired")
	}
	if expiry.Year()-today.Year() > maxPassportValidYears {
		return invalid(s, "Passport expiry date is too far in the future")
	}
	return valid(expiry.Format(DateLayout))
}

// Nationality expects an ISO 3166-1 alpha-3 code.
func (v *Validator) Nationality(input string) Result {
	code := strings.ToUpper(strings.TrimSpace(input))
	if code == "" {
		return invalid(code, "Nationality is required")
	}
	if !nationalityPattern.MatchString(code) {
		return invalid(code, "Nationality must be a three letter country code")
	}
	return valid(code)
}

func (v *Validator) Phone(input string) Result {
	phone := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(input))

	if phone == "" {
		return invalid(phone, "Phone number is required")
	}
	if !phonePattern.MatchString(phone) {
		return invalid(phone, "Phone number must contain 7 to 15 digits")
	}
	return valid(phone)
}

// NormalizeJobTitle collapses whitespace and title-cases the words.
func NormalizeJobTitle(input string) string {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return ""
	}
	caser := cases.Title(language.English)
	return caser.String(strings.ToLower(strings.Join(fields, " ")))
}

func (v *Validator) JobTitle(input string) Result {
	title := NormalizeJobTitle(input)

	switch {
	case title == "":
		return invalid(title, "Job title is required")
	case utf8.RuneCountInString(title) > maxJobTitleLength:
		return invalid(title, fmt.Sprintf("Job title must be %d characters or fewer", maxJobTitleLength))
	case !jobTitlePattern.MatchString(title):
		return invalid(title, "Job title contains characters that are not allowed")
	}
	return valid(title)
}

// IsASCII reports whether s needs no translation lookup.
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
