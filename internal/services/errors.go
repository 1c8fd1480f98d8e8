package services

import (
	"errors"
	"fmt"
)

// BusinessError is a rule violation whose message is safe to show the applicant.
type BusinessError struct {
	Message string
}

func (e *BusinessError) Error() string {
	return e.Message
}

func NewBusinessError(format string, args ...any) *BusinessError {
	return &BusinessError{Message: fmt.Sprintf(format, args...)}
}

// IsBusinessError reports whether err carries a BusinessError and returns it.
func IsBusinessError(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// ValidationError maps form fields to the first rule each one failed.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d invalid field(s)", len(e.Fields))
}

var ErrInvalidSignature = errors.New("invalid payment notification signature")
