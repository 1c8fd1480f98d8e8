package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Tags returns the custom binding tags backed by v.
func (v *Validator) Tags() map[string]func(string) Result {
	return map[string]func(string) Result{
		"passport_name":   v.PassportName,
		"passport_number": v.PassportNumber,
		"passport_expiry": v.PassportExpiry,
		"eta_email":       v.Email,
		"dob":             v.DateOfBirth,
		"nationality":     v.Nationality,
		"phone":           v.Phone,
		"job_title":       v.JobTitle,
	}
}

// Register installs the custom tags on a validator engine. Field errors are
// reported under their JSON names.
func (v *Validator) Register(engine *validator.Validate) error {
	engine.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	for tag, check := range v.Tags() {
		check := check
		err := engine.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return check(fl.Field().String()).IsValid
		})
		if err != nil {
			return fmt.Errorf("failed to register %s validation: %w", tag, err)
		}
	}
	return nil
}

// RegisterBindings installs the custom tags on gin's default binding engine.
func RegisterBindings(v *Validator) error {
	engine, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	return v.Register(engine)
}
