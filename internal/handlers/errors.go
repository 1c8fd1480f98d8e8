package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"uk-eta-backend/internal/captcha"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/services"
	"uk-eta-backend/internal/store"
	"uk-eta-backend/internal/validation"
)

// respondError maps service errors onto HTTP statuses. Anything unrecognised is
// logged and answered with a generic 500.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, models.ValidationErrorResponse{
			Error:   "validation failed",
			Message: "One or more fields are invalid",
			Fields:  verr.Fields,
		})
		return
	}
	if be, ok := services.IsBusinessError(err); ok {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "request rejected", Message: be.Message})
		return
	}

	switch {
	case errors.Is(err, captcha.ErrMissingToken), errors.Is(err, captcha.ErrRejected):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "captcha verification failed", Message: err.Error()})
	case errors.Is(err, services.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid signature"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not found", Message: err.Error()})
	case errors.Is(err, store.ErrInvalidState), errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "conflict", Message: err.Error()})
	case errors.Is(err, store.ErrExpired):
		c.JSON(http.StatusGone, models.ErrorResponse{Error: "expired", Message: err.Error()})
	default:
		logger.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal server error",
			Message: "Something went wrong. Please try again later.",
		})
	}
}

// bindJSON binds the request body and answers 400 itself when binding fails.
// Failures on the custom field tags carry the validator's own message.
func bindJSON(c *gin.Context, v *validation.Validator, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = fieldMessage(v, fe)
	}
	c.JSON(http.StatusBadRequest, models.ValidationErrorResponse{
		Error:   "validation failed",
		Message: "One or more fields are invalid",
		Fields:  fields,
	})
	return false
}

// fieldPath drops the struct name from the namespace: "job_title.original".
func fieldPath(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	return fe.Field()
}

func fieldMessage(v *validation.Validator, fe validator.FieldError) string {
	if v != nil {
		if check, ok := v.Tags()[fe.Tag()]; ok {
			if msg := check(fmt.Sprint(fe.Value())).Error; msg != "" {
				return msg
			}
		}
	}
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "uuid":
		return "Must be a valid UUID"
	case "min", "max":
		return fmt.Sprintf("Must satisfy %s=%s", fe.Tag(), fe.Param())
	default:
		return "Invalid value"
	}
}

func invalidID(c *gin.Context, what string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid " + what})
}
