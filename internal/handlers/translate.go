package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/translate"
	"uk-eta-backend/internal/validation"
)

type TranslateHandler struct {
	translator *translate.Service
	validator  *validation.Validator
}

func NewTranslateHandler(translator *translate.Service, v *validation.Validator) *TranslateHandler {
	return &TranslateHandler{translator: translator, validator: v}
}

// TranslateJobTitle godoc
// @Summary     Translate a job title to English
// @Description When no translation is available the response asks for a manual English entry.
// @Tags        applications
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.TranslateJobTitleRequest true "Job title"
// @Success     200 {object} models.TranslateResponse
// @Failure     400 {object} models.ErrorResponse
// @Router      /job-title/translate [post]
func (h *TranslateHandler) TranslateJobTitle(c *gin.Context) {
	var req models.TranslateJobTitleRequest
	if !bindJSON(c, h.validator, &req) {
		return
	}
	c.JSON(http.StatusOK, h.translator.TranslateJobTitle(c.Request.Context(), req.Title, req.SourceLanguage))
}
