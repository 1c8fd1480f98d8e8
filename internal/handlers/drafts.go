package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"uk-eta-backend/internal/captcha"
	"uk-eta-backend/internal/draft"
	"uk-eta-backend/internal/middleware"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/services"
	"uk-eta-backend/internal/store"
	"uk-eta-backend/internal/validation"
)

type DraftsHandler struct {
	drafts     *draft.Manager
	apps       *services.ApplicationService
	resumes    *services.ResumeService
	normalizer *services.ApplicantNormalizer
	validator  *validation.Validator
	captcha    *captcha.Verifier
	logger     *slog.Logger
}

type DraftsHandlerConfig struct {
	Drafts     *draft.Manager
	Apps       *services.ApplicationService
	Resumes    *services.ResumeService
	Normalizer *services.ApplicantNormalizer
	Validator  *validation.Validator
	Captcha    *captcha.Verifier
	Logger     *slog.Logger
}

func NewDraftsHandler(cfg DraftsHandlerConfig) *DraftsHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DraftsHandler{
		drafts:     cfg.Drafts,
		apps:       cfg.Apps,
		resumes:    cfg.Resumes,
		normalizer: cfg.Normalizer,
		validator:  cfg.Validator,
		captcha:    cfg.Captcha,
		logger:     logger,
	}
}

// draftID parses the path id. Drafts owned by another subject answer 404.
func (h *DraftsHandler) draftID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("draft_id"))
	if err != nil {
		invalidID(c, "draft id")
		return uuid.Nil, false
	}
	d, err := h.drafts.Get(id)
	if err == nil && !d.OwnedBy(middleware.Subject(c)) {
		err = fmt.Errorf("draft %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *DraftsHandler) applicantNumber(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil || n < 1 {
		invalidID(c, "applicant number")
		return 0, false
	}
	return n, true
}

func (h *DraftsHandler) reply(c *gin.Context, code int, d *models.Draft) {
	c.JSON(code, models.DraftResponse{Draft: *d, Completion: draft.Completion(d)})
}

// CreateDraft godoc
// @Summary     Start an application form
// @Tags        drafts
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.CreateDraftRequest false "Optional contact email"
// @Success     201 {object} models.DraftResponse
// @Failure     400 {object} models.ValidationErrorResponse
// @Router      /drafts [post]
func (h *DraftsHandler) CreateDraft(c *gin.Context) {
	var req models.CreateDraftRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, h.validator, &req) {
		return
	}
	if req.Email != "" {
		req.Email = h.validator.Email(req.Email).Sanitized
	}
	h.reply(c, http.StatusCreated, h.drafts.CreateFor(middleware.Subject(c), req.Email))
}

// GetDraft godoc
// @Summary     Read a draft and its completion percentage
// @Tags        drafts
// @Produce     json
// @Security    Bearer
// @Param       draft_id path string true "Draft ID (UUID)"
// @Success     200 {object} models.DraftResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /drafts/{draft_id} [get]
func (h *DraftsHandler) GetDraft(c *gin.Context) {
	id, ok := h.draftID(c)
	if !ok {
		return
	}
	d, err := h.drafts.Get(id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.reply(c, http.StatusOK, d)
}

// ClearDraft godoc
// @Summary     Start the form over
// @Description Drops every applicant and returns the draft to not_started. An application already saved stays in the database.
// @Tags        drafts
// @Produce     json
// @Security    Bearer
// @Param       draft_id path string true "Draft ID (UUID)"
// @Success     200 {object} models.DraftResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /drafts/{draft_id} [delete]
func (h *DraftsHandler) ClearDraft(c *gin.Context) {
	id, ok := h.draftID(c)
	if !ok {
		return
	}
	d, err := h.drafts.Clear(id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.reply(c, http.StatusOK, d)
}

// AddApplicant godoc
// @Summary     Add an empty applicant to a group application
// @Tags        drafts
// @Produce     json
// @Security    Bearer
// @Param       draft_id path string true "Draft ID (UUID)"
// @Success     201 {object} models.DraftResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /drafts/{draft_id}/applicants [post]
func (h *DraftsHandler) AddApplicant(c *gin.Context) {
	id, ok := h.draftID(c)
	if !ok {
		return
	}
	d, _, err := h.drafts.AddApplicant(id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.reply(c, http.StatusCreated, d)
}

// WriteApplicant godoc
// @Summary     Replace one applicant's form fields
// @Description Fields may be left empty while the application is a draft. Filled structured fields are validated and canonicalized; free text is sanitized. The job title is stored as sent; translations come from POST /job-title/translate.
// @Tags        drafts
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       draft_id path string true "Draft ID (UUID)"
// @Param       number path int true "Applicant number (1-based)"
// @Param       request body models.ApplicantInput true "Applicant fields"
// @Success     200 {object} models.DraftResponse
// @Failure     400 {object} models.ValidationErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /drafts/{draft_id}/applicants/{number} [put]
func (h *DraftsHandler) WriteApplicant(c *gin.Context) {
	id, ok := h.draftID(c)
	if !ok {
		return
	}
	n, ok := h.applicantNumber(c)
	if !ok {
		return
	}

	var in models.ApplicantInput
	if !bindJSON(c, h.validator, &in) {
		return
	}
	in, err := h.normalizer.Normalize(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	d, err := h.drafts.WriteApplicant(id, n, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.reply(c, http.StatusOK, d)
}

// RemoveApplicant godoc
// @Summary     Remove an applicant
// @Description Later applicants are renumbered so numbers stay dense from 1. The last applicant cannot be removed.
// @Tags        drafts
// @Produce     json
// @Security    Bearer
// @Param       draft_id path string true "Draft ID (UUID)"
// @Param       number path int true "Applicant number (1-based)"
// @Success     200 {object} models.DraftResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /drafts/{draft_id}/applicants/{number} [delete]
func (h *DraftsHandler) RemoveApplicant(c *gin.Context) {
	id, ok := h.draftID(c)
	if !ok {
		return
	}
	n, ok := h.applicantNumber(c)
	if !ok {
		return
	}
	d, err := h.drafts.RemoveApplicant(id, n)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.reply(c, http.StatusOK, d)
}

// Advance godoc
// @Summary     Move to the next form step
// @Tags        drafts
// @Produce     json
// @Security    Bearer
// @Param       draft_id path string true "Draft ID (UUID)"
// @Success     200 {object} models.DraftResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /drafts/{draft_id}/advance [post]
func (h *DraftsHandler) Advance(c *gin.Context) {
	id, ok := h.draftID(c)
	if !ok {
		return
	}
	d, err := h.drafts.Advance(id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.reply(c, http.StatusOK, d)
}

// GoToStep godoc
// @Summary     Go back to an earlier form step
// @Tags        drafts
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       draft_id path string true "Draft ID (UUID)"
// @Param       request body models.StepRequest true "Target step"
// @Success     200 {object} models.DraftResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /drafts/{draft_id}/step [post]
func (h *DraftsHandler) GoToStep(c *gin.Context) {
	id, ok := h.draftID(c)
	if !ok {
		return
	}
	var req models.StepRequest
	if !bindJSON(c, h.validator, &req) {
		return
	}
	d, err := h.drafts.GoTo(id, req.Step)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.reply(c, http.StatusOK, d)
}

// Persist godoc
// @Summary     Save the draft to the database
// @Description Creates the application with its reference number on the first call and upserts every applicant.
// @Tags        drafts
// @Produce     json
// @Security    Bearer
// @Param       draft_id path string true "Draft ID (UUID)"
// @Success     200 {object} models.PersistDraftResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /drafts/{draft_id}/persist [post]
func (h *DraftsHandler) Persist(c *gin.Context) {
	id, ok := h.draftID(c)
	if !ok {
		return
	}
	resp, err := h.apps.SaveDraft(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SaveForLater godoc
// @Summary     Email a resume link for this draft
// @Tags        drafts
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       draft_id path string true "Draft ID (UUID)"
// @Param       request body models.SaveForLaterRequest true "Email and CAPTCHA token"
// @Success     200 {object} models.ResumeLinkResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /drafts/{draft_id}/save-for-later [post]
func (h *DraftsHandler) SaveForLater(c *gin.Context) {
	id, ok := h.draftID(c)
	if !ok {
		return
	}
	var req models.SaveForLaterRequest
	if !bindJSON(c, h.validator, &req) {
		return
	}
	if !h.verifyCaptcha(c, req.CaptchaToken) {
		return
	}

	resp, err := h.resumes.SaveForLater(c.Request.Context(), id, h.validator.Email(req.Email).Sanitized)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Submit godoc
// @Summary     Submit the application
// @Description Saves the draft, submits the application and closes the draft. The draft must be on the review step.
// @Tags        drafts
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       draft_id path string true "Draft ID (UUID)"
// @Param       request body models.SubmitDraftRequest false "CAPTCHA token"
// @Success     200 {object} models.SubmitApplicationResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /drafts/{draft_id}/submit [post]
func (h *DraftsHandler) Submit(c *gin.Context) {
	id, ok := h.draftID(c)
	if !ok {
		return
	}
	var req models.SubmitDraftRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, h.validator, &req) {
		return
	}
	if !h.verifyCaptcha(c, req.CaptchaToken) {
		return
	}

	app, err := h.apps.SubmitDraft(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, submitResponse(app))
}

func (h *DraftsHandler) verifyCaptcha(c *gin.Context, token string) bool {
	if h.captcha == nil {
		return true
	}
	if err := h.captcha.Verify(c.Request.Context(), token, c.ClientIP()); err != nil {
		if !errors.Is(err, captcha.ErrMissingToken) && !errors.Is(err, captcha.ErrRejected) {
			h.logger.WarnContext(c.Request.Context(), "captcha provider unavailable", "error", err)
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
				Error:   "captcha unavailable",
				Message: "CAPTCHA verification is unavailable. Please try again later.",
			})
			return false
		}
		respondError(c, h.logger, err)
		return false
	}
	return true
}

func submitResponse(app *models.Application) models.SubmitApplicationResponse {
	return models.SubmitApplicationResponse{
		Success:         true,
		ApplicationID:   app.ID.String(),
		ReferenceNumber: app.ReferenceNumber,
		Status:          app.Status,
		SubmittedAt:     app.SubmittedAt,
	}
}
