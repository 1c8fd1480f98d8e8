package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"uk-eta-backend/internal/middleware"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/services"
	"uk-eta-backend/internal/validation"
)

// FunctionsHandler serves the RPC-style endpoints under /functions/v1.
type FunctionsHandler struct {
	apps      *services.ApplicationService
	payments  *services.PaymentService
	documents *services.DocumentService
	validator *validation.Validator
	logger    *slog.Logger
}

func NewFunctionsHandler(apps *services.ApplicationService, payments *services.PaymentService, documents *services.DocumentService, v *validation.Validator, logger *slog.Logger) *FunctionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FunctionsHandler{apps: apps, payments: payments, documents: documents, validator: v, logger: logger}
}

// SubmitApplication godoc
// @Summary     Submit a saved application
// @Description Checks in one transaction that every applicant is complete and has a passport and a photo, then marks the application submitted and emails the confirmation.
// @Tags        functions
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.SubmitApplicationRequest true "Application to submit"
// @Success     200 {object} models.SubmitApplicationResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /submit-application [post]
func (h *FunctionsHandler) SubmitApplication(c *gin.Context) {
	var req models.SubmitApplicationRequest
	if !bindJSON(c, h.validator, &req) {
		return
	}
	app, err := h.apps.SubmitApplication(c.Request.Context(), uuid.MustParse(req.ApplicationID), middleware.Actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, submitResponse(app))
}

// CreatePaymentIntent godoc
// @Summary     Start the payment for an application
// @Description The amount is the per-applicant fee times the number of applicants.
// @Tags        functions
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.CreatePaymentIntentRequest true "Application to pay for"
// @Success     200 {object} models.PaymentIntentResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /create-payment-intent [post]
func (h *FunctionsHandler) CreatePaymentIntent(c *gin.Context) {
	var req models.CreatePaymentIntentRequest
	if !bindJSON(c, h.validator, &req) {
		return
	}
	resp, err := h.payments.CreatePaymentIntent(c.Request.Context(), uuid.MustParse(req.ApplicationID), middleware.Actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// VerifyDocument godoc
// @Summary     Score a photo document automatically
// @Description A score of 80 or more without errors verifies the photo; any error rejects it; anything else is left for manual review. Other document types are returned unchanged.
// @Tags        functions
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.VerifyDocumentRequest true "Document to score"
// @Success     200 {object} models.AutoVerifyResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /verify-document [post]
func (h *FunctionsHandler) VerifyDocument(c *gin.Context) {
	var req models.VerifyDocumentRequest
	if !bindJSON(c, h.validator, &req) {
		return
	}
	resp, err := h.documents.AutoVerify(c.Request.Context(), uuid.MustParse(req.DocumentID), middleware.Actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
