package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/services"
	"uk-eta-backend/internal/validation"
)

// WebhookHandler receives payment processor notifications. It sits outside
// the JWT group; the signature in the body authenticates the caller.
type WebhookHandler struct {
	payments  *services.PaymentService
	validator *validation.Validator
	logger    *slog.Logger
}

func NewWebhookHandler(payments *services.PaymentService, v *validation.Validator, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{payments: payments, validator: v, logger: logger}
}

// HandlePayment godoc
// @Summary     Payment processor notification
// @Description Receives Midtrans HTTP notifications. The signature_key is the SHA-512 of order_id, status_code, gross_amount and the server key. Replayed notifications are accepted and ignored.
// @Tags        webhooks
// @Accept      json
// @Produce     json
// @Param       request body models.PaymentNotification true "Notification"
// @Success     200 {object} map[string]string "status"
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /webhooks/payment [post]
func (h *WebhookHandler) HandlePayment(c *gin.Context) {
	var n models.PaymentNotification
	if !bindJSON(c, h.validator, &n) {
		return
	}

	h.logger.InfoContext(c.Request.Context(), "payment notification received",
		"order_id", n.OrderID,
		"transaction_status", n.TransactionStatus,
		"payment_type", n.PaymentType,
	)

	if err := h.payments.HandleNotification(c.Request.Context(), n); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
