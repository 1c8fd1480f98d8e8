package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"uk-eta-backend/internal/config"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/services"
)

type ConfigHandler struct {
	response models.PublicConfigResponse
}

func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{response: models.PublicConfigResponse{
		PaymentPublicKey:  cfg.PaymentPublicKey,
		CaptchaSiteKey:    cfg.CaptchaSiteKey,
		CaptchaEnabled:    cfg.CaptchaEnabled(),
		PassportNumberMin: cfg.PassportNumberMin,
		PassportNumberMax: cfg.PassportNumberMax,
		FeePerApplicant:   cfg.FeePerApplicant.StringFixed(2),
		Currency:          services.Currency,
	}}
}

// PublicConfig godoc
// @Summary     Browser configuration
// @Description Public keys and limits the portal needs before the user signs in.
// @Tags        config
// @Produce     json
// @Success     200 {object} models.PublicConfigResponse
// @Router      /config/public [get]
func (h *ConfigHandler) PublicConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.response)
}
