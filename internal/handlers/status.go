package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/services"
)

type StatusHandler struct {
	apps   *services.ApplicationService
	logger *slog.Logger
}

func NewStatusHandler(apps *services.ApplicationService, logger *slog.Logger) *StatusHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusHandler{apps: apps, logger: logger}
}

// Track godoc
// @Summary     Track an application
// @Description Both the reference number and the email used on the application are required.
// @Tags        applications
// @Produce     json
// @Security    Bearer
// @Param       reference query string true "Reference number, e.g. ETA-20261018-7K2M9Q"
// @Param       email query string true "Email address on the application"
// @Success     200 {object} models.TrackResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /applications/track [get]
func (h *StatusHandler) Track(c *gin.Context) {
	reference := strings.TrimSpace(c.Query("reference"))
	email := strings.TrimSpace(c.Query("email"))
	if reference == "" || email == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "missing parameters",
			Message: "reference and email are required",
		})
		return
	}

	resp, err := h.apps.Track(c.Request.Context(), reference, email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
