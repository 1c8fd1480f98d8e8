package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"uk-eta-backend/internal/models"
)

// HealthCheck reports whether one backing service is reachable.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]HealthCheck
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health godoc
// @Summary     Health check
// @Description Returns the health status of the API and its backing services
// @Tags        health
// @Produce     json
// @Success     200 {object} models.HealthResponse
// @Failure     503 {object} models.HealthResponse
// @Router      /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	response := models.HealthResponse{Status: "ok"}
	if len(h.checks) > 0 {
		response.Services = make(map[string]string, len(h.checks))
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	code := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			response.Services[name] = "unavailable"
			response.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		response.Services[name] = "ok"
	}
	c.JSON(code, response)
}
