package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"uk-eta-backend/internal/middleware"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/services"
	"uk-eta-backend/internal/store"
)

type ResumeHandler struct {
	resumes *services.ResumeService
	logger  *slog.Logger
}

func NewResumeHandler(resumes *services.ResumeService, logger *slog.Logger) *ResumeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResumeHandler{resumes: resumes, logger: logger}
}

// Resume godoc
// @Summary     Continue a saved application
// @Description Restores the saved form into a new draft. Links can be used repeatedly until they expire 30 days after saving.
// @Tags        drafts
// @Produce     json
// @Security    Bearer
// @Param       token path string true "Resume token"
// @Success     200 {object} models.ResumeResponse
// @Failure     404 {object} models.ResumeResponse
// @Failure     410 {object} models.ResumeResponse
// @Router      /resume/{token} [get]
func (h *ResumeHandler) Resume(c *gin.Context) {
	resp, err := h.resumes.Resume(c.Request.Context(), c.Param("token"), middleware.Subject(c))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, resp)
	case errors.Is(err, store.ErrExpired):
		c.JSON(http.StatusGone, models.ResumeResponse{Success: false, Error: "Resume link has expired"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ResumeResponse{Success: false, Error: "Resume link not found"})
	default:
		respondError(c, h.logger, err)
	}
}
