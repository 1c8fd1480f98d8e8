package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"uk-eta-backend/internal/handlers"
	"uk-eta-backend/internal/models"
)

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", handlers.NewHealthHandler(nil).Health)

	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
	assert.NotContains(t, w.Body.String(), "services")
}

func TestHealthHandler_Degraded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", handlers.NewHealthHandler(map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	}).Health)

	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decode[models.HealthResponse](t, w)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, map[string]string{"database": "ok", "redis": "unavailable"}, resp.Services)
}

func TestPublicConfig(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/config/public", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.PublicConfigResponse](t, w)
	assert.Equal(t, "pk-test", resp.PaymentPublicKey)
	assert.Equal(t, "16.00", resp.FeePerApplicant)
	assert.Equal(t, "GBP", resp.Currency)
	assert.False(t, resp.CaptchaEnabled)
	assert.Equal(t, 6, resp.PassportNumberMin)
	assert.Equal(t, 12, resp.PassportNumberMax)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/v1/drafts", "/functions/v1/submit-application"} {
		w := s.do(t, http.MethodPost, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}
