package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"uk-eta-backend/internal/middleware"
)

const testSecret = "test-secret-key-for-jwt-signing-must-be-long-enough"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	assert.NoError(t, err)
	return s
}

func authRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.AuthMiddleware(testSecret))
	router.GET("/test", handler)
	return router
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	req, _ := http.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	authRouter(okHandler).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing authorization header")
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	tests := map[string]string{
		"not bearer":    "Token abc",
		"not a jwt":     "Bearer invalid-token",
		"wrong secret":  "Bearer " + signToken(t, jwt.MapClaims{"sub": "u"}, "other-secret"),
		"expired token": "Bearer " + signToken(t, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()}, testSecret),
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", header)
			w := httptest.NewRecorder()
			authRouter(okHandler).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	tokenString := signToken(t, jwt.MapClaims{
		"sub":   "user-123",
		"email": "Admin@Example.com",
		"role":  "authenticated",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	router := authRouter(func(c *gin.Context) {
		assert.Equal(t, "user-123", c.GetString(middleware.UserIDKey))
		assert.Equal(t, "admin@example.com", c.GetString(middleware.UserEmailKey))
		assert.Equal(t, "authenticated", c.GetString(middleware.UserRoleKey))
		assert.Equal(t, "admin@example.com", middleware.Actor(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req, _ := http.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_AnonymousToken(t *testing.T) {
	tokenString := signToken(t, jwt.MapClaims{"role": "anon"}, testSecret)

	router := authRouter(func(c *gin.Context) {
		_, exists := c.Get(middleware.UserIDKey)
		assert.False(t, exists)
		assert.Equal(t, "anonymous", middleware.Actor(c))
		c.Status(http.StatusNoContent)
	})

	req, _ := http.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
