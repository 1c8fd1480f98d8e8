package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"uk-eta-backend/internal/middleware"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/store"
)

func TestAdminMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := store.NewMemoryStore()
	st.AddAdminUser(models.AdminUser{Email: "boss@example.com", Role: models.RoleSuperAdmin})

	router := gin.New()
	router.Use(middleware.AuthMiddleware(testSecret), middleware.AdminMiddleware(st, nil))
	router.GET("/admin", func(c *gin.Context) {
		admin, ok := middleware.AdminFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"role": admin.Role})
	})

	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   int
	}{
		{"admin", jwt.MapClaims{"email": "BOSS@example.com"}, http.StatusOK},
		{"not an admin", jwt.MapClaims{"email": "jane@example.com"}, http.StatusForbidden},
		{"no email claim", jwt.MapClaims{"sub": "user-1"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, tt.claims, testSecret))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
