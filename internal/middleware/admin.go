package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/store"
)

const AdminUserKey = "admin_user"

// AdminMiddleware must run after AuthMiddleware. The token's email claim has
// to belong to an admin_users row.
func AdminMiddleware(admins store.AdminStore, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		email := c.GetString(UserEmailKey)
		if email == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
				Error:   "forbidden",
				Message: "admin access requires an email claim",
			})
			return
		}

		admin, err := admins.GetAdminUserByEmail(c.Request.Context(), email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
					Error:   "forbidden",
					Message: "admin access required",
				})
				return
			}
			logger.ErrorContext(c.Request.Context(), "admin lookup failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
				Error: "internal server error",
			})
			return
		}

		c.Set(AdminUserKey, admin)
		c.Next()
	}
}

// AdminFrom returns the admin resolved by AdminMiddleware.
func AdminFrom(c *gin.Context) (*models.AdminUser, bool) {
	v, ok := c.Get(AdminUserKey)
	if !ok {
		return nil, false
	}
	admin, ok := v.(*models.AdminUser)
	return admin, ok
}
