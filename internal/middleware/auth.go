package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"uk-eta-backend/internal/models"
)

const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"
	UserRoleKey  = "user_role"
)

// AuthMiddleware accepts Supabase-issued HS256 tokens. Anonymous portal
// sessions carry no sub claim, so only the signature and expiry are required.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header", "")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "invalid authorization header format", "")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			abortUnauthorized(c, "empty token", "")
			return
		}

		// Some clients URL-encode the token.
		if decoded, err := url.QueryUnescape(tokenString); err == nil && decoded != tokenString {
			tokenString = decoded
		}

		if strings.Count(tokenString, ".") != 2 {
			abortUnauthorized(c, "invalid token format", "JWT token must have 3 parts separated by dots")
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			if jwtSecret == "" {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(jwtSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))

		if err != nil {
			var message string
			switch {
			case errors.Is(err, jwt.ErrTokenSignatureInvalid):
				message = "token signature is invalid"
			case errors.Is(err, jwt.ErrTokenExpired):
				message = "token has expired"
			case errors.Is(err, jwt.ErrTokenMalformed):
				message = "token is malformed - ensure you're using a valid Supabase JWT token"
			case errors.Is(err, jwt.ErrTokenUnverifiable):
				message = "token must be signed with HS256"
			default:
				message = err.Error()
			}
			abortUnauthorized(c, "invalid token", message)
			return
		}

		if !token.Valid {
			abortUnauthorized(c, "invalid token", "")
			return
		}

		if sub, ok := claims["sub"].(string); ok && sub != "" {
			c.Set(UserIDKey, sub)
		}
		if email, ok := claims["email"].(string); ok && email != "" {
			c.Set(UserEmailKey, strings.ToLower(email))
		}
		if role, ok := claims["role"].(string); ok {
			c.Set(UserRoleKey, role)
		}
		c.Next()
	}
}

// Actor names the caller for audit rows.
func Actor(c *gin.Context) string {
	if email := c.GetString(UserEmailKey); email != "" {
		return email
	}
	if sub := c.GetString(UserIDKey); sub != "" {
		return sub
	}
	return "anonymous"
}

// Subject is the token's sub claim, or "" for sessions without one.
func Subject(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

func abortUnauthorized(c *gin.Context, errMsg, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: errMsg, Message: message})
}
