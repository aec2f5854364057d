package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront-checkout/services/common/auth"
	"go.uber.org/zap"
)

const (
	UserKey = "userID"
	RoleKey = "userRole"

	RoleAdmin = "admin"
)

// AuthMiddleware resolves the caller. The API gateway injects X-User-ID (and
// X-User-Role); direct callers may present a bearer token instead.
func AuthMiddleware(verifier *auth.Verifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := strings.TrimSpace(c.GetHeader("X-User-ID")); userID != "" {
			c.Set(UserKey, userID)
			c.Set(RoleKey, strings.TrimSpace(c.GetHeader("X-User-Role")))
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" || !verifier.Enabled() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims, err := verifier.Identify(strings.TrimSpace(token))
		if err != nil {
			logger.Debug("bearer token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(UserKey, claims.UserID)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// RequireAdmin must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserRole(c) != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) string {
	return c.GetString(UserKey)
}

func GetUserRole(c *gin.Context) string {
	return c.GetString(RoleKey)
}
