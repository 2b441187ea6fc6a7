package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"intake-backend/internal/shared/server/respond"
)

const (
	userIDKey   = "userId"
	userRoleKey = "userRole"

	userIDHeader   = "X-User-Id"
	userRoleHeader = "X-User-Role"
)

// Identity reads the caller identity forwarded by the gateway and stores it
// in context. The service sits behind an authenticating proxy, so the
// headers are trusted as-is; requests without an identity are rejected.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		// Probes and scrapers carry no identity.
		switch c.Request.URL.Path {
		case "/api/v1/health", "/api/v1/metrics":
			c.Next()
			return
		}

		userID := strings.TrimSpace(c.GetHeader(userIDHeader))
		if userID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing identity", nil)
			return
		}

		c.Set(userIDKey, userID)
		if role := strings.TrimSpace(c.GetHeader(userRoleHeader)); role != "" {
			c.Set(userRoleKey, role)
		}
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the identity middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// UserRoleFromContext fetches the user role set by the identity middleware.
func UserRoleFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userRoleKey)
	if role, ok := val.(string); ok {
		return role
	}
	return ""
}
