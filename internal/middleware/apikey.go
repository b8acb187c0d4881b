package middleware

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/pictovoice/pictovoice-backend/internal/logger"
)

const adminKeyHeader = "X-Admin-Api-Key"

type AdminKeyMiddleware struct {
	log    *logger.Logger
	apiKey string
}

func NewAdminKeyMiddleware(log *logger.Logger) *AdminKeyMiddleware {
	middlewareLog := log.With("middleware", "AdminKeyMiddleware")
	apiKey := os.Getenv("ADMIN_API_KEY")
	if apiKey == "" {
		middlewareLog.Warn("ADMIN_API_KEY not set, mutating keyword routes are unguarded")
	}
	return &AdminKeyMiddleware{log: middlewareLog, apiKey: apiKey}
}

// RequireAdminKey guards mutating routes. With no configured key the guard is
// a no-op so local development works without credentials.
func (am *AdminKeyMiddleware) RequireAdminKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if am.apiKey == "" {
			c.Next()
			return
		}
		provided := c.GetHeader(adminKeyHeader)
		if provided != am.apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid api key"})
			return
		}
		c.Next()
	}
}
