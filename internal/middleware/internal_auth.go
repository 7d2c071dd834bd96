package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// InternalAPIKeyHeader carries the shared secret of internal callers (banking sync, payout callbacks, cron).
const InternalAPIKeyHeader = "X-Internal-Api-Key"

// InternalAuth authenticates service-to-service requests with a shared secret.
// When secretHash is set the key is checked against the bcrypt hash and secret is ignored,
// so deployments never need the plain key in their environment.
// With neither configured every request is rejected.
func InternalAuth(secret, secretHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(InternalAPIKeyHeader)
		if provided == "" || !internalKeyMatches(provided, secret, secretHash) {
			GetLoggerFromCtx(c.Request.Context()).Warn("Internal request rejected", slog.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid internal credentials"})
			return
		}
		c.Set("authMethod", "internal_key")
		c.Next()
	}
}

func internalKeyMatches(provided, secret, secretHash string) bool {
	if secretHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(secretHash), []byte(provided)) == nil
	}
	if secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) == 1
}
