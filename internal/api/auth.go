package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/telemetry"
)

// RequireBearerToken rejects requests whose Authorization header does not
// carry token as a bearer credential.
func RequireBearerToken(token string) gin.HandlerFunc {
	expected := []byte(token)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(presented)), expected) != 1 {
			telemetry.Logger.Warn("Rejected operator request",
				zap.String("path", c.Request.URL.Path),
				zap.Bool("credentials_present", header != ""),
				zap.String("client_ip", c.ClientIP()),
			)
			c.Header("WWW-Authenticate", `Bearer realm="admin"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
