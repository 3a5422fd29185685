package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// WebhookSecret guards webhook routes with a shared-secret header. An empty
// configured secret disables the check.
func WebhookSecret(required string) gin.HandlerFunc {
	required = strings.TrimSpace(required)
	return func(c *gin.Context) {
		if required == "" {
			c.Next()
			return
		}
		got := c.GetHeader("X-Webhook-Secret")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(required)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid webhook secret",
				},
			})
			return
		}
		c.Next()
	}
}
