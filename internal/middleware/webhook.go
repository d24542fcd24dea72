package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sciencecms/pmc-backend/internal/platform/logger"
)

// WebhookAuth gates the inbound status-signal endpoints behind a shared
// secret. Callers are machine processors (email parser, deposit worker),
// not scientists, so the JWT path does not apply.
type WebhookAuth struct {
	log    *logger.Logger
	secret string
}

func NewWebhookAuth(log *logger.Logger, secret string) *WebhookAuth {
	return &WebhookAuth{
		log:    log.With("middleware", "WebhookAuth"),
		secret: strings.TrimSpace(secret),
	}
}

func (wa *WebhookAuth) RequireSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		if wa.secret == "" {
			wa.log.Error("webhook secret not configured; rejecting request")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "webhooks disabled"})
			return
		}
		provided := strings.TrimSpace(c.GetHeader("X-Webhook-Secret"))
		if subtle.ConstantTimeCompare([]byte(provided), []byte(wa.secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}
		c.Next()
	}
}
