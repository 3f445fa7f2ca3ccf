package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/erp/ordersync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// WebhookTokenHeader carries the shared webhook secret
const WebhookTokenHeader = "X-Webhook-Token"

// WebhookToken rejects deliveries whose X-Webhook-Token does not match
// secret. An empty secret disables the check.
func WebhookToken(secret string) gin.HandlerFunc {
	expected := []byte(secret)
	return func(c *gin.Context) {
		if len(expected) == 0 {
			c.Next()
			return
		}
		got := []byte(c.GetHeader(WebhookTokenHeader))
		if subtle.ConstantTimeCompare(got, expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized,
				"invalid webhook token",
				GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}
