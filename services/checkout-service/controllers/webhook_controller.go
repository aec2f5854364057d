package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/services"
	"go.uber.org/zap"
)

// MaxWebhookBodyBytes bounds provider notification bodies.
const MaxWebhookBodyBytes = 64 << 10

type WebhookController struct {
	webhooks services.WebhookService
	logger   *zap.Logger
}

func NewWebhookController(webhooks services.WebhookService, logger *zap.Logger) *WebhookController {
	return &WebhookController{webhooks: webhooks, logger: logger}
}

// StripeWebhook handles POST /stripe/webhook. The body is read once and
// passed on untouched; the signature covers those exact bytes.
func (wc *WebhookController) StripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			return
		}
		wc.logger.Warn("failed to read webhook body", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	err = wc.webhooks.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	switch {
	case errors.Is(err, services.ErrSignatureInvalid):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
	case err != nil:
		// 5xx makes the provider redeliver.
		wc.logger.Error("webhook processing failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
