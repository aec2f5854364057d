package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/middleware"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/models"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/services"
	apperrors "github.com/yashrajoria/storefront-checkout/services/common/errors"
)

// CheckoutController serves the storefront's checkout endpoints.
type CheckoutController struct {
	checkout services.CheckoutService
	status   services.SessionStatusService
}

func NewCheckoutController(checkout services.CheckoutService, status services.SessionStatusService) *CheckoutController {
	return &CheckoutController{checkout: checkout, status: status}
}

// CreateSession handles POST /checkout/session
func (cc *CheckoutController) CreateSession(c *gin.Context) {
	var req models.CreateCheckoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	resp, err := cc.checkout.CreateSession(c.Request.Context(), middleware.GetUserID(c), req.CustomerEmail)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetSessionStatus handles GET /checkout/session/:session_id. Every failure
// carries the same public message so the success page cannot probe ids.
func (cc *CheckoutController) GetSessionStatus(c *gin.Context) {
	st, err := cc.status.GetStatus(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(apperrors.From(err).Code, gin.H{"error": services.StatusReadFailure})
		return
	}
	c.JSON(http.StatusOK, st)
}
