package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/controllers"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/middleware"
	"github.com/yashrajoria/storefront-checkout/services/common/auth"
	commonmw "github.com/yashrajoria/storefront-checkout/services/common/middleware"
	"go.uber.org/zap"
)

// Controllers groups every handler the service mounts.
type Controllers struct {
	Checkout *controllers.CheckoutController
	Webhook  *controllers.WebhookController
	Cart     *controllers.CartController
	Order    *controllers.OrderController
}

// RegisterCheckoutRoutes sets up all checkout, cart, order and admin routes.
// checkoutLimiter may be nil.
func RegisterCheckoutRoutes(r *gin.Engine, h Controllers, verifier *auth.Verifier, checkoutLimiter *commonmw.RateLimiter, logger *zap.Logger) {
	authn := middleware.AuthMiddleware(verifier, logger)

	// Provider notifications: authenticated by signature, not by user.
	r.POST("/stripe/webhook", h.Webhook.StripeWebhook)

	checkout := r.Group("/checkout")
	{
		create := []gin.HandlerFunc{authn}
		if checkoutLimiter != nil {
			create = append(create, commonmw.RateLimitMiddleware(checkoutLimiter))
		}
		checkout.POST("/session", append(create, h.Checkout.CreateSession)...)

		// Success page polling; the session id is the capability.
		checkout.GET("/session/:session_id", h.Checkout.GetSessionStatus)
	}

	cart := r.Group("/cart", authn)
	{
		cart.GET("", h.Cart.GetCart)
		cart.POST("/items", h.Cart.AddItem)
		cart.DELETE("/items/:item_id", h.Cart.RemoveItem)
		cart.DELETE("", h.Cart.ClearCart)
	}

	orders := r.Group("/orders", authn)
	{
		orders.GET("", h.Order.ListOrders)
		orders.GET("/:id", h.Order.GetOrder)
	}

	admin := r.Group("/admin", authn, middleware.RequireAdmin())
	{
		admin.GET("/inventory/discrepancies", h.Order.ListDiscrepancies)
		admin.POST("/inventory/discrepancies/:id/resolve", h.Order.ResolveDiscrepancy)
		admin.PATCH("/orders/:id/status", h.Order.UpdateStatus)
	}
}
