package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/middleware"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/models"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/services"
)

type CartController struct {
	carts services.CartService
}

func NewCartController(carts services.CartService) *CartController {
	return &CartController{carts: carts}
}

// GetCart returns the current cart for a user
func (cc *CartController) GetCart(c *gin.Context) {
	cart, err := cc.carts.GetCart(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// AddItem adds a line, merging quantities with an existing identical line.
func (cc *CartController) AddItem(c *gin.Context) {
	var req models.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}

	cart, err := cc.carts.AddItem(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (cc *CartController) RemoveItem(c *gin.Context) {
	itemID, ok := parseIDParam(c, "item_id")
	if !ok {
		return
	}
	cart, err := cc.carts.RemoveItem(c.Request.Context(), middleware.GetUserID(c), itemID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// ClearCart removes all items from the cart
func (cc *CartController) ClearCart(c *gin.Context) {
	if err := cc.carts.ClearCart(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
}
