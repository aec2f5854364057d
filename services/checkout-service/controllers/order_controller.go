package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/middleware"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/models"
	"github.com/yashrajoria/storefront-checkout/services/checkout-service/services"
)

type OrderController struct {
	orders services.OrderService
}

func NewOrderController(orders services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// ListOrders handles GET /orders
func (oc *OrderController) ListOrders(c *gin.Context) {
	page, limit := parsePaginationParams(c)
	orders, total, err := oc.orders.ListOrders(c.Request.Context(), middleware.GetUserID(c), page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": total, "page": page, "limit": limit})
}

// GetOrder handles GET /orders/:id
func (oc *OrderController) GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	order, err := oc.orders.GetOrder(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListDiscrepancies handles GET /admin/inventory/discrepancies
func (oc *OrderController) ListDiscrepancies(c *gin.Context) {
	page, limit := parsePaginationParams(c)
	openOnly := c.DefaultQuery("open", "true") != "false"

	rows, total, err := oc.orders.ListDiscrepancies(c.Request.Context(), openOnly, page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	if rows == nil {
		rows = []models.StockDiscrepancy{}
	}
	c.JSON(http.StatusOK, gin.H{"discrepancies": rows, "total": total, "page": page, "limit": limit})
}

// ResolveDiscrepancy handles POST /admin/inventory/discrepancies/:id/resolve
func (oc *OrderController) ResolveDiscrepancy(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	d, err := oc.orders.ResolveDiscrepancy(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// UpdateStatus handles PATCH /admin/orders/:id/status
func (oc *OrderController) UpdateStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}

	order, err := oc.orders.AdvanceStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
