package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/bitkiosk/pos/internal/identity"
	"github.com/bitkiosk/pos/internal/order"
)

func orderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrInvalidDiscount),
		errors.Is(err, order.ErrInvalidPayment),
		errors.Is(err, order.ErrBadTransition):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, order.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "order operation failed"})
	}
}

// requireOwner rejects anonymous callers; orders only exist for durable
// identities.
func requireOwner(c *gin.Context) (string, bool) {
	id := identity.FromContext(c)
	if !id.Authenticated {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "sign in to manage orders"})
		return "", false
	}
	return id.OwnerKey, true
}

type createOrderRequest struct {
	PaymentMethod      string          `json:"payment_method"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

// createOrderHandler godoc
// @Summary Convert the caller's cart into an order
// @Tags orders
// @Accept json
// @Produce json
// @Param body body createOrderRequest true "payment method and discount"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /orders/create [post]
func createOrderHandler(checkout converter) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := requireOwner(c)
		if !ok {
			return
		}
		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
			return
		}
		o, items, err := checkout.Checkout(c.Request.Context(), order.CheckoutInput{
			OwnerKey:      owner,
			PaymentMethod: req.PaymentMethod,
			DiscountPct:   req.DiscountPercentage,
		})
		if err != nil {
			orderError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "order": o, "items": items})
	}
}

// listOrdersHandler godoc
// @Summary List the caller's orders
// @Tags orders
// @Produce json
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} map[string]any
// @Router /orders [get]
func listOrdersHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := requireOwner(c)
		if !ok {
			return
		}
		orders, err := repo.ListByOwner(c.Request.Context(), owner,
			atoiDefault(c.Query("limit"), 0), atoiDefault(c.Query("offset"), 0))
		if err != nil {
			orderError(c, err)
			return
		}
		if orders == nil {
			orders = []order.Order{}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
	}
}

// getOrderHandler godoc
// @Summary Get one of the caller's orders with its items
// @Tags orders
// @Produce json
// @Param id path string true "order id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /orders/{id} [get]
func getOrderHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := requireOwner(c)
		if !ok {
			return
		}
		o, items, err := repo.GetByID(c.Request.Context(), owner, c.Param("id"))
		if err != nil {
			orderError(c, err)
			return
		}
		if items == nil {
			items = []order.Item{}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "order": o, "items": items})
	}
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// updateOrderStatusHandler godoc
// @Summary Transition an order's status
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "order id"
// @Param body body updateStatusRequest true "target status"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /orders/{id}/status [put]
func updateOrderStatusHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, ok := requireOwner(c)
		if !ok {
			return
		}
		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "status is required"})
			return
		}
		if err := repo.UpdateStatus(c.Request.Context(), owner, c.Param("id"), req.Status); err != nil {
			orderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "status": req.Status})
	}
}
