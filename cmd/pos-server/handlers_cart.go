package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/bitkiosk/pos/internal/cart"
	"github.com/bitkiosk/pos/internal/identity"
)

// storeFor picks the cart strategy from the caller's identity kind:
// authenticated owners get the durable store, anonymous sessions the
// in-memory one.
func storeFor(c *gin.Context, d deps) (cart.Store, string) {
	id := identity.FromContext(c)
	if id.Authenticated {
		return d.userCarts, id.OwnerKey
	}
	return d.sessCarts, id.OwnerKey
}

func cartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidPrice),
		errors.Is(err, cart.ErrNameRequired):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, cart.ErrItemNotFound), errors.Is(err, cart.ErrLineNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "cart operation failed"})
	}
}

// getCartHandler godoc
// @Summary Get the caller's cart
// @Tags cart
// @Produce json
// @Success 200 {object} map[string]any
// @Router /cart [get]
func getCartHandler(d deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		store, owner := storeFor(c, d)
		lines, subtotal, err := store.Get(c.Request.Context(), owner)
		if err != nil {
			cartError(c, err)
			return
		}
		if lines == nil {
			lines = []cart.Line{}
		}
		count := 0
		for _, ln := range lines {
			count += ln.Quantity
		}
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"items":      lines,
			"subtotal":   subtotal,
			"item_count": count,
		})
	}
}

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	// omitted quantity means 1, matching walk-up kiosk taps
	Quantity *int `json:"quantity"`
}

// addCartItemHandler godoc
// @Summary Add a catalog product to the cart
// @Tags cart
// @Accept json
// @Produce json
// @Param body body addCartItemRequest true "item to add"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /cart [post]
func addCartItemHandler(d deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.ProductID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "product_id is required"})
			return
		}
		qty := 1
		if req.Quantity != nil {
			qty = *req.Quantity
		}
		store, owner := storeFor(c, d)
		ln, err := store.AddItem(c.Request.Context(), owner, req.ProductID, qty)
		if err != nil {
			cartError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "item": ln})
	}
}

type addCustomItemRequest struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
}

// addCustomItemHandler godoc
// @Summary Add a custom-priced line to the cart
// @Tags cart
// @Accept json
// @Produce json
// @Param body body addCustomItemRequest true "custom line"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /cart/custom [post]
func addCustomItemHandler(d deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addCustomItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
			return
		}
		store, owner := storeFor(c, d)
		ln, err := store.AddCustom(c.Request.Context(), owner, req.Name, req.Description, req.Price)
		if err != nil {
			cartError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "item": ln})
	}
}

type updateCartLineRequest struct {
	Quantity *int `json:"quantity"`
}

// updateCartLineHandler godoc
// @Summary Set a cart line's quantity; zero or less removes it
// @Tags cart
// @Accept json
// @Produce json
// @Param line_id path string true "cart line id"
// @Param body body updateCartLineRequest true "new quantity"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /cart/{line_id} [put]
func updateCartLineHandler(d deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateCartLineRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "quantity is required"})
			return
		}
		store, owner := storeFor(c, d)
		ln, err := store.SetQuantity(c.Request.Context(), owner, c.Param("line_id"), *req.Quantity)
		if err != nil {
			cartError(c, err)
			return
		}
		if ln == nil {
			c.JSON(http.StatusOK, gin.H{"success": true, "removed": true})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "item": ln})
	}
}

// removeCartLineHandler godoc
// @Summary Remove a cart line
// @Tags cart
// @Produce json
// @Param line_id path string true "cart line id"
// @Success 200 {object} map[string]any
// @Router /cart/{line_id} [delete]
func removeCartLineHandler(d deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		store, owner := storeFor(c, d)
		if err := store.Remove(c.Request.Context(), owner, c.Param("line_id")); err != nil {
			cartError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "removed": true})
	}
}

// clearCartHandler godoc
// @Summary Remove every line from the caller's cart
// @Tags cart
// @Produce json
// @Success 200 {object} map[string]any
// @Router /cart/clear [post]
func clearCartHandler(d deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		store, owner := storeFor(c, d)
		if err := store.Clear(c.Request.Context(), owner); err != nil {
			cartError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
