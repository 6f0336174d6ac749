package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bitkiosk/pos/internal/catalog"
)

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// listProductsHandler godoc
// @Summary List available products
// @Tags products
// @Produce json
// @Param category query string false "category id"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} map[string]any
// @Router /products [get]
func listProductsHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := catalog.Query{
			CategoryID: c.Query("category"),
			Limit:      atoiDefault(c.Query("limit"), 0),
			Offset:     atoiDefault(c.Query("offset"), 0),
		}
		products, err := repo.ListAvailable(c.Request.Context(), q)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not list products"})
			return
		}
		if products == nil {
			products = []catalog.Product{}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "products": products})
	}
}

// getProductHandler godoc
// @Summary Get one product
// @Tags products
// @Produce json
// @Param id path string true "product id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /products/{id} [get]
func getProductHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "product not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "product": p})
	}
}
