package main

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/bitkiosk/pos/docs"
	"github.com/bitkiosk/pos/internal/cart"
	"github.com/bitkiosk/pos/internal/catalog"
	"github.com/bitkiosk/pos/internal/httpx"
	"github.com/bitkiosk/pos/internal/identity"
	"github.com/bitkiosk/pos/internal/order"
	"github.com/bitkiosk/pos/internal/payment"
)

// converter and invoicer mirror order.Pipeline and lightning.Client so
// handler tests can stand in fakes.
type converter interface {
	Checkout(ctx context.Context, in order.CheckoutInput) (*order.Order, []order.Item, error)
}

type invoicer interface {
	RequestInvoice(ctx context.Context, address string, amountSat int64, memo string) (string, error)
}

type deps struct {
	catalog   catalog.Repository
	userCarts cart.Store
	sessCarts cart.Store
	checkout  converter
	orders    order.Repository
	payments  *payment.Store
	invoices  invoicer

	// mint assumed when a proof submission names none
	defaultMint string
}

func newRouter(d deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(), identity.Middleware())

	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")
	{
		api.GET("/products", listProductsHandler(d.catalog))
		api.GET("/products/:id", getProductHandler(d.catalog))

		api.GET("/cart", getCartHandler(d))
		api.POST("/cart", addCartItemHandler(d))
		api.POST("/cart/custom", addCustomItemHandler(d))
		api.PUT("/cart/:line_id", updateCartLineHandler(d))
		api.DELETE("/cart/:line_id", removeCartLineHandler(d))
		api.POST("/cart/clear", clearCartHandler(d))

		api.POST("/orders/create", createOrderHandler(d.checkout))
		api.GET("/orders", listOrdersHandler(d.orders))
		api.GET("/orders/:id", getOrderHandler(d.orders))
		api.PUT("/orders/:id/status", updateOrderStatusHandler(d.orders))

		api.POST("/payments/:request_id", submitPaymentHandler(d.payments, d.defaultMint))
		api.GET("/payments/:request_id", pollPaymentHandler(d.payments, d.orders))

		api.POST("/lightning/quote", lightningQuoteHandler(d.invoices))
	}
	return r
}
