package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bitkiosk/pos/internal/lightning"
	"github.com/bitkiosk/pos/internal/order"
	"github.com/bitkiosk/pos/internal/payment"
)

type submitPaymentRequest struct {
	Proofs []payment.Proof `json:"proofs"`
	Unit   string          `json:"unit"`
	Mint   string          `json:"mint"`
	Memo   string          `json:"memo"`
}

// submitPaymentHandler accepts out-of-band ecash proofs against a
// caller-generated request id. Deliberately unauthenticated: the id is the
// only rendezvous between payer and requester.
//
// @Summary Submit ecash proofs for a payment request
// @Tags payments
// @Accept json
// @Produce json
// @Param request_id path string true "payment request id"
// @Param body body submitPaymentRequest true "proofs"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /payments/{request_id} [post]
func submitPaymentHandler(store *payment.Store, defaultMint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req submitPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "proofs must be a list"})
			return
		}
		if req.Proofs == nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "proofs must be a list"})
			return
		}
		if req.Mint == "" {
			req.Mint = defaultMint
		}
		rec, err := store.Submit(c.Param("request_id"), req.Proofs, req.Unit, req.Mint, req.Memo)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "amount": rec.Amount, "unit": rec.Unit})
	}
}

// pollPaymentHandler reports whether proofs arrived for the id. With
// ?consume=true the record is handed out exactly once; if its id matches an
// order number the order is marked completed, which is how settlement
// evidence reaches order status.
//
// @Summary Poll a payment request
// @Tags payments
// @Produce json
// @Param request_id path string true "payment request id"
// @Param consume query bool false "delete the record after returning it"
// @Success 200 {object} map[string]any
// @Router /payments/{request_id} [get]
func pollPaymentHandler(store *payment.Store, orders order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("request_id")
		consume := c.Query("consume") == "true" || c.Query("consume") == "1"

		rec, ok := store.Poll(id, consume)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"paid": false})
			return
		}
		if consume && orders != nil {
			if err := orders.MarkPaidByNumber(c.Request.Context(), id); err == nil {
				log.Printf("[payment] order %s completed from ecash settlement", id)
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"paid":      true,
			"proofs":    rec.Proofs,
			"amount":    rec.Amount,
			"unit":      rec.Unit,
			"mint":      rec.Mint,
			"memo":      rec.Memo,
			"timestamp": rec.ReceivedAt,
		})
	}
}

type lightningQuoteRequest struct {
	Address string `json:"address"`
	Amount  int64  `json:"amount"`
	Memo    string `json:"memo"`
}

func lightningStatus(err error) int {
	switch {
	case lightning.IsKind(err, lightning.KindInvalidRequest),
		lightning.IsKind(err, lightning.KindInvalidAmount):
		return http.StatusBadRequest
	case lightning.IsKind(err, lightning.KindWalletNotFound):
		return http.StatusNotFound
	case lightning.IsKind(err, lightning.KindNetworkError):
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

// lightningQuoteHandler godoc
// @Summary Request a Lightning invoice for an address
// @Tags payments
// @Accept json
// @Produce json
// @Param body body lightningQuoteRequest true "address and amount in sats"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 502 {object} map[string]any
// @Router /lightning/quote [post]
func lightningQuoteHandler(invoices invoicer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req lightningQuoteRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Address == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "address is required"})
			return
		}
		invoice, err := invoices.RequestInvoice(c.Request.Context(), req.Address, req.Amount, req.Memo)
		if err != nil {
			body := gin.H{"success": false, "message": err.Error()}
			if le, ok := err.(*lightning.Error); ok {
				body["error"] = string(le.Kind)
			}
			c.JSON(lightningStatus(err), body)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "invoice": invoice})
	}
}
