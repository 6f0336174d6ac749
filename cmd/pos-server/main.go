package main

import (
	"context"
	"log"
	"time"

	"github.com/bitkiosk/pos/internal/cart"
	"github.com/bitkiosk/pos/internal/catalog"
	"github.com/bitkiosk/pos/internal/config"
	"github.com/bitkiosk/pos/internal/db"
	"github.com/bitkiosk/pos/internal/lightning"
	"github.com/bitkiosk/pos/internal/order"
	"github.com/bitkiosk/pos/internal/payment"
)

// @title POS Backend API
// @version 1.0
// @description Point-of-sale backend with dual-mode carts, atomic checkout
// @description and Lightning/ecash settlement bridging.
// @BasePath /api
func main() {
	cfg := config.Load()

	if err := db.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	pool, err := db.Connect(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	catalogRepo := catalog.NewPGRepo(pool)
	sessCarts := cart.NewSessionStore(catalogRepo)

	payments := payment.NewStore(cfg.PaymentTTL)
	payments.StartSweeper(cfg.SweepInterval)
	defer payments.Close()

	go func() {
		t := time.NewTicker(15 * time.Minute)
		defer t.Stop()
		for range t.C {
			if n := sessCarts.PruneIdle(2 * time.Hour); n > 0 {
				log.Printf("[sweep] dropped %d idle session carts", n)
			}
		}
	}()

	r := newRouter(deps{
		catalog:     catalogRepo,
		userCarts:   cart.NewPGStore(pool, catalogRepo),
		sessCarts:   sessCarts,
		checkout:    order.NewPipeline(pool),
		orders:      order.NewPGRepo(pool),
		payments:    payments,
		invoices:    lightning.NewClient(cfg.LNURLTimeout),
		defaultMint: cfg.DefaultMintURL,
	})

	log.Printf("pos-server listening on %s", cfg.ListenAddr)
	log.Fatal(r.Run(cfg.ListenAddr))
}
