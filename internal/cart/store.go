// Package cart implements the shopping cart behind the kiosk. Authenticated
// owners get durable carts in Postgres; anonymous walk-up buyers get
// per-session carts held in memory. Both speak the same Store interface so
// handlers pick a strategy purely from the caller's identity kind.
package cart

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidPrice    = errors.New("price must be a positive amount")
	ErrNameRequired    = errors.New("name is required")
	ErrLineNotFound    = errors.New("cart line not found")
	ErrItemNotFound    = errors.New("product not found or unavailable")
)

type Kind string

const (
	KindCatalog Kind = "catalog"
	KindCustom  Kind = "custom"
)

// Line is one cart entry. Catalog lines reference a product and take their
// name and unit price from the catalog at read time; custom lines carry both
// inline and their ItemRef is a synthetic id that never collides with a
// product id.
type Line struct {
	ID          string          `json:"id"`
	OwnerKey    string          `json:"-"`
	Kind        Kind            `json:"kind"`
	ItemRef     string          `json:"item_ref"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type Store interface {
	// Get never fails on bad line contents; lines whose catalog reference no
	// longer resolves are skipped.
	Get(ctx context.Context, owner string) ([]Line, decimal.Decimal, error)
	// AddItem merges into an existing line for the same product or creates
	// one. qty must be >= 1.
	AddItem(ctx context.Context, owner, productID string, qty int) (*Line, error)
	// AddCustom creates a one-off priced line outside the catalog.
	AddCustom(ctx context.Context, owner, name, description string, price decimal.Decimal) (*Line, error)
	// SetQuantity overwrites the quantity; qty <= 0 deletes the line and
	// returns a nil line.
	SetQuantity(ctx context.Context, owner, lineID string, qty int) (*Line, error)
	// Remove deletes a line and is a no-op when it is already gone.
	Remove(ctx context.Context, owner, lineID string) error
	// Clear drops every line the owner has.
	Clear(ctx context.Context, owner string) error
}
