package order

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidDiscount = errors.New("discount percentage must be between 0 and 100")
	ErrInvalidPayment  = errors.New("unsupported payment method")
	ErrNotFound        = errors.New("order not found")
	ErrBadTransition   = errors.New("invalid status transition")
)

var hundred = decimal.NewFromInt(100)

// Totals is the money breakdown of an order:
// discount = round2(subtotal * pct / 100), total = subtotal - discount.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

func ComputeTotals(subtotal, discountPct decimal.Decimal) (Totals, error) {
	if discountPct.IsNegative() || discountPct.GreaterThan(hundred) {
		return Totals{}, ErrInvalidDiscount
	}
	discount := subtotal.Mul(discountPct).Div(hundred).Round(2)
	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Total:    subtotal.Sub(discount),
	}, nil
}
