package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. An order starts pending and only its status may change
// afterwards; completed and cancelled are terminal.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Payment methods accepted at the kiosk.
const (
	PaymentCash      = "cash"
	PaymentLightning = "lightning"
)

type Order struct {
	ID       string `json:"id"`
	OwnerKey string `json:"-"`
	// Number is the caller-facing identifier, assigned once at creation.
	Number        string          `json:"order_number"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountPct   decimal.Decimal `json:"discount_percentage"`
	Discount      decimal.Decimal `json:"discount_amount"`
	Total         decimal.Decimal `json:"total_amount"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Item freezes the unit price at order time; later catalog changes do not
// touch it.
type Item struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ItemRef   string          `json:"item_ref"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total_price"`
}

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func ValidPaymentMethod(m string) bool {
	return m == PaymentCash || m == PaymentLightning
}

// terminal statuses never transition again
func canTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusCompleted || to == StatusCancelled
	case StatusProcessing:
		return to == StatusCompleted || to == StatusCancelled
	}
	return false
}
