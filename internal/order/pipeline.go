package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// TxBeginner is the slice of pgxpool.Pool the pipeline needs; tests substitute
// an in-memory transaction.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

type CheckoutInput struct {
	OwnerKey      string
	PaymentMethod string
	DiscountPct   decimal.Decimal
}

// Pipeline converts a durable cart into an order. Reading the cart, writing
// the order header and items and clearing the cart all happen in one
// repeatable-read transaction, so a failure anywhere leaves no order and an
// untouched cart, and concurrent checkouts of the same cart see one
// consistent snapshot.
type Pipeline struct {
	db TxBeginner
}

func NewPipeline(db TxBeginner) *Pipeline { return &Pipeline{db: db} }

const uniqueViolation = "23505"

func isNumberCollision(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "orders_order_number_key"
}

func (p *Pipeline) Checkout(ctx context.Context, in CheckoutInput) (*Order, []Item, error) {
	if !ValidPaymentMethod(in.PaymentMethod) {
		return nil, nil, ErrInvalidPayment
	}
	if in.DiscountPct.IsNegative() || in.DiscountPct.GreaterThan(hundred) {
		return nil, nil, ErrInvalidDiscount
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// the order number is drawn outside the transaction; a collision aborts
	// the whole attempt and we start over with a fresh one
	for attempt := 0; attempt < 5; attempt++ {
		number, err := NewNumber()
		if err != nil {
			return nil, nil, err
		}
		o, items, err := p.checkoutOnce(ctx, in, number)
		if err != nil {
			if isNumberCollision(err) {
				continue
			}
			return nil, nil, err
		}
		return o, items, nil
	}
	return nil, nil, errors.New("could not allocate a unique order number")
}

func (p *Pipeline) checkoutOnce(ctx context.Context, in CheckoutInput, number string) (*Order, []Item, error) {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lines, err := readCartLines(ctx, tx, in.OwnerKey)
	if err != nil {
		return nil, nil, err
	}
	if len(lines) == 0 {
		return nil, nil, ErrEmptyCart
	}

	subtotal := decimal.Zero
	for _, ln := range lines {
		subtotal = subtotal.Add(ln.Total)
	}
	totals, err := ComputeTotals(subtotal, in.DiscountPct)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	o := &Order{
		ID:            uuid.NewString(),
		OwnerKey:      in.OwnerKey,
		Number:        number,
		Status:        StatusPending,
		PaymentMethod: in.PaymentMethod,
		Subtotal:      totals.Subtotal,
		DiscountPct:   in.DiscountPct,
		Discount:      totals.Discount,
		Total:         totals.Total,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders (id, owner_key, order_number, status, payment_method,
			subtotal, discount_percentage, discount_amount, total_amount, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)
	`, o.ID, o.OwnerKey, o.Number, o.Status, o.PaymentMethod,
		o.Subtotal, o.DiscountPct, o.Discount, o.Total, now); err != nil {
		return nil, nil, err
	}

	items := make([]Item, 0, len(lines))
	for _, ln := range lines {
		it := Item{
			ID:        uuid.NewString(),
			OrderID:   o.ID,
			ItemRef:   ln.ItemRef,
			Name:      ln.Name,
			Quantity:  ln.Quantity,
			UnitPrice: ln.UnitPrice,
			Total:     ln.Total,
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, item_ref, name, quantity, unit_price, total_price)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, it.ID, it.OrderID, it.ItemRef, it.Name, it.Quantity, it.UnitPrice, it.Total); err != nil {
			return nil, nil, err
		}
		items = append(items, it)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM cart_lines WHERE owner_key=$1
	`, in.OwnerKey); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return o, items, nil
}

type cartSnapshotLine struct {
	ItemRef   string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Total     decimal.Decimal
}

// readCartLines takes the cart snapshot inside the checkout transaction.
// Prices for catalog lines come from the catalog as of this transaction;
// custom lines carry their own. Lines whose product vanished are skipped,
// matching the cart read path.
func readCartLines(ctx context.Context, tx pgx.Tx, owner string) ([]cartSnapshotLine, error) {
	rows, err := tx.Query(ctx, `
		SELECT COALESCE(l.product_id::text, l.id::text),
		       COALESCE(CASE WHEN l.kind = 'catalog' THEN p.name ELSE l.name END, ''),
		       (CASE WHEN l.kind = 'catalog' THEN p.price ELSE l.unit_price END)::text,
		       l.quantity,
		       (l.kind = 'catalog' AND p.id IS NULL) AS dangling
		FROM cart_lines l
		LEFT JOIN products p ON p.id = l.product_id
		WHERE l.owner_key = $1
		ORDER BY l.created_at
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []cartSnapshotLine
	for rows.Next() {
		var (
			ln       cartSnapshotLine
			price    *string
			dangling bool
		)
		if err := rows.Scan(&ln.ItemRef, &ln.Name, &price, &ln.Quantity, &dangling); err != nil {
			return nil, err
		}
		if dangling || price == nil {
			continue
		}
		if ln.UnitPrice, err = decimal.NewFromString(*price); err != nil {
			return nil, err
		}
		ln.Total = ln.UnitPrice.Mul(decimal.NewFromInt(int64(ln.Quantity)))
		lines = append(lines, ln)
	}
	return lines, rows.Err()
}
