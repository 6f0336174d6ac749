package order

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository interface {
	GetByID(ctx context.Context, owner, id string) (*Order, []Item, error)
	ListByOwner(ctx context.Context, owner string, limit, offset int) ([]Order, error)
	UpdateStatus(ctx context.Context, owner, id, status string) error
	// MarkPaidByNumber moves a pending or processing order to completed when
	// settlement evidence arrives keyed by its order number.
	MarkPaidByNumber(ctx context.Context, number string) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const orderColumns = `id, owner_key, order_number, status, payment_method,
	subtotal::text, discount_percentage::text, discount_amount::text, total_amount::text,
	created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*Order, error) {
	var (
		o                              Order
		subtotal, pct, discount, total string
	)
	if err := row.Scan(&o.ID, &o.OwnerKey, &o.Number, &o.Status, &o.PaymentMethod,
		&subtotal, &pct, &discount, &total, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if o.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return nil, err
	}
	if o.DiscountPct, err = decimal.NewFromString(pct); err != nil {
		return nil, err
	}
	if o.Discount, err = decimal.NewFromString(discount); err != nil {
		return nil, err
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGRepo) GetByID(ctx context.Context, owner, id string) (*Order, []Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	o, err := scanOrder(r.db.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE id=$1 AND owner_key=$2
	`, id, owner))
	if err != nil {
		return nil, nil, ErrNotFound
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, item_ref, name, quantity, unit_price::text, total_price::text
		FROM order_items WHERE order_id=$1
	`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			it          Item
			unit, total string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ItemRef, &it.Name, &it.Quantity, &unit, &total); err != nil {
			return nil, nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(unit); err != nil {
			return nil, nil, err
		}
		if it.Total, err = decimal.NewFromString(total); err != nil {
			return nil, nil, err
		}
		items = append(items, it)
	}
	return o, items, rows.Err()
}

func (r *PGRepo) ListByOwner(ctx context.Context, owner string, limit, offset int) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE owner_key=$1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, owner, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdateStatus(ctx context.Context, owner, id, status string) error {
	if !ValidStatus(status) {
		return ErrBadTransition
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var current string
	if err := r.db.QueryRow(ctx, `
		SELECT status FROM orders WHERE id=$1 AND owner_key=$2
	`, id, owner).Scan(&current); err != nil {
		return ErrNotFound
	}
	if !canTransition(current, status) {
		return ErrBadTransition
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET status=$3, updated_at=NOW()
		WHERE id=$1 AND owner_key=$2 AND status=$4
	`, id, owner, status, current)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// lost a race with another transition
		return ErrBadTransition
	}
	return nil
}

func (r *PGRepo) MarkPaidByNumber(ctx context.Context, number string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET status=$2, updated_at=NOW()
		WHERE order_number=$1 AND status IN ($3, $4)
	`, number, StatusCompleted, StatusPending, StatusProcessing)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
