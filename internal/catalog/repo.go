// Package catalog provides read-only product lookups. Product and category
// management lives in a separate admin surface; this service only resolves
// references while reading carts and converting them into orders.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("product not found")
)

type Query struct {
	CategoryID string
	Limit      int
	Offset     int
}

// Resolver is the lookup capability consumed by the cart and order packages.
type Resolver interface {
	Resolve(ctx context.Context, id string) (*Resolved, error)
}

type Repository interface {
	Resolver
	GetByID(ctx context.Context, id string) (*Product, error)
	ListAvailable(ctx context.Context, q Query) ([]Product, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

// Resolve returns the id, name and current price of an available product.
// Unavailable and unknown products both come back as ErrNotFound.
func (r *PGRepo) Resolve(ctx context.Context, id string) (*Resolved, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		res   Resolved
		price string
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, name, price::text
		FROM products WHERE id=$1 AND is_available
	`, id).Scan(&res.ID, &res.Name, &price)
	if err != nil {
		return nil, ErrNotFound
	}
	res.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		p     Product
		price string
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, name, description, price::text, image_url, COALESCE(category_id::text,''), is_available, created_at, updated_at
		FROM products WHERE id=$1
	`, id).Scan(&p.ID, &p.Name, &p.Description, &price, &p.ImageURL, &p.CategoryID, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, ErrNotFound
	}
	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGRepo) ListAvailable(ctx context.Context, q Query) ([]Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, name, description, price::text, image_url, COALESCE(category_id::text,''), is_available, created_at, updated_at
		FROM products
		WHERE is_available AND ($1 = '' OR category_id::text = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, q.CategoryID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var (
			p     Product
			price string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &price, &p.ImageURL, &p.CategoryID, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
