package cart

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bitkiosk/pos/internal/catalog"
)

// PGStore keeps cart lines in the cart_lines table. One row per
// (owner, product) for catalog lines; custom lines get a row each, with the
// line id doubling as the synthetic item ref.
type PGStore struct {
	db      *pgxpool.Pool
	resolve catalog.Resolver
}

func NewPGStore(db *pgxpool.Pool, resolve catalog.Resolver) *PGStore {
	return &PGStore{db: db, resolve: resolve}
}

func (s *PGStore) Get(ctx context.Context, owner string) ([]Line, decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT l.id, l.kind,
		       COALESCE(l.product_id::text, l.id::text),
		       COALESCE(CASE WHEN l.kind = 'catalog' THEN p.name ELSE l.name END, ''),
		       COALESCE(l.description, ''),
		       (CASE WHEN l.kind = 'catalog' THEN p.price ELSE l.unit_price END)::text,
		       l.quantity,
		       (l.kind = 'catalog' AND p.id IS NULL) AS dangling
		FROM cart_lines l
		LEFT JOIN products p ON p.id = l.product_id
		WHERE l.owner_key = $1
		ORDER BY l.created_at
	`, owner)
	if err != nil {
		return nil, decimal.Zero, err
	}
	defer rows.Close()

	var (
		lines    []Line
		subtotal = decimal.Zero
	)
	for rows.Next() {
		var (
			ln       Line
			price    *string
			dangling bool
		)
		if err := rows.Scan(&ln.ID, &ln.Kind, &ln.ItemRef, &ln.Name, &ln.Description, &price, &ln.Quantity, &dangling); err != nil {
			return nil, decimal.Zero, err
		}
		if dangling || price == nil {
			// product deleted from the catalog after it went into the cart
			continue
		}
		if ln.UnitPrice, err = decimal.NewFromString(*price); err != nil {
			return nil, decimal.Zero, err
		}
		ln.OwnerKey = owner
		ln.TotalPrice = ln.UnitPrice.Mul(decimal.NewFromInt(int64(ln.Quantity)))
		subtotal = subtotal.Add(ln.TotalPrice)
		lines = append(lines, ln)
	}
	return lines, subtotal, rows.Err()
}

func (s *PGStore) AddItem(ctx context.Context, owner, productID string, qty int) (*Line, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	res, err := s.resolve.Resolve(ctx, productID)
	if err != nil {
		return nil, ErrItemNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		id    string
		total int
	)
	err = s.db.QueryRow(ctx, `
		INSERT INTO cart_lines (id, owner_key, kind, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, 'catalog', $3, $4, NOW(), NOW())
		ON CONFLICT (owner_key, product_id) WHERE kind = 'catalog'
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING id, quantity
	`, uuid.NewString(), owner, res.ID, qty).Scan(&id, &total)
	if err != nil {
		return nil, err
	}
	ln := &Line{
		ID:        id,
		OwnerKey:  owner,
		Kind:      KindCatalog,
		ItemRef:   res.ID,
		Name:      res.Name,
		UnitPrice: res.Price,
		Quantity:  total,
	}
	ln.TotalPrice = ln.UnitPrice.Mul(decimal.NewFromInt(int64(total)))
	return ln, nil
}

func (s *PGStore) AddCustom(ctx context.Context, owner, name, description string, price decimal.Decimal) (*Line, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if !price.IsPositive() {
		return nil, ErrInvalidPrice
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	id := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO cart_lines (id, owner_key, kind, name, description, unit_price, quantity, created_at, updated_at)
		VALUES ($1, $2, 'custom', $3, $4, $5, 1, NOW(), NOW())
	`, id, owner, name, description, price)
	if err != nil {
		return nil, err
	}
	return &Line{
		ID:          id,
		OwnerKey:    owner,
		Kind:        KindCustom,
		ItemRef:     id,
		Name:        name,
		Description: description,
		UnitPrice:   price,
		Quantity:    1,
		TotalPrice:  price,
	}, nil
}

func (s *PGStore) SetQuantity(ctx context.Context, owner, lineID string, qty int) (*Line, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if qty <= 0 {
		tag, err := s.db.Exec(ctx, `
			DELETE FROM cart_lines WHERE id = $1 AND owner_key = $2
		`, lineID, owner)
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrLineNotFound
		}
		return nil, nil
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE cart_lines SET quantity = $3, updated_at = NOW()
		WHERE id = $1 AND owner_key = $2
	`, lineID, owner, qty)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrLineNotFound
	}
	return s.getLine(ctx, owner, lineID)
}

func (s *PGStore) Remove(ctx context.Context, owner, lineID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.db.Exec(ctx, `
		DELETE FROM cart_lines WHERE id = $1 AND owner_key = $2
	`, lineID, owner)
	return err
}

func (s *PGStore) Clear(ctx context.Context, owner string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.db.Exec(ctx, `
		DELETE FROM cart_lines WHERE owner_key = $1
	`, owner)
	return err
}

func (s *PGStore) getLine(ctx context.Context, owner, lineID string) (*Line, error) {
	var (
		ln    Line
		price *string
	)
	err := s.db.QueryRow(ctx, `
		SELECT l.id, l.kind,
		       COALESCE(l.product_id::text, l.id::text),
		       COALESCE(CASE WHEN l.kind = 'catalog' THEN p.name ELSE l.name END, ''),
		       COALESCE(l.description, ''),
		       (CASE WHEN l.kind = 'catalog' THEN p.price ELSE l.unit_price END)::text,
		       l.quantity
		FROM cart_lines l
		LEFT JOIN products p ON p.id = l.product_id
		WHERE l.id = $1 AND l.owner_key = $2
	`, lineID, owner).Scan(&ln.ID, &ln.Kind, &ln.ItemRef, &ln.Name, &ln.Description, &price, &ln.Quantity)
	if err != nil {
		return nil, ErrLineNotFound
	}
	if price != nil {
		if ln.UnitPrice, err = decimal.NewFromString(*price); err != nil {
			return nil, err
		}
	}
	ln.OwnerKey = owner
	ln.TotalPrice = ln.UnitPrice.Mul(decimal.NewFromInt(int64(ln.Quantity)))
	return &ln, nil
}
