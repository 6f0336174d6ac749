package cart

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitkiosk/pos/internal/catalog"
)

// SessionStore holds anonymous carts in memory, one per session handle. A
// catalog line stores only the product reference and quantity, so reads see
// live prices; references that no longer resolve are skipped instead of
// failing the read. Restarting the process discards every session cart.
type SessionStore struct {
	mu       sync.Mutex
	resolve  catalog.Resolver
	sessions map[string]*sessionCart
}

type sessionCart struct {
	lines    []sessionLine
	lastUsed time.Time
}

type sessionLine struct {
	id          string
	kind        Kind
	productID   string
	name        string
	description string
	unitPrice   decimal.Decimal
	quantity    int
}

func NewSessionStore(resolve catalog.Resolver) *SessionStore {
	return &SessionStore{
		resolve:  resolve,
		sessions: make(map[string]*sessionCart),
	}
}

func (s *SessionStore) cart(owner string) *sessionCart {
	sc, ok := s.sessions[owner]
	if !ok {
		sc = &sessionCart{}
		s.sessions[owner] = sc
	}
	sc.lastUsed = time.Now()
	return sc
}

func (s *SessionStore) Get(ctx context.Context, owner string) ([]Line, decimal.Decimal, error) {
	s.mu.Lock()
	sc := s.cart(owner)
	snapshot := append([]sessionLine(nil), sc.lines...)
	s.mu.Unlock()

	var (
		lines    []Line
		subtotal = decimal.Zero
	)
	for _, sl := range snapshot {
		ln := Line{
			ID:          sl.id,
			OwnerKey:    owner,
			Kind:        sl.kind,
			ItemRef:     sl.id,
			Name:        sl.name,
			Description: sl.description,
			UnitPrice:   sl.unitPrice,
			Quantity:    sl.quantity,
		}
		if sl.kind == KindCatalog {
			res, err := s.resolve.Resolve(ctx, sl.productID)
			if err != nil {
				// stale reference, drop it from the view
				continue
			}
			ln.ItemRef = res.ID
			ln.Name = res.Name
			ln.UnitPrice = res.Price
		}
		ln.TotalPrice = ln.UnitPrice.Mul(decimal.NewFromInt(int64(ln.Quantity)))
		subtotal = subtotal.Add(ln.TotalPrice)
		lines = append(lines, ln)
	}
	return lines, subtotal, nil
}

func (s *SessionStore) AddItem(ctx context.Context, owner, productID string, qty int) (*Line, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	res, err := s.resolve.Resolve(ctx, productID)
	if err != nil {
		return nil, ErrItemNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.cart(owner)
	for i := range sc.lines {
		if sc.lines[i].kind == KindCatalog && sc.lines[i].productID == res.ID {
			sc.lines[i].quantity += qty
			return lineFromSession(owner, sc.lines[i], res), nil
		}
	}
	sl := sessionLine{
		id:        uuid.NewString(),
		kind:      KindCatalog,
		productID: res.ID,
		quantity:  qty,
	}
	sc.lines = append(sc.lines, sl)
	return lineFromSession(owner, sl, res), nil
}

func (s *SessionStore) AddCustom(ctx context.Context, owner, name, description string, price decimal.Decimal) (*Line, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if !price.IsPositive() {
		return nil, ErrInvalidPrice
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.cart(owner)
	sl := sessionLine{
		id:          uuid.NewString(),
		kind:        KindCustom,
		name:        name,
		description: description,
		unitPrice:   price,
		quantity:    1,
	}
	sc.lines = append(sc.lines, sl)
	return lineFromSession(owner, sl, nil), nil
}

func (s *SessionStore) SetQuantity(ctx context.Context, owner, lineID string, qty int) (*Line, error) {
	s.mu.Lock()
	sc := s.cart(owner)
	idx := -1
	for i := range sc.lines {
		if sc.lines[i].id == lineID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil, ErrLineNotFound
	}
	if qty <= 0 {
		sc.lines = append(sc.lines[:idx], sc.lines[idx+1:]...)
		s.mu.Unlock()
		return nil, nil
	}
	sl := sc.lines[idx]
	s.mu.Unlock()

	// Resolve before mutating: a stale catalog reference must not change the
	// stored quantity that Get is already hiding.
	var res *catalog.Resolved
	if sl.kind == KindCatalog {
		var err error
		if res, err = s.resolve.Resolve(ctx, sl.productID); err != nil {
			return nil, ErrLineNotFound
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range sc.lines {
		if sc.lines[i].id == lineID {
			sc.lines[i].quantity = qty
			return lineFromSession(owner, sc.lines[i], res), nil
		}
	}
	// removed while the lock was released
	return nil, ErrLineNotFound
}

func (s *SessionStore) Remove(ctx context.Context, owner, lineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.cart(owner)
	for i := range sc.lines {
		if sc.lines[i].id == lineID {
			sc.lines = append(sc.lines[:i], sc.lines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, owner)
	return nil
}

// PruneIdle drops session carts untouched for longer than maxIdle and
// returns how many were removed. Anonymous sessions are never closed
// explicitly, so the server runs this on a timer to bound memory.
func (s *SessionStore) PruneIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sc := range s.sessions {
		if sc.lastUsed.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func lineFromSession(owner string, sl sessionLine, res *catalog.Resolved) *Line {
	ln := &Line{
		ID:          sl.id,
		OwnerKey:    owner,
		Kind:        sl.kind,
		ItemRef:     sl.id,
		Name:        sl.name,
		Description: sl.description,
		UnitPrice:   sl.unitPrice,
		Quantity:    sl.quantity,
	}
	if res != nil {
		ln.ItemRef = res.ID
		ln.Name = res.Name
		ln.UnitPrice = res.Price
	}
	ln.TotalPrice = ln.UnitPrice.Mul(decimal.NewFromInt(int64(ln.Quantity)))
	return ln
}
