package cart

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bitkiosk/pos/internal/catalog"
)

type stubResolver struct {
	products map[string]catalog.Resolved
}

func (r *stubResolver) Resolve(_ context.Context, id string) (*catalog.Resolved, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func newStubResolver() *stubResolver {
	return &stubResolver{products: map[string]catalog.Resolved{
		"p1": {ID: "p1", Name: "Americano", Price: decimal.RequireFromString("4.50")},
		"p2": {ID: "p2", Name: "Latte", Price: decimal.RequireFromString("5.00")},
	}}
}

func TestSessionStore_AddMergesQuantity(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(newStubResolver())

	_, err := s.AddItem(ctx, "sess-1", "p1", 2)
	require.NoError(t, err)
	ln, err := s.AddItem(ctx, "sess-1", "p1", 3)
	require.NoError(t, err)
	require.Equal(t, 5, ln.Quantity)

	lines, subtotal, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, "4.50", lines[0].UnitPrice.StringFixed(2))
	require.Equal(t, "22.50", subtotal.StringFixed(2))
}

func TestSessionStore_AddRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(newStubResolver())

	_, err := s.AddItem(ctx, "sess-1", "p1", 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = s.AddItem(ctx, "sess-1", "missing", 1)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestSessionStore_SetQuantityZeroDeletes(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(newStubResolver())

	ln, err := s.AddItem(ctx, "sess-1", "p1", 2)
	require.NoError(t, err)

	gone, err := s.SetQuantity(ctx, "sess-1", ln.ID, 0)
	require.NoError(t, err)
	require.Nil(t, gone)

	lines, subtotal, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Empty(t, lines)
	require.True(t, subtotal.IsZero())

	_, err = s.SetQuantity(ctx, "sess-1", ln.ID, 1)
	require.ErrorIs(t, err, ErrLineNotFound)
}

func TestSessionStore_RemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(newStubResolver())

	ln, err := s.AddItem(ctx, "sess-1", "p2", 1)
	require.NoError(t, err)
	require.NoError(t, s.Remove(ctx, "sess-1", ln.ID))
	require.NoError(t, s.Remove(ctx, "sess-1", ln.ID))
}

func TestSessionStore_ClearThenGetIsEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(newStubResolver())

	_, err := s.AddItem(ctx, "sess-1", "p1", 2)
	require.NoError(t, err)
	_, err = s.AddCustom(ctx, "sess-1", "Gift wrap", "", decimal.RequireFromString("1.00"))
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx, "sess-1"))
	lines, subtotal, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Empty(t, lines)
	require.True(t, subtotal.IsZero())
}

func TestSessionStore_GetSkipsStaleReferences(t *testing.T) {
	ctx := context.Background()
	resolver := newStubResolver()
	s := NewSessionStore(resolver)

	_, err := s.AddItem(ctx, "sess-1", "p1", 1)
	require.NoError(t, err)
	_, err = s.AddItem(ctx, "sess-1", "p2", 1)
	require.NoError(t, err)

	delete(resolver.products, "p1")

	lines, subtotal, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, "p2", lines[0].ItemRef)
	require.Equal(t, "5.00", subtotal.StringFixed(2))
}

func TestSessionStore_SetQuantityStaleLineUnchanged(t *testing.T) {
	ctx := context.Background()
	resolver := newStubResolver()
	s := NewSessionStore(resolver)

	ln, err := s.AddItem(ctx, "sess-1", "p1", 2)
	require.NoError(t, err)

	delete(resolver.products, "p1")

	_, err = s.SetQuantity(ctx, "sess-1", ln.ID, 7)
	require.ErrorIs(t, err, ErrLineNotFound)

	// the stored quantity must not have moved
	s.mu.Lock()
	require.Equal(t, 2, s.sessions["sess-1"].lines[0].quantity)
	s.mu.Unlock()
}

func TestSessionStore_CustomLineValidation(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(newStubResolver())

	_, err := s.AddCustom(ctx, "sess-1", "", "", decimal.RequireFromString("1.00"))
	require.ErrorIs(t, err, ErrNameRequired)

	_, err = s.AddCustom(ctx, "sess-1", "Thing", "", decimal.Zero)
	require.ErrorIs(t, err, ErrInvalidPrice)

	_, err = s.AddCustom(ctx, "sess-1", "Thing", "", decimal.RequireFromString("-2"))
	require.ErrorIs(t, err, ErrInvalidPrice)

	ln, err := s.AddCustom(ctx, "sess-1", "Thing", "one-off", decimal.RequireFromString("2.50"))
	require.NoError(t, err)
	require.Equal(t, KindCustom, ln.Kind)
	require.Equal(t, ln.ID, ln.ItemRef)
	require.Equal(t, 1, ln.Quantity)
}

func TestSessionStore_PruneIdle(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(newStubResolver())

	_, err := s.AddItem(ctx, "old", "p1", 1)
	require.NoError(t, err)
	s.mu.Lock()
	s.sessions["old"].lastUsed = time.Now().Add(-2 * time.Hour)
	s.mu.Unlock()

	_, err = s.AddItem(ctx, "fresh", "p2", 1)
	require.NoError(t, err)

	require.Equal(t, 1, s.PruneIdle(time.Hour))
	lines, _, err := s.Get(ctx, "fresh")
	require.NoError(t, err)
	require.Len(t, lines, 1)
}
