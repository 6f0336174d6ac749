package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/bitkiosk/pos/internal/cart"
	"github.com/bitkiosk/pos/internal/catalog"
	"github.com/bitkiosk/pos/internal/order"
	"github.com/bitkiosk/pos/internal/payment"
)

//
// ---------- STUBS & FAKES ----------
//

// stubCatalog implements catalog.Repository in memory.
type stubCatalog struct {
	products map[string]catalog.Product
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{products: map[string]catalog.Product{
		"p1": {ID: "p1", Name: "Americano", Price: decimal.RequireFromString("4.50"), IsAvailable: true},
		"p2": {ID: "p2", Name: "Latte", Price: decimal.RequireFromString("5.00"), IsAvailable: true},
		"p3": {ID: "p3", Name: "Off menu special", Price: decimal.RequireFromString("9.00"), IsAvailable: false},
	}}
}

func (s *stubCatalog) Resolve(_ context.Context, id string) (*catalog.Resolved, error) {
	p, ok := s.products[id]
	if !ok || !p.IsAvailable {
		return nil, catalog.ErrNotFound
	}
	return &catalog.Resolved{ID: p.ID, Name: p.Name, Price: p.Price}, nil
}

func (s *stubCatalog) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (s *stubCatalog) ListAvailable(_ context.Context, _ catalog.Query) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range s.products {
		if p.IsAvailable {
			out = append(out, p)
		}
	}
	return out, nil
}

// stubOrders implements order.Repository in memory.
type stubOrders struct {
	orders     map[string]*order.Order
	items      map[string][]order.Item
	markedPaid []string
}

func newStubOrders() *stubOrders {
	return &stubOrders{orders: map[string]*order.Order{}, items: map[string][]order.Item{}}
}

func (s *stubOrders) GetByID(_ context.Context, owner, id string) (*order.Order, []order.Item, error) {
	o, ok := s.orders[id]
	if !ok || o.OwnerKey != owner {
		return nil, nil, order.ErrNotFound
	}
	return o, s.items[id], nil
}

func (s *stubOrders) ListByOwner(_ context.Context, owner string, _, _ int) ([]order.Order, error) {
	var out []order.Order
	for _, o := range s.orders {
		if o.OwnerKey == owner {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, owner, id, status string) error {
	o, ok := s.orders[id]
	if !ok || o.OwnerKey != owner {
		return order.ErrNotFound
	}
	if o.Status == order.StatusCompleted || o.Status == order.StatusCancelled || !order.ValidStatus(status) {
		return order.ErrBadTransition
	}
	o.Status = status
	return nil
}

func (s *stubOrders) MarkPaidByNumber(_ context.Context, number string) error {
	for _, o := range s.orders {
		if o.Number == number && o.Status == order.StatusPending {
			o.Status = order.StatusCompleted
			s.markedPaid = append(s.markedPaid, number)
			return nil
		}
	}
	return order.ErrNotFound
}

// stubConverter records the checkout input and returns a canned result.
type stubConverter struct {
	lastInput order.CheckoutInput
	order     *order.Order
	items     []order.Item
	err       error
}

func (s *stubConverter) Checkout(_ context.Context, in order.CheckoutInput) (*order.Order, []order.Item, error) {
	s.lastInput = in
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.order, s.items, nil
}

// stubInvoicer returns a fixed invoice or error.
type stubInvoicer struct {
	lastAddress string
	lastAmount  int64
	invoice     string
	err         error
}

func (s *stubInvoicer) RequestInvoice(_ context.Context, address string, amountSat int64, _ string) (string, error) {
	s.lastAddress = address
	s.lastAmount = amountSat
	if s.err != nil {
		return "", s.err
	}
	return s.invoice, nil
}

type testEnv struct {
	router   *gin.Engine
	catalog  *stubCatalog
	orders   *stubOrders
	convert  *stubConverter
	invoices *stubInvoicer
	payments *payment.Store
	carts    *cart.SessionStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat := newStubCatalog()
	env := &testEnv{
		catalog:  cat,
		orders:   newStubOrders(),
		convert:  &stubConverter{},
		invoices: &stubInvoicer{invoice: "lnbc1stub"},
		payments: payment.NewStore(payment.DefaultTTL),
		carts:    cart.NewSessionStore(cat),
	}
	t.Cleanup(env.payments.Close)

	env.router = newRouter(deps{
		catalog: cat,
		// both strategies are exercised through the same interface; the
		// in-memory implementation stands in for the durable one here
		userCarts:   cart.NewSessionStore(cat),
		sessCarts:   env.carts,
		checkout:    env.convert,
		orders:      env.orders,
		payments:    env.payments,
		invoices:    env.invoices,
		defaultMint: "https://mint.test",
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, decoded
}

func asSession(id string) map[string]string { return map[string]string{"X-Session-ID": id} }
func asOwner(key string) map[string]string  { return map[string]string{"X-Owner-Key": key} }

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d; body %s", w.Code, want, w.Body.String())
	}
}

func itemCount(resp map[string]any) int {
	items, _ := resp["items"].([]any)
	return len(items)
}

func raw(v any) string { return fmt.Sprintf("%v", v) }
