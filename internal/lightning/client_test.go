package lightning

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// walletServer fakes an LNURL-pay provider for the user "alice".
type walletServer struct {
	srv          *httptest.Server
	metadataHits int64
	callbackHits int64
	lastAmount   string
	lastComment  string

	minSendable int64
	maxSendable int64
	payParams   map[string]any // overrides the default metadata when set
	invoice     map[string]any // overrides the default callback body when set
}

func newWalletServer(t *testing.T) *walletServer {
	t.Helper()
	w := &walletServer{minSendable: 1000, maxSendable: 100_000_000}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/lnurlp/", func(rw http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&w.metadataHits, 1)
		user := strings.TrimPrefix(r.URL.Path, "/.well-known/lnurlp/")
		if user != "alice" {
			http.Error(rw, `{"status":"ERROR","reason":"user not found"}`, http.StatusNotFound)
			return
		}
		body := w.payParams
		if body == nil {
			body = map[string]any{
				"callback":    w.srv.URL + "/lnurlp/callback",
				"minSendable": w.minSendable,
				"maxSendable": w.maxSendable,
				"tag":         "payRequest",
			}
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(body)
	})
	mux.HandleFunc("/lnurlp/callback", func(rw http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&w.callbackHits, 1)
		w.lastAmount = r.URL.Query().Get("amount")
		w.lastComment = r.URL.Query().Get("comment")
		body := w.invoice
		if body == nil {
			body = map[string]any{"pr": "lnbc1fakeinvoice"}
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(body)
	})
	w.srv = httptest.NewServer(mux)
	t.Cleanup(w.srv.Close)
	return w
}

func (w *walletServer) domain() string {
	u, _ := url.Parse(w.srv.URL)
	return u.Host
}

func testClient() *Client {
	c := NewClient(2 * time.Second)
	c.scheme = "http"
	return c
}

func TestRequestInvoice_HappyPath(t *testing.T) {
	w := newWalletServer(t)
	c := testClient()

	inv, err := c.RequestInvoice(context.Background(), "alice@"+w.domain(), 100, "two coffees")
	require.NoError(t, err)
	require.Equal(t, "lnbc1fakeinvoice", inv)
	require.Equal(t, "100000", w.lastAmount) // sats converted to msats
	require.Equal(t, "two coffees", w.lastComment)
}

func TestRequestInvoice_MalformedAddressSkipsNetwork(t *testing.T) {
	w := newWalletServer(t)
	c := testClient()

	for _, addr := range []string{"bad-address", "a@b@c", "@domain.com", "user@", ""} {
		_, err := c.RequestInvoice(context.Background(), addr, 100, "")
		require.Error(t, err, addr)
		require.True(t, IsKind(err, KindInvalidRequest), "addr %q: %v", addr, err)
	}
	require.Zero(t, atomic.LoadInt64(&w.metadataHits))
}

func TestRequestInvoice_UnknownRecipient(t *testing.T) {
	w := newWalletServer(t)
	c := testClient()

	_, err := c.RequestInvoice(context.Background(), "bob@"+w.domain(), 100, "")
	require.True(t, IsKind(err, KindWalletNotFound), "got %v", err)
}

func TestRequestInvoice_ErrorReasonMapsToWalletNotFound(t *testing.T) {
	w := newWalletServer(t)
	w.payParams = map[string]any{"status": "ERROR", "reason": "Unknown user alice"}
	c := testClient()

	_, err := c.RequestInvoice(context.Background(), "alice@"+w.domain(), 100, "")
	require.True(t, IsKind(err, KindWalletNotFound), "got %v", err)
}

func TestRequestInvoice_MissingTag(t *testing.T) {
	w := newWalletServer(t)
	w.payParams = map[string]any{"callback": "https://x", "minSendable": 1, "maxSendable": 2}
	c := testClient()

	_, err := c.RequestInvoice(context.Background(), "alice@"+w.domain(), 100, "")
	require.True(t, IsKind(err, KindInvalidResponse), "got %v", err)
}

func TestRequestInvoice_AmountOutOfBounds(t *testing.T) {
	w := newWalletServer(t)
	w.minSendable = 10_000  // 10 sats
	w.maxSendable = 500_000 // 500 sats
	c := testClient()

	_, err := c.RequestInvoice(context.Background(), "alice@"+w.domain(), 5, "")
	require.True(t, IsKind(err, KindInvalidAmount), "got %v", err)
	require.Contains(t, err.Error(), "10-500")

	_, err = c.RequestInvoice(context.Background(), "alice@"+w.domain(), 501, "")
	require.True(t, IsKind(err, KindInvalidAmount), "got %v", err)

	// bounds were rejected before the callback step
	require.Zero(t, atomic.LoadInt64(&w.callbackHits))

	_, err = c.RequestInvoice(context.Background(), "alice@"+w.domain(), 500, "")
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt64(&w.callbackHits))
}

func TestRequestInvoice_CallbackWithoutInvoice(t *testing.T) {
	w := newWalletServer(t)
	w.invoice = map[string]any{"status": "OK"}
	c := testClient()

	_, err := c.RequestInvoice(context.Background(), "alice@"+w.domain(), 100, "")
	require.True(t, IsKind(err, KindInvalidResponse), "got %v", err)
}

func TestRequestInvoice_CallbackError(t *testing.T) {
	w := newWalletServer(t)
	w.invoice = map[string]any{"status": "ERROR", "reason": "route not found"}
	c := testClient()

	_, err := c.RequestInvoice(context.Background(), "alice@"+w.domain(), 100, "")
	require.True(t, IsKind(err, KindInvalidResponse), "got %v", err)
}

func TestRequestInvoice_ProviderDown(t *testing.T) {
	w := newWalletServer(t)
	domain := w.domain()
	w.srv.Close()
	c := testClient()

	_, err := c.RequestInvoice(context.Background(), "alice@"+domain, 100, "")
	require.True(t, IsKind(err, KindNetworkError), "got %v", err)
}

func TestRequestInvoice_NonPositiveAmount(t *testing.T) {
	w := newWalletServer(t)
	c := testClient()

	for _, amt := range []int64{0, -5} {
		_, err := c.RequestInvoice(context.Background(), fmt.Sprintf("alice@%s", w.domain()), amt, "")
		require.True(t, IsKind(err, KindInvalidAmount), "amount %d: %v", amt, err)
	}
}
