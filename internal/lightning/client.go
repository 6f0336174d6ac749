// Package lightning requests invoices for human-readable Lightning addresses
// via the LNURL-pay flow, so kiosk frontends never talk to wallet providers
// directly.
package lightning

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type ErrorKind string

const (
	// KindInvalidRequest: the address itself is malformed; no network call
	// was made.
	KindInvalidRequest ErrorKind = "invalid_request"
	// KindNetworkError: transport failure or non-success status from the
	// wallet provider.
	KindNetworkError ErrorKind = "network_error"
	// KindInvalidResponse: the provider answered with something that is not
	// a pay request, or without an invoice.
	KindInvalidResponse ErrorKind = "invalid_response"
	// KindInvalidAmount: the requested amount is outside the provider's
	// advertised sendable range.
	KindInvalidAmount ErrorKind = "invalid_amount"
	// KindWalletNotFound: the provider reports no such recipient.
	KindWalletNotFound ErrorKind = "wallet_not_found"
)

type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Message }

func errf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a lightning error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}

// DefaultTimeout bounds each of the two external calls.
const DefaultTimeout = 10 * time.Second

// Client is stateless; one instance serves any number of concurrent callers.
type Client struct {
	http *http.Client
	// scheme is https outside tests
	scheme string
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		scheme: "https",
	}
}

// payParams is the LNURL-pay metadata document.
type payParams struct {
	Callback    string `json:"callback"`
	MinSendable int64  `json:"minSendable"`
	MaxSendable int64  `json:"maxSendable"`
	Tag         string `json:"tag"`
	Status      string `json:"status"`
	Reason      string `json:"reason"`
}

type invoiceResponse struct {
	PR     string `json:"pr"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// RequestInvoice resolves a lightning address, validates the amount against
// the advertised bounds and asks the provider's callback for an invoice.
// Repeated calls may yield different invoices; no retries are attempted.
func (c *Client) RequestInvoice(ctx context.Context, address string, amountSat int64, memo string) (string, error) {
	local, domain, err := splitAddress(address)
	if err != nil {
		return "", err
	}
	if amountSat <= 0 {
		return "", errf(KindInvalidAmount, "amount must be greater than zero")
	}

	params, err := c.fetchPayParams(ctx, local, domain)
	if err != nil {
		return "", err
	}

	amountMsat := amountSat * 1000
	if amountMsat < params.MinSendable || amountMsat > params.MaxSendable {
		return "", errf(KindInvalidAmount, "amount %d sats is outside the allowed range %d-%d sats",
			amountSat, params.MinSendable/1000, params.MaxSendable/1000)
	}

	return c.fetchInvoice(ctx, params.Callback, amountMsat, memo)
}

func splitAddress(address string) (local, domain string, err error) {
	address = strings.TrimSpace(address)
	parts := strings.Split(address, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errf(KindInvalidRequest, "invalid lightning address %q", address)
	}
	return parts[0], parts[1], nil
}

func (c *Client) fetchPayParams(ctx context.Context, local, domain string) (*payParams, error) {
	u := fmt.Sprintf("%s://%s/.well-known/lnurlp/%s", c.scheme, domain, url.PathEscape(local))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errf(KindInvalidRequest, "build metadata request: %v", err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, errf(KindNetworkError, "wallet provider unreachable: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, errf(KindWalletNotFound, "no wallet found for %s@%s", local, domain)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, errf(KindNetworkError, "wallet provider returned %s", res.Status)
	}

	var params payParams
	if err := json.NewDecoder(res.Body).Decode(&params); err != nil {
		return nil, errf(KindInvalidResponse, "malformed metadata: %v", err)
	}
	if strings.EqualFold(params.Status, "ERROR") {
		if unknownRecipient(params.Reason) {
			return nil, errf(KindWalletNotFound, "no wallet found for %s@%s", local, domain)
		}
		return nil, errf(KindInvalidResponse, "wallet provider error: %s", params.Reason)
	}
	if params.Tag != "payRequest" {
		return nil, errf(KindInvalidResponse, "metadata is not a pay request")
	}
	return &params, nil
}

func unknownRecipient(reason string) bool {
	r := strings.ToLower(reason)
	return strings.Contains(r, "not found") ||
		strings.Contains(r, "unknown user") ||
		strings.Contains(r, "no user")
}

func (c *Client) fetchInvoice(ctx context.Context, callback string, amountMsat int64, memo string) (string, error) {
	u, err := url.Parse(callback)
	if err != nil {
		return "", errf(KindInvalidResponse, "bad callback url: %v", err)
	}
	q := u.Query()
	q.Set("amount", fmt.Sprintf("%d", amountMsat))
	if memo != "" {
		q.Set("comment", memo)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", errf(KindInvalidResponse, "build callback request: %v", err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return "", errf(KindNetworkError, "invoice callback unreachable: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", errf(KindNetworkError, "invoice callback returned %s", res.Status)
	}

	var inv invoiceResponse
	if err := json.NewDecoder(res.Body).Decode(&inv); err != nil {
		return "", errf(KindInvalidResponse, "malformed invoice response: %v", err)
	}
	if strings.EqualFold(inv.Status, "ERROR") {
		return "", errf(KindInvalidResponse, "invoice request rejected: %s", inv.Reason)
	}
	if inv.PR == "" {
		return "", errf(KindInvalidResponse, "invoice response carries no invoice")
	}
	return inv.PR, nil
}
