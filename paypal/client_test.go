// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/paypal-examples/docs-examples/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Path   string
	Header http.Header
	Body   map[string]any
}

// fakePayPal serves the token endpoint and records every API call. The
// response for API calls is taken from status/body.
type fakePayPal struct {
	mu         sync.Mutex
	requests   []recordedRequest
	tokenCalls int64
	status     int
	body       string
}

func (f *fakePayPal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path == "/v1/oauth2/token" {
		n := atomic.AddInt64(&f.tokenCalls, 1)
		fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"Bearer","expires_in":3600}`, n)
		return
	}

	rec := recordedRequest{Path: r.URL.EscapedPath(), Header: r.Header.Clone()}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &rec.Body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	status, body := f.status, f.body
	f.mu.Unlock()

	w.Header().Set("Paypal-Debug-Id", "debug-1")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func (f *fakePayPal) last(t *testing.T) recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, fake *fakePayPal, mutate func(cfg *config.Config), cache TokenCache) *Client {
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	cfg.Checkout.Prefer = "return=minimal"
	cfg.Checkout.ReturnURL = "https://example.com/returnUrl"
	cfg.Checkout.CancelURL = "https://example.com/cancelUrl"
	if mutate != nil {
		mutate(cfg)
	}

	p, err := NewTokenProvider(cfg, cache)
	require.NoError(t, err)
	return NewClient(cfg, p)
}

func TestClientCreateOrder(t *testing.T) {
	fake := &fakePayPal{status: http.StatusCreated, body: `{"id":"ORDER-1","status":"CREATED"}`}
	client := newTestClient(t, fake, nil, nil)

	order := NewOrderRequest("CAPTURE", "USD", "100.00", "", "")
	resp, err := client.CreateOrder(WithRequestID(context.Background(), "req-1"), order)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"id":"ORDER-1","status":"CREATED"}`, string(resp.Body))
	assert.Equal(t, "debug-1", resp.DebugID)
	assert.True(t, resp.OK())

	req := fake.last(t)
	assert.Equal(t, "/v2/checkout/orders", req.Path)
	assert.Equal(t, "Bearer token-1", req.Header.Get("Authorization"))
	assert.Equal(t, "req-1", req.Header.Get("PayPal-Request-Id"))
	assert.Equal(t, "return=minimal", req.Header.Get("Prefer"))
	assert.Empty(t, req.Header.Get("PayPal-Auth-Assertion"))
	assert.Empty(t, req.Header.Get("PayPal-Partner-Attribution-Id"))

	assert.Equal(t, "CAPTURE", req.Body["intent"])
	units := req.Body["purchase_units"].([]any)
	require.Len(t, units, 1)
	amount := units[0].(map[string]any)["amount"].(map[string]any)
	assert.Equal(t, "USD", amount["currency_code"])
	assert.Equal(t, "100.00", amount["value"])
	assert.NotContains(t, units[0], "payee")
	assert.NotContains(t, req.Body, "payment_source")
}

func TestClientPartnerHeaders(t *testing.T) {
	fake := &fakePayPal{status: http.StatusCreated, body: `{"id":"ORDER-2"}`}
	client := newTestClient(t, fake, func(cfg *config.Config) {
		cfg.PayPal.SellerPayerID = "SELLER-1"
		cfg.PayPal.BNCode = "BN-1"
	}, nil)

	order := NewOrderRequest("AUTHORIZE", "USD", "100", "SELLER-1", "paypal")
	_, err := client.CreateOrder(context.Background(), order)
	require.NoError(t, err)

	req := fake.last(t)
	want, err := BuildAuthAssertion("client123", "SELLER-1")
	require.NoError(t, err)
	assert.Equal(t, want, req.Header.Get("PayPal-Auth-Assertion"))
	assert.Equal(t, "BN-1", req.Header.Get("PayPal-Partner-Attribution-Id"))
	assert.NotEmpty(t, req.Header.Get("PayPal-Request-Id"), "a request id is generated when none is given")

	units := req.Body["purchase_units"].([]any)
	payee := units[0].(map[string]any)["payee"].(map[string]any)
	assert.Equal(t, "SELLER-1", payee["merchant_id"])
	assert.Contains(t, req.Body["payment_source"], "paypal")

	t.Run("VaultCallsSkipPartnerHeaders", func(t *testing.T) {
		_, err := client.CreatePaymentToken(context.Background(), "SETUP-1")
		require.NoError(t, err)

		req := fake.last(t)
		assert.Empty(t, req.Header.Get("PayPal-Auth-Assertion"))
		assert.Empty(t, req.Header.Get("Prefer"))
	})
}

func TestClientOperationPaths(t *testing.T) {
	fake := &fakePayPal{status: http.StatusOK, body: `{"id":"X"}`}
	client := newTestClient(t, fake, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() (*Response, error)
		path string
	}{
		{"CaptureOrder", func() (*Response, error) { return client.CaptureOrder(ctx, "ORDER-1") }, "/v2/checkout/orders/ORDER-1/capture"},
		{"AuthorizeOrder", func() (*Response, error) { return client.AuthorizeOrder(ctx, "ORDER-1") }, "/v2/checkout/orders/ORDER-1/authorize"},
		{"CaptureAuthorization", func() (*Response, error) { return client.CaptureAuthorization(ctx, "AUTH-1") }, "/v2/payments/authorizations/AUTH-1/capture"},
		{"RefundCapture", func() (*Response, error) { return client.RefundCapture(ctx, "CAP-1") }, "/v2/payments/captures/CAP-1/refund"},
		{"CreateSetupToken", func() (*Response, error) { return client.CreateSetupToken(ctx, "card") }, "/v3/vault/setup-tokens"},
		{"CreatePaymentToken", func() (*Response, error) { return client.CreatePaymentToken(ctx, "SETUP-1") }, "/v3/vault/payment-tokens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.call()
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.path, fake.last(t).Path)
		})
	}

	t.Run("CaptureAuthorizationIsNotFinal", func(t *testing.T) {
		_, err := client.CaptureAuthorization(ctx, "AUTH-2")
		require.NoError(t, err)
		assert.Equal(t, false, fake.last(t).Body["final_capture"])
	})

	t.Run("PaymentTokenBody", func(t *testing.T) {
		_, err := client.CreatePaymentToken(ctx, "SETUP-9")
		require.NoError(t, err)

		source := fake.last(t).Body["payment_source"].(map[string]any)
		token := source["token"].(map[string]any)
		assert.Equal(t, "SETUP-9", token["id"])
		assert.Equal(t, "SETUP_TOKEN", token["type"])
	})

	t.Run("PayPalSetupTokenHasExperienceContext", func(t *testing.T) {
		_, err := client.CreateSetupToken(ctx, "paypal")
		require.NoError(t, err)

		source := fake.last(t).Body["payment_source"].(map[string]any)
		paypal := source["paypal"].(map[string]any)
		assert.Equal(t, "MERCHANT", paypal["usage_type"])
		experience := paypal["experience_context"].(map[string]any)
		assert.Equal(t, "https://example.com/returnUrl", experience["return_url"])
	})

	t.Run("PathIsEscaped", func(t *testing.T) {
		_, err := client.CaptureOrder(ctx, "a/b")
		require.NoError(t, err)
		assert.Equal(t, "/v2/checkout/orders/a%2Fb/capture", fake.last(t).Path)
	})
}

func TestClientEmptyIdentifiers(t *testing.T) {
	fake := &fakePayPal{status: http.StatusOK, body: `{}`}
	client := newTestClient(t, fake, nil, nil)
	ctx := context.Background()

	calls := map[string]func() (*Response, error){
		"order_id":         func() (*Response, error) { return client.CaptureOrder(ctx, "") },
		"authorization_id": func() (*Response, error) { return client.CaptureAuthorization(ctx, "") },
		"capture_id":       func() (*Response, error) { return client.RefundCapture(ctx, "") },
		"payment_source":   func() (*Response, error) { return client.CreateSetupToken(ctx, "") },
		"setup_token_id":   func() (*Response, error) { return client.CreatePaymentToken(ctx, "") },
	}
	for name, call := range calls {
		_, err := call()
		var argErr *InvalidArgumentError
		if assert.ErrorAs(t, err, &argErr, name) {
			assert.Equal(t, name, argErr.Name)
		}
	}
	assert.Equal(t, int64(0), atomic.LoadInt64(&fake.tokenCalls))
}

func TestClientRelaysUpstreamErrors(t *testing.T) {
	fake := &fakePayPal{status: http.StatusUnprocessableEntity, body: `{"name":"UNPROCESSABLE_ENTITY","details":[{"issue":"ORDER_NOT_APPROVED"}]}`}
	client := newTestClient(t, fake, nil, nil)

	resp, err := client.CaptureOrder(context.Background(), "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.False(t, resp.OK())
	assert.Contains(t, string(resp.Body), "ORDER_NOT_APPROVED")
}

func TestClientTokenFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"invalid_client"}`)
			return
		}
		t.Errorf("unexpected API call to %s", r.URL.Path)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	p, err := NewTokenProvider(cfg, nil)
	require.NoError(t, err)
	client := NewClient(cfg, p)

	_, err = client.CaptureOrder(context.Background(), "ORDER-1")
	var authErr *UpstreamAuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Body, "invalid_client")
}

func TestClientUnauthorizedInvalidatesCache(t *testing.T) {
	fake := &fakePayPal{status: http.StatusUnauthorized, body: `{"name":"INVALID_TOKEN"}`}
	client := newTestClient(t, fake, nil, NewMemoryTokenCache())
	ctx := context.Background()

	_, err := client.CaptureOrder(ctx, "ORDER-1")
	require.NoError(t, err)
	_, err = client.CaptureOrder(ctx, "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), atomic.LoadInt64(&fake.tokenCalls))

	fake.mu.Lock()
	fake.status = http.StatusOK
	fake.mu.Unlock()

	_, err = client.CaptureOrder(ctx, "ORDER-1")
	require.NoError(t, err)
	_, err = client.CaptureOrder(ctx, "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), atomic.LoadInt64(&fake.tokenCalls), "a good token stays cached")
	assert.Equal(t, "Bearer token-3", fake.last(t).Header.Get("Authorization"))
}

func TestGenerateClientToken(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		fake := &fakePayPal{status: http.StatusOK, body: `{"client_token":"ct-123","expires_in":3600}`}
		client := newTestClient(t, fake, nil, nil)

		token, err := client.GenerateClientToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ct-123", token)
		assert.Equal(t, "/v1/identity/generate-token", fake.last(t).Path)
		assert.Equal(t, "en_US", fake.last(t).Header.Get("Accept-Language"))
	})

	t.Run("UpstreamFailure", func(t *testing.T) {
		fake := &fakePayPal{status: http.StatusInternalServerError, body: `{"name":"INTERNAL_SERVER_ERROR"}`}
		client := newTestClient(t, fake, nil, nil)

		_, err := client.GenerateClientToken(context.Background())
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	})
}
