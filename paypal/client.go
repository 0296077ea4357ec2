// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paypal-examples/docs-examples/config"
	"github.com/paypal-examples/docs-examples/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/oauth2"
)

// Client issues the checkout calls of the Orders, Payments, Vault and
// Identity APIs. Every call is authenticated through the TokenProvider.
type Client struct {
	provider      *TokenProvider
	baseURL       string
	transport     http.RoundTripper
	timeout       time.Duration
	sellerPayerID string
	bnCode        string
	prefer        string
	returnURL     string
	cancelURL     string
}

func NewClient(cfg *config.Config, provider *TokenProvider) *Client {
	return &Client{
		provider:      provider,
		baseURL:       strings.TrimRight(cfg.PayPal.BaseURL, "/"),
		transport:     http.DefaultTransport,
		timeout:       cfg.Timeout(),
		sellerPayerID: cfg.PayPal.SellerPayerID,
		bnCode:        cfg.PayPal.BNCode,
		prefer:        cfg.Checkout.Prefer,
		returnURL:     cfg.Checkout.ReturnURL,
		cancelURL:     cfg.Checkout.CancelURL,
	}
}

type requestIDKey struct{}

// WithRequestID makes id the PayPal-Request-Id of calls made with ctx.
// Without one each call gets a fresh UUID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id attached by WithRequestID, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// CreateOrder starts a transaction.
func (c *Client) CreateOrder(ctx context.Context, order OrderRequest) (*Response, error) {
	return c.do(ctx, "create_order", "/v2/checkout/orders", order, true)
}

// CaptureOrder captures payment for an approved order.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Response, error) {
	if orderID == "" {
		return nil, &InvalidArgumentError{Name: "order_id"}
	}
	return c.do(ctx, "capture_order", "/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", nil, true)
}

// AuthorizeOrder authorizes payment for an approved order.
func (c *Client) AuthorizeOrder(ctx context.Context, orderID string) (*Response, error) {
	if orderID == "" {
		return nil, &InvalidArgumentError{Name: "order_id"}
	}
	return c.do(ctx, "authorize_order", "/v2/checkout/orders/"+url.PathEscape(orderID)+"/authorize", nil, true)
}

// CaptureAuthorization captures an authorized payment. It is never the final capture.
func (c *Client) CaptureAuthorization(ctx context.Context, authorizationID string) (*Response, error) {
	if authorizationID == "" {
		return nil, &InvalidArgumentError{Name: "authorization_id"}
	}
	payload := map[string]bool{"final_capture": false}
	return c.do(ctx, "capture_authorization", "/v2/payments/authorizations/"+url.PathEscape(authorizationID)+"/capture", payload, true)
}

// RefundCapture refunds a captured payment in full.
func (c *Client) RefundCapture(ctx context.Context, captureID string) (*Response, error) {
	if captureID == "" {
		return nil, &InvalidArgumentError{Name: "capture_id"}
	}
	return c.do(ctx, "refund_capture", "/v2/payments/captures/"+url.PathEscape(captureID)+"/refund", nil, true)
}

// CreateSetupToken starts vaulting a payment method of the given source
// ("card", "paypal", ...).
func (c *Client) CreateSetupToken(ctx context.Context, paymentSource string) (*Response, error) {
	if paymentSource == "" {
		return nil, &InvalidArgumentError{Name: "payment_source"}
	}

	source := map[string]any{}
	if paymentSource == "paypal" {
		source["usage_type"] = "MERCHANT"
		source["experience_context"] = map[string]string{
			"return_url": c.returnURL,
			"cancel_url": c.cancelURL,
		}
	}
	payload := map[string]any{
		"payment_source": map[string]any{paymentSource: source},
	}
	return c.do(ctx, "create_setup_token", "/v3/vault/setup-tokens", payload, false)
}

// CreatePaymentToken exchanges an approved setup token for a vaulted payment token.
func (c *Client) CreatePaymentToken(ctx context.Context, setupTokenID string) (*Response, error) {
	if setupTokenID == "" {
		return nil, &InvalidArgumentError{Name: "setup_token_id"}
	}
	payload := map[string]any{
		"payment_source": map[string]any{
			"token": map[string]string{"id": setupTokenID, "type": "SETUP_TOKEN"},
		},
	}
	return c.do(ctx, "create_payment_token", "/v3/vault/payment-tokens", payload, false)
}

// GenerateClientToken returns a client token for the JS SDK's card fields.
func (c *Client) GenerateClientToken(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, "generate_client_token", "/v1/identity/generate-token", nil, false)
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", &APIError{Operation: "generate_client_token", StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	var out struct {
		ClientToken string `json:"client_token"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil || out.ClientToken == "" {
		return "", &APIError{Operation: "generate_client_token", StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	return out.ClientToken, nil
}

// do POSTs payload to path and returns the upstream response whatever its
// status. partner adds the auth assertion and attribution headers when a
// seller is configured.
func (c *Client) do(ctx context.Context, operation, path string, payload any, partner bool) (*Response, error) {
	timer := prometheus.NewTimer(metrics.UpstreamDuration.WithLabelValues(operation))
	defer timer.ObserveDuration()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("paypal: failed to encode %s payload: %w", operation, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("paypal: failed to build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en_US")

	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("PayPal-Request-Id", requestID)

	if partner {
		if c.prefer != "" {
			req.Header.Set("Prefer", c.prefer)
		}
		if c.sellerPayerID != "" {
			assertion, err := c.provider.GetAuthAssertion(c.sellerPayerID)
			if err != nil {
				return nil, err
			}
			req.Header.Set("PayPal-Auth-Assertion", assertion)
		}
		if c.bnCode != "" {
			req.Header.Set("PayPal-Partner-Attribution-Id", c.bnCode)
		}
	}

	httpClient := &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: c.provider.TokenSource(ctx),
			Base:   c.transport,
		},
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(operation, "error").Inc()
		return nil, classify(operation, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(operation, "error").Inc()
		return nil, &TransportError{Op: operation, Err: err}
	}

	metrics.UpstreamRequests.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode == http.StatusUnauthorized {
		c.provider.InvalidateToken(ctx)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       json.RawMessage(data),
		DebugID:    resp.Header.Get("Paypal-Debug-Id"),
	}, nil
}

// classify surfaces token errors raised inside the oauth2 transport as-is
// and treats anything else as a transport failure.
func classify(operation string, err error) error {
	var cfgErr *ConfigurationError
	var authErr *UpstreamAuthError
	var transportErr *TransportError
	switch {
	case errors.As(err, &cfgErr):
		return cfgErr
	case errors.As(err, &authErr):
		return authErr
	case errors.As(err, &transportErr):
		return transportErr
	}
	return &TransportError{Op: operation, Err: err}
}
