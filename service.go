// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paypal-examples/docs-examples/cache"
	"github.com/paypal-examples/docs-examples/config"
	"github.com/paypal-examples/docs-examples/ledger"
	"github.com/paypal-examples/docs-examples/metrics"
	"github.com/paypal-examples/docs-examples/paypal"
)

type CheckoutService struct {
	provider *paypal.TokenProvider
	client   *paypal.Client
	tokens   paypal.TokenCache
	ledger   ledger.Store
	config   *config.Config
}

// CreateOrderRequest is the body the checkout page posts to /api/orders.
// Cart is logged but not priced; the order amount comes from configuration.
type CreateOrderRequest struct {
	Cart          json.RawMessage `json:"cart" swaggertype:"object"`
	PaymentSource string          `json:"paymentSource,omitempty" example:"paypal"`
}

type RefundRequest struct {
	CapturedPaymentID string `json:"capturedPaymentId" example:"7TK53561YB803214S"`
}

type SetupTokenRequest struct {
	PaymentSource string `json:"paymentSource,omitempty" example:"card"`
}

type ClientTokenResponse struct {
	ClientID    string `json:"clientId"`
	ClientToken string `json:"clientToken"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewCheckoutService wires the token provider and API client. tokens may be
// nil to fetch a fresh token for every call; store may be nil to skip the
// ledger.
func NewCheckoutService(cfg *config.Config, tokens paypal.TokenCache, store ledger.Store) (*CheckoutService, error) {
	provider, err := paypal.NewTokenProvider(cfg, tokens)
	if err != nil {
		return nil, err
	}
	if store == nil {
		store = ledger.NopStore{}
	}

	return &CheckoutService{
		provider: provider,
		client:   paypal.NewClient(cfg, provider),
		tokens:   tokens,
		ledger:   store,
		config:   cfg,
	}, nil
}

// newTokenCache returns the configured token cache, or nil when caching is off.
func newTokenCache(cfg *config.Config) (paypal.TokenCache, error) {
	if !cfg.TokenCache.Enabled {
		return nil, nil
	}

	switch cfg.TokenCache.Backend {
	case "memory":
		return paypal.NewMemoryTokenCache(), nil
	case "redis":
		store, err := cache.NewRedisTokenCache(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis token cache: %v", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown token cache backend %q", cfg.TokenCache.Backend)
	}
}

func newLedger(cfg *config.Config) (ledger.Store, error) {
	if !cfg.Ledger.Postgres.Enabled {
		return ledger.NopStore{}, nil
	}
	store, err := ledger.NewPostgresStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres ledger: %v", err)
	}
	return store, nil
}

func (s *CheckoutService) Close() {
	if err := s.ledger.Close(); err != nil {
		log.Printf("[LEDGER] close failed: %v", err)
	}
	if closer, ok := s.tokens.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Printf("[CACHE] close failed: %v", err)
		}
	}
}

// @Summary     Create an order
// @Description Start a transaction for the configured amount. The PayPal response is relayed with its status code.
// @Tags        orders
// @Accept      json
// @Produce     json
// @Param       order body CreateOrderRequest false "Shopping cart and optional payment source"
// @Success     201 {object} object
// @Failure     400 {object} ErrorResponse
// @Failure     500 {object} ErrorResponse
// @Router      /api/orders [post]
func (s *CheckoutService) CreateOrderHandler(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if len(req.Cart) > 0 {
		log.Printf("[PAYPAL] creating order for cart %s", req.Cart)
	}

	cfg := s.config
	order := paypal.NewOrderRequest(cfg.Checkout.Intent, cfg.Checkout.Currency, cfg.Checkout.Amount,
		cfg.PayPal.SellerPayerID, req.PaymentSource)

	resp, err := s.client.CreateOrder(c.Request.Context(), order)
	s.relay(c, "create_order", "", "Failed to create order.", resp, err)
}

// @Summary     Capture an order
// @Description Capture payment for an approved order
// @Tags        orders
// @Produce     json
// @Param       orderID path string true "Order ID"
// @Success     201 {object} object
// @Failure     500 {object} ErrorResponse
// @Router      /api/orders/{orderID}/capture [post]
func (s *CheckoutService) CaptureOrderHandler(c *gin.Context) {
	orderID := c.Param("orderID")
	resp, err := s.client.CaptureOrder(c.Request.Context(), orderID)
	s.relay(c, "capture_order", orderID, "Failed to capture order.", resp, err)
}

// @Summary     Authorize an order
// @Description Authorize payment for an approved order
// @Tags        orders
// @Produce     json
// @Param       orderID path string true "Order ID"
// @Success     201 {object} object
// @Failure     500 {object} ErrorResponse
// @Router      /api/orders/{orderID}/authorize [post]
func (s *CheckoutService) AuthorizeOrderHandler(c *gin.Context) {
	orderID := c.Param("orderID")
	resp, err := s.client.AuthorizeOrder(c.Request.Context(), orderID)
	s.relay(c, "authorize_order", orderID, "Failed to authorize order.", resp, err)
}

// @Summary     Capture an authorization
// @Description Capture a previously authorized payment. The capture is never final.
// @Tags        payments
// @Produce     json
// @Param       authorizationID path string true "Authorization ID"
// @Success     201 {object} object
// @Failure     500 {object} ErrorResponse
// @Router      /api/orders/{authorizationID}/captureAuthorize [post]
func (s *CheckoutService) CaptureAuthorizationHandler(c *gin.Context) {
	// Shares the :orderID wildcard of the order routes
	authorizationID := c.Param("orderID")
	resp, err := s.client.CaptureAuthorization(c.Request.Context(), authorizationID)
	s.relay(c, "capture_authorization", authorizationID, "Failed to capture authorize.", resp, err)
}

// @Summary     Refund a capture
// @Description Refund a captured payment in full
// @Tags        payments
// @Accept      json
// @Produce     json
// @Param       refund body RefundRequest true "Captured payment to refund"
// @Success     201 {object} object
// @Failure     400 {object} ErrorResponse
// @Failure     401 {object} ErrorResponse
// @Failure     500 {object} ErrorResponse
// @Security    BearerAuth
// @Router      /api/payments/refund [post]
func (s *CheckoutService) RefundHandler(c *gin.Context) {
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CapturedPaymentID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "capturedPaymentId is required"})
		return
	}

	resp, err := s.client.RefundCapture(c.Request.Context(), req.CapturedPaymentID)
	s.relay(c, "refund_capture", req.CapturedPaymentID, "Failed to refund capture.", resp, err)
}

// @Summary     Create a vault setup token
// @Description Start saving a payment method for later use
// @Tags        vault
// @Accept      json
// @Produce     json
// @Param       token body SetupTokenRequest false "Payment source, card when omitted"
// @Success     200 {object} object
// @Failure     400 {object} ErrorResponse
// @Failure     500 {object} ErrorResponse
// @Router      /api/vault/setup-token [post]
func (s *CheckoutService) SetupTokenHandler(c *gin.Context) {
	var req SetupTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.PaymentSource == "" {
		req.PaymentSource = "card"
	}

	resp, err := s.client.CreateSetupToken(c.Request.Context(), req.PaymentSource)
	s.relay(c, "create_setup_token", "", "Failed to create setup token.", resp, err)
}

// @Summary     Create a vault payment token
// @Description Exchange an approved setup token for a payment token
// @Tags        vault
// @Produce     json
// @Param       vaultSetupToken path string true "Approved setup token"
// @Success     200 {object} object
// @Failure     500 {object} ErrorResponse
// @Router      /api/vault/payment-token/{vaultSetupToken} [post]
func (s *CheckoutService) PaymentTokenHandler(c *gin.Context) {
	setupToken := c.Param("vaultSetupToken")
	resp, err := s.client.CreatePaymentToken(c.Request.Context(), setupToken)
	s.relay(c, "create_payment_token", setupToken, "Failed to create payment token.", resp, err)
}

// @Summary     Get a client token
// @Description Client ID and client token for rendering hosted card fields
// @Tags        identity
// @Produce     json
// @Success     200 {object} ClientTokenResponse
// @Failure     500 {object} ErrorResponse
// @Router      /api/client-token [get]
func (s *CheckoutService) ClientTokenHandler(c *gin.Context) {
	token, err := s.client.GenerateClientToken(c.Request.Context())
	if err != nil {
		log.Printf("[PAYPAL] generate_client_token failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to generate client token."})
		return
	}

	c.JSON(http.StatusOK, ClientTokenResponse{
		ClientID:    s.provider.ClientID(),
		ClientToken: token,
	})
}

// relay answers with the upstream status and body, or with failure when the
// call never produced a PayPal response.
func (s *CheckoutService) relay(c *gin.Context, operation, resourceID, failure string, resp *paypal.Response, err error) {
	if err != nil {
		log.Printf("[PAYPAL] %s failed: %v", operation, err)

		var argErr *paypal.InvalidArgumentError
		if errors.As(err, &argErr) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: argErr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: failure})
		return
	}

	if !resp.OK() {
		log.Printf("[PAYPAL] %s returned HTTP %d (debug id %s)", operation, resp.StatusCode, resp.DebugID)
	}
	if resourceID == "" {
		resourceID = responseID(resp.Body)
	}
	s.record(c, operation, resourceID, resp)

	if len(resp.Body) == 0 {
		c.Status(resp.StatusCode)
		return
	}
	c.Data(resp.StatusCode, "application/json; charset=utf-8", resp.Body)
}

// record writes a ledger entry. Failures are logged and never reach the caller.
func (s *CheckoutService) record(c *gin.Context, operation, resourceID string, resp *paypal.Response) {
	err := s.ledger.Record(c.Request.Context(), ledger.Entry{
		Operation:  operation,
		ResourceID: resourceID,
		StatusCode: resp.StatusCode,
		DebugID:    resp.DebugID,
		RequestID:  paypal.RequestID(c.Request.Context()),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		metrics.LedgerWrites.WithLabelValues("error").Inc()
		log.Printf("[LEDGER] failed to record %s: %v", operation, err)
		return
	}
	metrics.LedgerWrites.WithLabelValues("success").Inc()
}

func responseID(body json.RawMessage) string {
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return ""
	}
	return out.ID
}
