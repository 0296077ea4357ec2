// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package paypal

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Credentials identify the REST app. Built once at startup and passed by value.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Validate rejects empty credentials so misconfiguration never reaches the network.
func (c Credentials) Validate() error {
	if c.ClientID == "" {
		return &ConfigurationError{Field: "client_id"}
	}
	if c.ClientSecret == "" {
		return &ConfigurationError{Field: "client_secret"}
	}
	return nil
}

// BasicAuth returns the value of the Authorization header for the token endpoint.
func (c Credentials) BasicAuth() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.ClientID+":"+c.ClientSecret))
}

// CacheKey identifies a credential pair without exposing the secret.
func (c Credentials) CacheKey() string {
	sum := sha256.Sum256([]byte(c.ClientID + ":" + c.ClientSecret))
	return hex.EncodeToString(sum[:])
}

// AccessToken is a bearer token obtained through the client-credentials grant.
// ExpiresIn is zero when the token endpoint did not report a lifetime.
type AccessToken struct {
	Value      string        `json:"access_token"`
	TokenType  string        `json:"token_type,omitempty"`
	Scope      string        `json:"scope,omitempty"`
	ObtainedAt time.Time     `json:"obtained_at"`
	ExpiresIn  time.Duration `json:"expires_in_ns"`
}

// ExpiresAt returns the expiry instant, and false when the lifetime is unknown.
func (t *AccessToken) ExpiresAt() (time.Time, bool) {
	if t.ExpiresIn <= 0 {
		return time.Time{}, false
	}
	return t.ObtainedAt.Add(t.ExpiresIn), true
}

// Usable reports whether the token may still be served at now, keeping a
// buffer before expiry. Tokens with unknown lifetime are never reusable.
func (t *AccessToken) Usable(now time.Time, buffer time.Duration) bool {
	expiresAt, ok := t.ExpiresAt()
	if !ok {
		return false
	}
	return now.Before(expiresAt.Add(-buffer))
}

// tokenResponse is the body of a successful /v1/oauth2/token call.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	AppID       string `json:"app_id"`
	ExpiresIn   int64  `json:"expires_in"`
	Nonce       string `json:"nonce"`
}

// Response is a relayed PayPal API response. Body is passed through untouched.
type Response struct {
	StatusCode int
	Body       json.RawMessage
	DebugID    string
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type Amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type Payee struct {
	MerchantID string `json:"merchant_id"`
}

type PurchaseUnit struct {
	ReferenceID string `json:"reference_id,omitempty"`
	Amount      Amount `json:"amount"`
	Payee       *Payee `json:"payee,omitempty"`
}

// OrderRequest is the body of POST /v2/checkout/orders.
type OrderRequest struct {
	Intent        string                     `json:"intent"`
	PurchaseUnits []PurchaseUnit             `json:"purchase_units"`
	PaymentSource map[string]json.RawMessage `json:"payment_source,omitempty"`
}

// NewOrderRequest builds the single purchase unit order the checkout pages use.
// payeeMerchantID and paymentSource are optional.
func NewOrderRequest(intent, currency, value, payeeMerchantID, paymentSource string) OrderRequest {
	unit := PurchaseUnit{Amount: Amount{CurrencyCode: currency, Value: value}}
	if payeeMerchantID != "" {
		unit.Payee = &Payee{MerchantID: payeeMerchantID}
	}

	order := OrderRequest{
		Intent:        intent,
		PurchaseUnits: []PurchaseUnit{unit},
	}
	if paymentSource != "" {
		order.PaymentSource = map[string]json.RawMessage{paymentSource: json.RawMessage(`{}`)}
	}
	return order
}
