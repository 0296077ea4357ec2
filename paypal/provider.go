// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

// Package paypal talks to the PayPal REST API: client-credentials token
// acquisition, auth-assertion construction and the checkout calls relayed
// by the web layer.
package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paypal-examples/docs-examples/config"
	"github.com/paypal-examples/docs-examples/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/oauth2"
)

const tokenPath = "/v1/oauth2/token"

// TokenProvider obtains bearer tokens for the configured REST app and builds
// auth assertions for the configured merchant relationship.
//
// Without a cache every call performs a fresh token request. With one, a
// token is reused until RenewalBuffer before its reported expiry.
type TokenProvider struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	cache      TokenCache
	buffer     time.Duration
	now        func() time.Time
}

// NewTokenProvider validates the configured credentials and returns a
// provider. cache may be nil.
func NewTokenProvider(cfg *config.Config, cache TokenCache) (*TokenProvider, error) {
	creds := Credentials{
		ClientID:     cfg.PayPal.ClientID,
		ClientSecret: cfg.PayPal.ClientSecret,
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	return &TokenProvider{
		baseURL:    strings.TrimRight(cfg.PayPal.BaseURL, "/"),
		creds:      creds,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		cache:      cache,
		buffer:     cfg.RenewalBuffer(),
		now:        time.Now,
	}, nil
}

// ClientID is the REST app the provider authenticates as.
func (p *TokenProvider) ClientID() string {
	return p.creds.ClientID
}

// FetchAccessToken performs one client-credentials grant against the token
// endpoint. It never consults or updates the cache and never retries.
func (p *TokenProvider) FetchAccessToken(ctx context.Context, creds Credentials) (*AccessToken, error) {
	if err := creds.Validate(); err != nil {
		metrics.TokenRequests.WithLabelValues("config_error").Inc()
		return nil, err
	}

	timer := prometheus.NewTimer(metrics.TokenRequestDuration)
	defer timer.ObserveDuration()

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("paypal: failed to build token request: %w", err)
	}
	req.Header.Set("Authorization", creds.BasicAuth())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	obtainedAt := p.now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		metrics.TokenRequests.WithLabelValues("transport_error").Inc()
		return nil, &TransportError{Op: "token request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.TokenRequests.WithLabelValues("transport_error").Inc()
		return nil, &TransportError{Op: "read token response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.TokenRequests.WithLabelValues("upstream_error").Inc()
		return nil, &UpstreamAuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		metrics.TokenRequests.WithLabelValues("upstream_error").Inc()
		return nil, &UpstreamAuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	metrics.TokenRequests.WithLabelValues("success").Inc()
	return &AccessToken{
		Value:      tr.AccessToken,
		TokenType:  tr.TokenType,
		Scope:      tr.Scope,
		ObtainedAt: obtainedAt,
		ExpiresIn:  time.Duration(tr.ExpiresIn) * time.Second,
	}, nil
}

// Token returns a usable token for the provider's credentials, from the
// cache when possible. Cache failures are logged and fall back to a fetch.
func (p *TokenProvider) Token(ctx context.Context) (*AccessToken, error) {
	key := p.creds.CacheKey()

	if p.cache != nil {
		tok, err := p.cache.Get(ctx, key)
		switch {
		case err != nil:
			log.Printf("[CACHE] token lookup failed: %v", err)
		case tok != nil && tok.Usable(p.now(), p.buffer):
			metrics.TokenCacheLookups.WithLabelValues("hit").Inc()
			return tok, nil
		}
		metrics.TokenCacheLookups.WithLabelValues("miss").Inc()
	}

	tok, err := p.FetchAccessToken(ctx, p.creds)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, tok); err != nil {
			log.Printf("[CACHE] token store failed: %v", err)
		}
	}
	return tok, nil
}

// GetAccessToken returns the bearer token value for outbound calls.
func (p *TokenProvider) GetAccessToken(ctx context.Context) (string, error) {
	tok, err := p.Token(ctx)
	if err != nil {
		return "", err
	}
	return tok.Value, nil
}

// GetAuthAssertion builds the assertion for acting on behalf of merchantID.
func (p *TokenProvider) GetAuthAssertion(merchantID string) (string, error) {
	return BuildAuthAssertion(p.creds.ClientID, merchantID)
}

// InvalidateToken drops the cached token. Call it after a 401 from the API.
func (p *TokenProvider) InvalidateToken(ctx context.Context) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Delete(ctx, p.creds.CacheKey()); err != nil {
		log.Printf("[CACHE] token invalidation failed: %v", err)
	}
}

// TokenSource adapts the provider for oauth2.Transport. ctx bounds every
// token fetch made through the source.
func (p *TokenProvider) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, provider: p}
}

type tokenSource struct {
	ctx      context.Context
	provider *TokenProvider
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.provider.Token(s.ctx)
	if err != nil {
		return nil, err
	}

	out := &oauth2.Token{
		AccessToken: tok.Value,
		TokenType:   tok.TokenType,
	}
	if expiresAt, ok := tok.ExpiresAt(); ok {
		out.Expiry = expiresAt
	}
	return out, nil
}
