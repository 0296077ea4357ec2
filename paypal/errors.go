// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package paypal

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ConfigurationError reports missing or invalid credentials. It is raised
// before any network call is attempted.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("paypal: %s is required", e.Field)
}

// UpstreamAuthError is returned when the token endpoint answers with a
// non-2xx status, or with a 2xx body that carries no access token.
type UpstreamAuthError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamAuthError) Error() string {
	return fmt.Sprintf("paypal: token request failed (HTTP %d): %s", e.StatusCode, e.Body)
}

// TransportError wraps network-level failures: DNS, refused connections,
// timeouts and cancelled contexts.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("paypal: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was caused by a deadline.
func (e *TransportError) Timeout() bool {
	var netErr net.Error
	if errors.As(e.Err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// InvalidArgumentError is a programming error: a required argument was empty.
type InvalidArgumentError struct {
	Name string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("paypal: %s must not be empty", e.Name)
}

// APIError is returned by calls whose result is consumed locally rather
// than relayed, when PayPal answers with an unusable response.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paypal: %s failed (HTTP %d): %s", e.Operation, e.StatusCode, e.Body)
}
