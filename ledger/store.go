// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

// Package ledger keeps an audit trail of relayed payment operations.
package ledger

import (
	"context"
	"time"
)

// Store defines the basic ledger operations
type Store interface {
	Record(ctx context.Context, entry Entry) error
	Close() error
}

// Entry is one relayed PayPal call. ResourceID is the order, authorization,
// capture or token the call acted on, when known.
type Entry struct {
	Operation  string
	ResourceID string
	StatusCode int
	DebugID    string
	RequestID  string
	CreatedAt  time.Time
}

// NopStore discards entries. Used when no ledger is configured.
type NopStore struct{}

func (NopStore) Record(context.Context, Entry) error { return nil }

func (NopStore) Close() error { return nil }
