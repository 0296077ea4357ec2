// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package ledger

import (
	"context"
	"sync"
)

// MockStore is an in-memory Store for testing
type MockStore struct {
	mu      sync.Mutex
	entries []Entry
	Err     error
}

func NewMockStore() *MockStore {
	return &MockStore{}
}

func (m *MockStore) Record(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.entries = append(m.entries, entry)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (m *MockStore) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

func (m *MockStore) Close() error {
	return nil
}
