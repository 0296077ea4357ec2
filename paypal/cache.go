// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package paypal

import (
	"context"
	"sync"
	"time"
)

// TokenCache stores access tokens keyed by Credentials.CacheKey.
// Get returns (nil, nil) on a miss.
type TokenCache interface {
	Get(ctx context.Context, key string) (*AccessToken, error)
	Set(ctx context.Context, key string, token *AccessToken) error
	Delete(ctx context.Context, key string) error
}

// MemoryTokenCache is a process-local TokenCache. Safe for concurrent use.
type MemoryTokenCache struct {
	mu     sync.RWMutex
	tokens map[string]AccessToken
	now    func() time.Time
}

func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{
		tokens: make(map[string]AccessToken),
		now:    time.Now,
	}
}

func (m *MemoryTokenCache) Get(_ context.Context, key string) (*AccessToken, error) {
	m.mu.RLock()
	tok, ok := m.tokens[key]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	if !tok.Usable(m.now(), 0) {
		m.mu.Lock()
		delete(m.tokens, key)
		m.mu.Unlock()
		return nil, nil
	}
	return &tok, nil
}

// Set ignores tokens without a known lifetime.
func (m *MemoryTokenCache) Set(_ context.Context, key string, token *AccessToken) error {
	if _, ok := token.ExpiresAt(); !ok {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[key] = *token
	return nil
}

func (m *MemoryTokenCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, key)
	return nil
}
