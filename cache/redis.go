// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/paypal-examples/docs-examples/config"
	"github.com/paypal-examples/docs-examples/paypal"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "paypal:token:"

// RedisTokenCache implements paypal.TokenCache for Redis so that replicas
// share one access token.
type RedisTokenCache struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisTokenCache(cfg *config.Config) (*RedisTokenCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.TokenCache.Redis.Host, cfg.TokenCache.Redis.Port),
		Password: cfg.TokenCache.Redis.Password,
		DB:       cfg.TokenCache.Redis.DB,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %v", err)
	}

	return &RedisTokenCache{
		client: client,
		now:    time.Now,
	}, nil
}

func (s *RedisTokenCache) Get(ctx context.Context, key string) (*paypal.AccessToken, error) {
	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var tok paypal.AccessToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt cached token: %v", err)
	}
	return &tok, nil
}

// Set stores the token until its reported expiry. Tokens with unknown or
// elapsed lifetime are not stored.
func (s *RedisTokenCache) Set(ctx context.Context, key string, token *paypal.AccessToken) error {
	expiresAt, ok := token.ExpiresAt()
	if !ok {
		return nil
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+key, data, ttl).Err()
}

func (s *RedisTokenCache) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}

func (s *RedisTokenCache) Close() error {
	return s.client.Close()
}
