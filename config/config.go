// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SandboxBaseURL = "https://api-m.sandbox.paypal.com"
	LiveBaseURL    = "https://api-m.paypal.com"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	API struct {
		BasePath    string `yaml:"base_path"`
		SwaggerHost string `yaml:"swagger_host"`
	} `yaml:"api"`

	PayPal struct {
		BaseURL        string `yaml:"base_url"`
		ClientID       string `yaml:"client_id"`
		ClientSecret   string `yaml:"client_secret"`
		SellerPayerID  string `yaml:"seller_payer_id"` // Merchant the partner acts for
		BNCode         string `yaml:"bn_code"`         // PayPal-Partner-Attribution-Id
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"paypal"`

	Checkout struct {
		Intent    string `yaml:"intent"` // CAPTURE or AUTHORIZE
		Currency  string `yaml:"currency"`
		Amount    string `yaml:"amount"`
		Prefer    string `yaml:"prefer"`
		ReturnURL string `yaml:"return_url"` // Vault approval redirect
		CancelURL string `yaml:"cancel_url"`
	} `yaml:"checkout"`

	TokenCache struct {
		Enabled              bool   `yaml:"enabled"`
		Backend              string `yaml:"backend"` // memory or redis
		RenewalBufferSeconds int    `yaml:"renewal_buffer_seconds"`
		Redis                struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			DB       int    `yaml:"db"`
			Password string `yaml:"password"`
		} `yaml:"redis"`
	} `yaml:"token_cache"`

	Ledger struct {
		Postgres struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			DBName   string `yaml:"dbname"`
			Query    string `yaml:"query"` // Parameterized insert for ledger entries
		} `yaml:"postgres"`
	} `yaml:"ledger"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`

	// Auth guards back-office routes such as refunds with merchant API keys.
	Auth struct {
		Enabled bool     `yaml:"enabled"`
		Tokens  []string `yaml:"tokens"`
	} `yaml:"auth"`
}

// envOverrides lists the environment variables read after the file, in
// increasing precedence for each setting.
var envOverrides = []struct {
	names []string
	apply func(c *Config, v string) error
}{
	{[]string{"CLIENT_ID", "PAYPAL_CLIENT_ID"}, func(c *Config, v string) error { c.PayPal.ClientID = v; return nil }},
	{[]string{"APP_SECRET", "PAYPAL_CLIENT_SECRET"}, func(c *Config, v string) error { c.PayPal.ClientSecret = v; return nil }},
	{[]string{"PAYPAL_SELLER_PAYER_ID"}, func(c *Config, v string) error { c.PayPal.SellerPayerID = v; return nil }},
	{[]string{"PAYPAL_BN_CODE"}, func(c *Config, v string) error { c.PayPal.BNCode = v; return nil }},
	{[]string{"PAYPAL_BASE_URL"}, func(c *Config, v string) error { c.PayPal.BaseURL = v; return nil }},
	{[]string{"PORT"}, func(c *Config, v string) error {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %v", v, err)
		}
		c.Server.Port = port
		return nil
	}},
}

// LoadConfig reads the YAML file, applies environment overrides and fills
// defaults. A missing file is not an error: the environment alone may be
// enough to run against the sandbox.
func LoadConfig(filename string) (*Config, error) {
	config := &Config{}

	data, err := os.ReadFile(filename)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("[CONFIG] %s not found, using environment and defaults", filename)
	case err != nil:
		return nil, fmt.Errorf("error reading config file: %v", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %v", err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.setDefaults()

	return config, nil
}

func (c *Config) applyEnv() error {
	for _, o := range envOverrides {
		for _, name := range o.names {
			v, ok := os.LookupEnv(name)
			if !ok || v == "" {
				continue
			}
			if err := o.apply(c, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.API.BasePath == "" {
		c.API.BasePath = "/"
	}
	if c.PayPal.BaseURL == "" {
		c.PayPal.BaseURL = SandboxBaseURL
	}
	if c.PayPal.TimeoutSeconds == 0 {
		c.PayPal.TimeoutSeconds = 10
	}
	if c.Checkout.Intent == "" {
		c.Checkout.Intent = "CAPTURE"
	}
	if c.Checkout.Currency == "" {
		c.Checkout.Currency = "USD"
	}
	if c.Checkout.Amount == "" {
		c.Checkout.Amount = "100.00"
	}
	if c.Checkout.Prefer == "" {
		c.Checkout.Prefer = "return=minimal"
	}
	if c.Checkout.ReturnURL == "" {
		c.Checkout.ReturnURL = "https://example.com/returnUrl"
	}
	if c.Checkout.CancelURL == "" {
		c.Checkout.CancelURL = "https://example.com/cancelUrl"
	}
	if c.TokenCache.Backend == "" {
		c.TokenCache.Backend = "memory"
	}
	if c.TokenCache.RenewalBufferSeconds == 0 {
		c.TokenCache.RenewalBufferSeconds = 60
	}
	if c.TokenCache.Redis.Port == 0 {
		c.TokenCache.Redis.Port = 6379
	}
	if c.Ledger.Postgres.Port == 0 {
		c.Ledger.Postgres.Port = 5432
	}
	if c.Ledger.Postgres.Query == "" {
		c.Ledger.Postgres.Query = "INSERT INTO payment_ledger (operation, resource_id, status_code, debug_id, request_id, created_at) VALUES ($1, $2, $3, $4, $5, $6)"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Timeout is the bound applied to every outbound PayPal call.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.PayPal.TimeoutSeconds) * time.Second
}

// RenewalBuffer is how long before expiry a cached token stops being served.
func (c *Config) RenewalBuffer() time.Duration {
	return time.Duration(c.TokenCache.RenewalBufferSeconds) * time.Second
}
