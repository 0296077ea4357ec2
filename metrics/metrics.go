// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TokenRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paypal_token_requests_total",
		Help: "Total number of client-credentials token requests by result",
	}, []string{"result"})

	TokenRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paypal_token_request_duration_seconds",
		Help:    "Time spent waiting on the token endpoint",
		Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 8), // 50ms to ~6.4s
	})

	TokenCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paypal_token_cache_lookups_total",
		Help: "Token cache lookups by outcome",
	}, []string{"outcome"})

	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paypal_api_requests_total",
		Help: "Relayed PayPal API calls by operation and upstream status code",
	}, []string{"operation", "status"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paypal_api_request_duration_seconds",
		Help:    "Time spent on relayed PayPal API calls",
		Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 8),
	}, []string{"operation"})

	LedgerWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paypal_ledger_writes_total",
		Help: "Ledger writes by result",
	}, []string{"result"})
)
