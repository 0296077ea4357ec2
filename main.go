// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/paypal-examples/docs-examples/config"
	"github.com/paypal-examples/docs-examples/docs"
	"github.com/paypal-examples/docs-examples/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

var (
	configFile = flag.String("config", "config.yaml", "Path to configuration file")
)

// @title                      PayPal Checkout Relay
// @version                    1.0
// @description                Server side of the PayPal checkout integrations: obtains OAuth2 access tokens and relays order, payment and vault calls.
// @host                       localhost:8080
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	tokens, err := newTokenCache(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize token cache: %v", err)
	}

	store, err := newLedger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize ledger: %v", err)
	}

	service, err := NewCheckoutService(cfg, tokens, store)
	if err != nil {
		log.Fatalf("Failed to initialize checkout service: %v", err)
	}
	defer service.Close()

	r := gin.Default()
	registerRoutes(r, cfg, service)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting server on %s (PayPal API %s)", addr, cfg.PayPal.BaseURL)
	if err := r.Run(addr); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}

func registerRoutes(r *gin.Engine, cfg *config.Config, service *CheckoutService) {
	docs.SwaggerInfo.BasePath = cfg.API.BasePath
	if cfg.API.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.API.SwaggerHost
	}

	api := r.Group("/api", middleware.RequestID())
	api.POST("/orders", service.CreateOrderHandler)
	api.POST("/orders/:orderID/capture", service.CaptureOrderHandler)
	api.POST("/orders/:orderID/authorize", service.AuthorizeOrderHandler)
	api.POST("/orders/:orderID/captureAuthorize", service.CaptureAuthorizationHandler)
	api.POST("/vault/setup-token", service.SetupTokenHandler)
	api.POST("/vault/payment-token/:vaultSetupToken", service.PaymentTokenHandler)
	api.GET("/client-token", service.ClientTokenHandler)

	// Merchant-only
	api.POST("/payments/refund", middleware.BearerAuthMiddleware(cfg), service.RefundHandler)

	// These endpoints remain public
	r.GET("/health", healthCheck)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Add Prometheus metrics endpoint if enabled
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
}

// @Summary     Health check endpoint
// @Description Get API health status
// @Tags        health
// @Produce     json
// @Success     200 {object} HealthResponse
// @Router      /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(200, HealthResponse{Status: "ok"})
}
