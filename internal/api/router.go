package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/handlers"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/telemetry"
)

// NewRouter mounts the provider webhooks, health and metrics. The operator endpoints
// are only mounted when adminToken is set, and every request to them must
// present it as a bearer token.
func NewRouter(webhooks *handlers.WebhookHandler, orders *handlers.OrderHandler, adminToken string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": telemetry.ServiceName})
	})

	api := r.Group("/api")

	// Provider webhooks, authenticated by signature
	api.POST("/webhooks/stripe", webhooks.Stripe)
	api.POST("/webhooks/square", webhooks.Square)

	if adminToken != "" {
		admin := api.Group("", RequireBearerToken(adminToken))
		admin.GET("/webhooks/events/failed", orders.ListFailedEvents)
		admin.GET("/orders/:provider/:payment_id", orders.GetOrder)
	}

	return r
}
