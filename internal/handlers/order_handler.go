package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/interfaces"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/repository"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/telemetry"
)

const (
	defaultFailedLimit = 50
	maxFailedLimit     = 500
)

// OrderHandler exposes read-only lookups over materialized orders and the
// webhook audit log.
type OrderHandler struct {
	orders interfaces.OrderRepository
	events interfaces.WebhookEventRepository
}

func NewOrderHandler(orders interfaces.OrderRepository, events interfaces.WebhookEventRepository) *OrderHandler {
	return &OrderHandler{orders: orders, events: events}
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	provider := models.Provider(c.Param("provider"))
	if !provider.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payment provider"})
		return
	}
	paymentID := c.Param("payment_id")

	order, err := h.orders.FindByPayment(c.Request.Context(), provider, paymentID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err != nil {
		telemetry.Logger.Error("Failed to fetch order",
			zap.String("provider", string(provider)),
			zap.String("payment_id", paymentID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListFailedEvents(c *gin.Context) {
	limit := defaultFailedLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxFailedLimit)
	}

	events, err := h.events.ListFailed(c.Request.Context(), limit)
	if err != nil {
		telemetry.Logger.Error("Failed to list failed webhook events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list webhook events"})
		return
	}
	if events == nil {
		events = []models.WebhookEvent{}
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}
