package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/service"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/telemetry"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/verifier"
)

// maxWebhookBodyBytes caps provider payloads; Stripe documents events well
// below this size.
const maxWebhookBodyBytes = 1 << 20

type WebhookHandler struct {
	stripe  verifier.Verifier
	square  verifier.Verifier
	service *service.WebhookService
}

func NewWebhookHandler(stripe, square verifier.Verifier, svc *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		stripe:  stripe,
		square:  square,
		service: svc,
	}
}

func (h *WebhookHandler) Stripe(c *gin.Context) {
	h.handle(c, h.stripe)
}

func (h *WebhookHandler) Square(c *gin.Context) {
	h.handle(c, h.square)
}

func (h *WebhookHandler) handle(c *gin.Context, v verifier.Verifier) {
	ctx := c.Request.Context()
	provider := v.Provider()

	// Signatures cover the exact bytes on the wire, so the body is read raw
	// and never re-encoded.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	body, err := c.GetRawData()
	if err != nil {
		telemetry.RecordRejection(ctx, provider, "unreadable_body", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	telemetry.Logger.Debug("Webhook event state",
		zap.String("provider", string(provider)),
		zap.String("state", string(models.StateReceived)),
		zap.Int("bytes", len(body)),
	)

	event, err := v.Verify(body, c.Request.Header)
	if err != nil {
		telemetry.RecordRejection(ctx, provider, verifier.Reason(err), err)
		c.JSON(verifier.RejectionStatus(provider, err), gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.service.Handle(ctx, event)
	switch {
	case errors.Is(err, service.ErrEventInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process webhook"})
		return
	}

	resp := gin.H{"received": true}
	if outcome.Duplicate {
		resp["duplicate"] = true
	}
	if outcome.Error != "" {
		resp["error"] = outcome.Error
	}
	c.JSON(http.StatusOK, resp)
}
