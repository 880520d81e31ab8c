package interfaces

import (
	"context"

	"github.com/google/uuid"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
)

// WebhookEventRepository defines the contract for the append-only webhook event log
type WebhookEventRepository interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	LogEvent(ctx context.Context, provider models.Provider, eventType, eventID string, payload []byte) (uuid.UUID, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, success bool, errorMessage string) error
	ListFailed(ctx context.Context, limit int) ([]models.WebhookEvent, error)
}
