package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
)

// OrderRepository defines the contract for order data access.
// Create reports false when a uniqueness constraint already holds a row for
// the same payment.
type OrderRepository interface {
	FindByPayment(ctx context.Context, provider models.Provider, paymentID string) (*models.Order, error)
	FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) (bool, error)
}
