package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/interfaces"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/notification"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/repository"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/telemetry"
)

var (
	ErrMissingPaymentObject = errors.New("missing payment object in event data")
	ErrMissingPaymentID     = errors.New("payment id is required")
	ErrMissingCurrency      = errors.New("currency is required")
	ErrNegativeAmount       = errors.New("amount must not be negative")
)

// ConfirmationQueue accepts order confirmations for asynchronous delivery.
type ConfirmationQueue interface {
	Enqueue(msg notification.OrderConfirmation) bool
}

// OrderMaterializer turns a terminal payment into exactly one Order.
type OrderMaterializer struct {
	orders        interfaces.OrderRepository
	confirmations ConfirmationQueue
}

func NewOrderMaterializer(orders interfaces.OrderRepository, confirmations ConfirmationQueue) *OrderMaterializer {
	return &OrderMaterializer{
		orders:        orders,
		confirmations: confirmations,
	}
}

// Materialize persists the order unless one already exists for the same
// payment or payment intent. It reports whether a new row was written.
func (m *OrderMaterializer) Materialize(ctx context.Context, in models.NewOrder) (*models.Order, bool, error) {
	paymentID := strings.TrimSpace(in.PaymentID)
	if paymentID == "" {
		return nil, false, ErrMissingPaymentID
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		return nil, false, ErrMissingCurrency
	}
	if in.TotalAmount < 0 {
		return nil, false, ErrNegativeAmount
	}
	intentID := strings.TrimSpace(in.PaymentIntentID)

	log := telemetry.Logger.With(
		zap.String("provider", string(in.Provider)),
		zap.String("payment_id", paymentID),
	)

	existing, err := m.findExisting(ctx, in.Provider, paymentID, intentID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		log.Info("Order already exists for payment, skipping",
			zap.String("order_id", existing.ID.String()))
		return existing, false, nil
	}

	order := &models.Order{
		ID:              uuid.New(),
		PaymentProvider: in.Provider,
		PaymentID:       paymentID,
		PaymentIntentID: optional(intentID),
		CustomerEmail:   optional(in.CustomerEmail),
		CustomerName:    optional(in.CustomerName),
		TotalAmount:     in.TotalAmount,
		Currency:        currency,
		Status:          models.OrderCompleted,
	}
	if in.WebhookEventID != uuid.Nil {
		eventID := in.WebhookEventID
		order.WebhookEventID = &eventID
	}

	created, err := m.orders.Create(ctx, order)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create order: %w", err)
	}
	if !created {
		// Lost the race to a concurrent delivery of the same payment.
		log.Info("Order created concurrently by another delivery, skipping")
		return nil, false, nil
	}

	telemetry.OrdersCreatedTotal.WithLabelValues(string(in.Provider)).Inc()
	log.Info("Created order",
		zap.String("order_id", order.ID.String()),
		zap.Int64("total_amount", order.TotalAmount),
		zap.String("currency", order.Currency),
	)

	if m.confirmations != nil {
		m.confirmations.Enqueue(notification.ConfirmationFromOrder(order))
	}
	return order, true, nil
}

func (m *OrderMaterializer) findExisting(ctx context.Context, provider models.Provider, paymentID, intentID string) (*models.Order, error) {
	order, err := m.orders.FindByPayment(ctx, provider, paymentID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("look up order by payment: %w", err)
	}

	if intentID == "" {
		return nil, nil
	}
	order, err = m.orders.FindByPaymentIntent(ctx, intentID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("look up order by payment intent: %w", err)
	}
	return nil, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
