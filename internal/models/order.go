package models

import (
	"time"

	"github.com/google/uuid"
)

type Provider string

const (
	ProviderStripe Provider = "stripe"
	ProviderSquare Provider = "square"
)

func (p Provider) Valid() bool {
	return p == ProviderStripe || p == ProviderSquare
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderFailed    OrderStatus = "failed"
	OrderRefunded  OrderStatus = "refunded"
)

// Order is the canonical record of a paid purchase. TotalAmount is always in
// the smallest currency unit.
type Order struct {
	ID              uuid.UUID   `json:"id"`
	PaymentProvider Provider    `json:"payment_provider"`
	PaymentID       string      `json:"payment_id"`
	PaymentIntentID *string     `json:"payment_intent_id,omitempty"`
	CustomerEmail   *string     `json:"customer_email,omitempty"`
	CustomerName    *string     `json:"customer_name,omitempty"`
	TotalAmount     int64       `json:"total_amount"`
	Currency        string      `json:"currency"`
	Status          OrderStatus `json:"status"`
	WebhookEventID  *uuid.UUID  `json:"webhook_event_id,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// NewOrder carries the fields extracted from a provider payload before the
// materializer normalizes and persists them.
type NewOrder struct {
	Provider        Provider
	PaymentID       string
	PaymentIntentID string
	CustomerEmail   string
	CustomerName    string
	TotalAmount     int64
	Currency        string
	WebhookEventID  uuid.UUID
}
