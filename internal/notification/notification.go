package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
)

// OrderConfirmation is the message handed to notifiers once an order has
// been committed.
type OrderConfirmation struct {
	OrderID       uuid.UUID       `json:"order_id"`
	Provider      models.Provider `json:"provider"`
	PaymentID     string          `json:"payment_id"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	CustomerName  string          `json:"customer_name,omitempty"`
	Amount        int64           `json:"amount"`
	Currency      string          `json:"currency"`
}

func ConfirmationFromOrder(order *models.Order) OrderConfirmation {
	msg := OrderConfirmation{
		OrderID:   order.ID,
		Provider:  order.PaymentProvider,
		PaymentID: order.PaymentID,
		Amount:    order.TotalAmount,
		Currency:  order.Currency,
	}
	if order.CustomerEmail != nil {
		msg.CustomerEmail = *order.CustomerEmail
	}
	if order.CustomerName != nil {
		msg.CustomerName = *order.CustomerName
	}
	return msg
}

// Notifier delivers one confirmation over one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg OrderConfirmation) error
}

// FormatAmount renders minor units as a decimal string using integer
// arithmetic only, e.g. 1999 -> "19.99".
func FormatAmount(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}
