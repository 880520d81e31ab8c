package service_test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/stripe/stripe-go/v79"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/notification"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/verifier"
)

type recordingQueue struct {
	mu   sync.Mutex
	msgs []notification.OrderConfirmation
}

func (q *recordingQueue) Enqueue(msg notification.OrderConfirmation) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, msg)
	return true
}

func (q *recordingQueue) Messages() []notification.OrderConfirmation {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]notification.OrderConfirmation(nil), q.msgs...)
}

type stubLock struct {
	acquired bool
	err      error

	mu       sync.Mutex
	released []string
}

func (l *stubLock) Acquire(context.Context, models.Provider, string) (string, bool, error) {
	if !l.acquired || l.err != nil {
		return "", false, l.err
	}
	return "token-1", true, nil
}

func (l *stubLock) Release(_ context.Context, _ models.Provider, _ string, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released = append(l.released, token)
	return nil
}

func stripeEvent(id string, eventType stripe.EventType, object string) *verifier.StripeEvent {
	return &verifier.StripeEvent{
		Event: stripe.Event{
			ID:   id,
			Type: eventType,
			Data: &stripe.EventData{Raw: json.RawMessage(object)},
		},
	}
}

func squarePaymentEvent(eventID, eventType, paymentID, status string, amount int64) *verifier.SquareEvent {
	return &verifier.SquareEvent{
		MerchantID: "M1",
		Type:       eventType,
		ID:         eventID,
		Data: verifier.SquareEventData{
			Type: "payment",
			ID:   paymentID,
			Object: &verifier.SquareEventObject{
				Payment: &verifier.SquarePayment{
					ID:                paymentID,
					Status:            status,
					AmountMoney:       verifier.SquareMoney{Amount: amount, Currency: "usd"},
					BuyerEmailAddress: "buyer@example.com",
					BillingAddress:    &verifier.SquareAddress{FirstName: "Ada", LastName: "Lovelace"},
				},
			},
		},
	}
}
