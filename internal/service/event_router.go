package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/telemetry"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/verifier"
)

const defaultCurrency = "USD"

// Materializer is the order-creation step the router hands terminal
// payments to.
type Materializer interface {
	Materialize(ctx context.Context, in models.NewOrder) (*models.Order, bool, error)
}

// EventRouter maps a verified event to an action by provider and type.
// Types it does not act on are skipped without error.
type EventRouter struct {
	materializer Materializer
}

func NewEventRouter(materializer Materializer) *EventRouter {
	return &EventRouter{materializer: materializer}
}

// Route returns StateOrderCreated, StateSkipped, or StateFailed together
// with the application error that caused the failure.
func (r *EventRouter) Route(ctx context.Context, event verifier.Event, webhookEventID uuid.UUID) (models.ProcessingState, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "EventRouter.Route")
	defer span.End()

	switch e := event.(type) {
	case *verifier.StripeEvent:
		return r.routeStripe(ctx, e, webhookEventID)
	case *verifier.SquareEvent:
		return r.routeSquare(ctx, e, webhookEventID)
	default:
		return models.StateFailed, fmt.Errorf("unsupported event %T", event)
	}
}

func (r *EventRouter) routeStripe(ctx context.Context, e *verifier.StripeEvent, webhookEventID uuid.UUID) (models.ProcessingState, error) {
	switch e.Event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := e.DecodeObject(&pi); err != nil {
			return models.StateFailed, err
		}
		return r.materialize(ctx, orderFromPaymentIntent(&pi, webhookEventID))

	case stripe.EventTypeChargeSucceeded:
		var ch stripe.Charge
		if err := e.DecodeObject(&ch); err != nil {
			return models.StateFailed, err
		}
		return r.materialize(ctx, orderFromCharge(&ch, webhookEventID))

	case stripe.EventTypeCheckoutSessionCompleted:
		var cs stripe.CheckoutSession
		if err := e.DecodeObject(&cs); err != nil {
			return models.StateFailed, err
		}
		return r.materialize(ctx, orderFromCheckoutSession(&cs, webhookEventID))

	default:
		telemetry.Logger.Info("Unhandled Stripe event type",
			zap.String("event_id", e.EventID()),
			zap.String("event_type", e.EventType()),
		)
		return models.StateSkipped, nil
	}
}

func (r *EventRouter) routeSquare(ctx context.Context, e *verifier.SquareEvent, webhookEventID uuid.UUID) (models.ProcessingState, error) {
	switch e.Type {
	case verifier.SquareEventPaymentUpdated:
		payment := e.Payment()
		if payment == nil {
			return models.StateFailed, ErrMissingPaymentObject
		}
		if payment.Status != verifier.SquarePaymentStatusCompleted {
			telemetry.Logger.Info("Square payment not completed, skipping",
				zap.String("event_id", e.ID),
				zap.String("payment_id", payment.ID),
				zap.String("status", payment.Status),
			)
			return models.StateSkipped, nil
		}
		return r.materialize(ctx, orderFromSquarePayment(payment, webhookEventID))

	case verifier.SquareEventPaymentCreated:
		// Orders are created when the payment completes, not when it is created.
		telemetry.Logger.Info("Square payment created",
			zap.String("event_id", e.ID),
			zap.String("payment_id", e.Data.ID),
		)
		return models.StateSkipped, nil

	default:
		telemetry.Logger.Info("Unhandled Square event type",
			zap.String("event_id", e.ID),
			zap.String("event_type", e.Type),
		)
		return models.StateSkipped, nil
	}
}

func (r *EventRouter) materialize(ctx context.Context, in models.NewOrder) (models.ProcessingState, error) {
	_, created, err := r.materializer.Materialize(ctx, in)
	if err != nil {
		return models.StateFailed, err
	}
	if !created {
		return models.StateSkipped, nil
	}
	return models.StateOrderCreated, nil
}

func orderFromPaymentIntent(pi *stripe.PaymentIntent, webhookEventID uuid.UUID) models.NewOrder {
	in := models.NewOrder{
		Provider:        models.ProviderStripe,
		PaymentID:       pi.ID,
		PaymentIntentID: pi.ID,
		CustomerEmail:   pi.ReceiptEmail,
		TotalAmount:     pi.Amount,
		Currency:        string(pi.Currency),
		WebhookEventID:  webhookEventID,
	}
	if pi.Shipping != nil {
		in.CustomerName = pi.Shipping.Name
	}
	return in
}

func orderFromCharge(ch *stripe.Charge, webhookEventID uuid.UUID) models.NewOrder {
	in := models.NewOrder{
		Provider:       models.ProviderStripe,
		PaymentID:      ch.ID,
		CustomerEmail:  ch.ReceiptEmail,
		TotalAmount:    ch.Amount,
		Currency:       string(ch.Currency),
		WebhookEventID: webhookEventID,
	}
	if ch.PaymentIntent != nil {
		in.PaymentIntentID = ch.PaymentIntent.ID
	}
	if ch.BillingDetails != nil {
		if ch.BillingDetails.Email != "" {
			in.CustomerEmail = ch.BillingDetails.Email
		}
		in.CustomerName = ch.BillingDetails.Name
	}
	return in
}

func orderFromCheckoutSession(cs *stripe.CheckoutSession, webhookEventID uuid.UUID) models.NewOrder {
	in := models.NewOrder{
		Provider:       models.ProviderStripe,
		PaymentID:      cs.ID,
		CustomerEmail:  cs.CustomerEmail,
		TotalAmount:    cs.AmountTotal,
		Currency:       string(cs.Currency),
		WebhookEventID: webhookEventID,
	}
	if in.Currency == "" {
		in.Currency = defaultCurrency
	}
	if cs.PaymentIntent != nil {
		in.PaymentIntentID = cs.PaymentIntent.ID
	}
	if cs.CustomerDetails != nil {
		if in.CustomerEmail == "" {
			in.CustomerEmail = cs.CustomerDetails.Email
		}
		in.CustomerName = cs.CustomerDetails.Name
	}
	return in
}

func orderFromSquarePayment(p *verifier.SquarePayment, webhookEventID uuid.UUID) models.NewOrder {
	name := p.BillingAddress.FullName()
	if name == "" {
		name = p.ShippingAddress.FullName()
	}
	return models.NewOrder{
		Provider:       models.ProviderSquare,
		PaymentID:      p.ID,
		CustomerEmail:  p.BuyerEmailAddress,
		CustomerName:   name,
		TotalAmount:    p.AmountMoney.Amount,
		Currency:       p.AmountMoney.Currency,
		WebhookEventID: webhookEventID,
	}
}
