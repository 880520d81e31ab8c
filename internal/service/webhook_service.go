package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/cache"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/interfaces"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/telemetry"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/verifier"
)

// ErrEventInFlight means another delivery of the same event currently holds
// the in-flight lock. Nothing has been stored for this delivery.
var ErrEventInFlight = errors.New("webhook event is already being processed")

// Outcome is what the HTTP layer reports back to the provider once an event
// has been accepted. Error carries an application failure that was recorded
// but must not trigger a provider retry.
type Outcome struct {
	State     models.ProcessingState
	Duplicate bool
	Error     string
}

// WebhookService runs a verified event through dedup, dispatch and
// completion. A non-nil error from Handle means infrastructure failed before
// the event was safely recorded and the provider should retry.
type WebhookService struct {
	guard  *IdempotencyGuard
	router *EventRouter
	lock   cache.InFlightLock
}

func NewWebhookService(
	events interfaces.WebhookEventRepository,
	orders interfaces.OrderRepository,
	confirmations ConfirmationQueue,
	lock cache.InFlightLock,
) *WebhookService {
	if lock == nil {
		lock = cache.NoopLock{}
	}
	return &WebhookService{
		guard:  NewIdempotencyGuard(events),
		router: NewEventRouter(NewOrderMaterializer(orders, confirmations)),
		lock:   lock,
	}
}

func (s *WebhookService) Handle(ctx context.Context, event verifier.Event) (Outcome, error) {
	provider := event.Provider()
	ctx, span := telemetry.Tracer.Start(ctx, "WebhookService.Handle",
		trace.WithAttributes(telemetry.EventAttributes(provider, event.EventID(), event.EventType())...),
	)
	defer span.End()

	log := telemetry.EventLogger(provider, event.EventID(), event.EventType())
	telemetry.RecordState(ctx, log, models.StateVerified)

	token, acquired, err := s.lock.Acquire(ctx, provider, event.EventID())
	switch {
	case err != nil:
		log.Warn("In-flight lock unavailable, relying on storage constraints", zap.Error(err))
	case !acquired:
		// Nothing is stored yet and the holder may still fail, so the
		// provider has to come back rather than be told this is a duplicate.
		log.Info("Event already in flight, asking provider to retry")
		span.SetAttributes(attribute.Bool("webhook.in_flight", true))
		return Outcome{}, ErrEventInFlight
	default:
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), provider, event.EventID(), token); err != nil {
				log.Warn("Failed to release in-flight lock", zap.Error(err))
			}
		}()
	}

	id, duplicate, err := s.guard.Admit(ctx, event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("Failed to record webhook event", zap.Error(err))
		return Outcome{}, err
	}
	if duplicate {
		log.Info("Duplicate webhook event, skipping")
		telemetry.RecordState(ctx, log, models.StateDuplicate)
		return s.duplicate(provider), nil
	}
	log = log.With(zap.String("webhook_event_id", id.String()))
	telemetry.RecordState(ctx, log, models.StateLogged)

	telemetry.RecordState(ctx, log, models.StateDispatched)
	state, routeErr := s.router.Route(ctx, event, id)
	if routeErr != nil {
		state = models.StateFailed
	}
	telemetry.RecordState(ctx, log, state)

	// The event is recorded; completion must not be lost to a client disconnect.
	if err := s.guard.Complete(context.WithoutCancel(ctx), id, routeErr); err != nil {
		log.Error("Failed to mark webhook event processed", zap.Error(err))
	} else {
		telemetry.RecordState(ctx, log, models.StateMarkedProcessed)
	}

	telemetry.WebhookEventsTotal.WithLabelValues(string(provider), string(state)).Inc()
	span.SetAttributes(attribute.String("webhook.state", string(state)))

	if routeErr != nil {
		span.RecordError(routeErr)
		span.SetStatus(codes.Error, routeErr.Error())
		log.Error("Webhook processing failed", zap.Error(routeErr))
		return Outcome{State: models.StateFailed, Error: routeErr.Error()}, nil
	}

	log.Info("Webhook event processed", zap.String("state", string(state)))
	return Outcome{State: state}, nil
}

func (s *WebhookService) duplicate(provider models.Provider) Outcome {
	telemetry.WebhookEventsTotal.WithLabelValues(string(provider), string(models.StateDuplicate)).Inc()
	return Outcome{State: models.StateDuplicate, Duplicate: true}
}
