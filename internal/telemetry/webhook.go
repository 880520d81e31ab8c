package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
)

const (
	attrProvider  = attribute.Key("webhook.provider")
	attrEventID   = attribute.Key("webhook.event_id")
	attrEventType = attribute.Key("webhook.event_type")
	attrState     = attribute.Key("webhook.state")
	attrReason    = attribute.Key("webhook.rejection_reason")
)

// EventAttributes identifies a provider event on a span.
func EventAttributes(provider models.Provider, eventID, eventType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attrProvider.String(string(provider)),
		attrEventID.String(eventID),
		attrEventType.String(eventType),
	}
}

// EventLogger returns Logger scoped to a single provider event.
func EventLogger(provider models.Provider, eventID, eventType string) *zap.Logger {
	return Logger.With(
		zap.String("provider", string(provider)),
		zap.String("event_id", eventID),
		zap.String("event_type", eventType),
	)
}

// RecordState marks a pipeline transition on the active span and in the log.
func RecordState(ctx context.Context, log *zap.Logger, state models.ProcessingState) {
	trace.SpanFromContext(ctx).AddEvent("webhook.state", trace.WithAttributes(attrState.String(string(state))))
	log.Debug("Webhook event state", zap.String("state", string(state)))
}

// RecordRejection counts and logs a request turned away before its event was
// logged, tagging the request span with the reason.
func RecordRejection(ctx context.Context, provider models.Provider, reason string, err error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attrProvider.String(string(provider)), attrReason.String(reason))
	if err != nil {
		span.RecordError(err)
	}

	WebhookRejectionsTotal.WithLabelValues(string(provider), reason).Inc()
	Logger.Warn("Webhook rejected",
		zap.String("provider", string(provider)),
		zap.String("reason", reason),
		zap.Error(err),
	)
}
