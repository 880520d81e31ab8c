package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/interfaces"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/repository"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/verifier"
)

// IdempotencyGuard records each provider event at most once. The unique
// constraint on event_id is authoritative; the existence check only spares
// the insert for plain redeliveries.
type IdempotencyGuard struct {
	events interfaces.WebhookEventRepository
}

func NewIdempotencyGuard(events interfaces.WebhookEventRepository) *IdempotencyGuard {
	return &IdempotencyGuard{events: events}
}

// Admit logs the event and returns its audit id. duplicate is true when the
// event was already recorded by this or a concurrent delivery.
func (g *IdempotencyGuard) Admit(ctx context.Context, event verifier.Event) (id uuid.UUID, duplicate bool, err error) {
	processed, err := g.events.IsEventProcessed(ctx, event.EventID())
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("check event %s: %w", event.EventID(), err)
	}
	if processed {
		return uuid.Nil, true, nil
	}

	id, err = g.events.LogEvent(ctx, event.Provider(), event.EventType(), event.EventID(), event.Payload())
	if errors.Is(err, repository.ErrDuplicateEvent) {
		return uuid.Nil, true, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("log event %s: %w", event.EventID(), err)
	}
	return id, false, nil
}

// Complete marks the audit row processed, recording errorMessage on failure.
func (g *IdempotencyGuard) Complete(ctx context.Context, id uuid.UUID, processErr error) error {
	if processErr != nil {
		return g.events.MarkProcessed(ctx, id, false, processErr.Error())
	}
	return g.events.MarkProcessed(ctx, id, true, "")
}
