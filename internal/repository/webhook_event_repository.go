package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
)

type WebhookEventRepository struct {
	db *sql.DB
}

func NewWebhookEventRepository(db *sql.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

func (r *WebhookEventRepository) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM webhook_events WHERE event_id = $1)`, eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check webhook event %s: %w", eventID, err)
	}
	return exists, nil
}

// LogEvent inserts an unprocessed event row holding the payload bytes as
// received. A second writer for the same event_id gets ErrDuplicateEvent
// instead of a new row.
func (r *WebhookEventRepository) LogEvent(ctx context.Context, provider models.Provider, eventType, eventID string, payload []byte) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO webhook_events (id, provider, event_type, event_id, payload, processed)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id
	`, uuid.New(), provider, eventType, eventID, payload).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, ErrDuplicateEvent
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("log webhook event %s: %w", eventID, err)
	}
	return id, nil
}

func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID, success bool, errorMessage string) error {
	var errMsg sql.NullString
	if !success {
		errMsg = sql.NullString{String: errorMessage, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE webhook_events
		SET processed = TRUE, processed_at = NOW(), error_message = $1
		WHERE id = $2 AND processed = FALSE
	`, errMsg, id)
	if err != nil {
		return fmt.Errorf("mark webhook event %s processed: %w", id, err)
	}
	return nil
}

// ListFailed returns the most recent events whose processing recorded an error.
func (r *WebhookEventRepository) ListFailed(ctx context.Context, limit int) ([]models.WebhookEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, provider, event_type, event_id, payload, processed, processed_at, error_message, created_at
		FROM webhook_events
		WHERE error_message IS NOT NULL
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list failed webhook events: %w", err)
	}
	defer rows.Close()

	var events []models.WebhookEvent
	for rows.Next() {
		var (
			event       models.WebhookEvent
			payload     []byte
			processedAt sql.NullTime
			errMsg      sql.NullString
		)
		if err := rows.Scan(&event.ID, &event.Provider, &event.EventType, &event.EventID,
			&payload, &event.Processed, &processedAt, &errMsg, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook event: %w", err)
		}
		event.Payload = payload
		if processedAt.Valid {
			event.ProcessedAt = &processedAt.Time
		}
		if errMsg.Valid {
			event.ErrorMessage = &errMsg.String
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
