package repository

import (
	"context"
	"database/sql"
	"errors"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEvent = errors.New("webhook event already recorded")
)

// InitDB creates the webhook tables. The unique constraints are what keep
// concurrent deliveries from producing duplicate events or orders.
func InitDB(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS webhook_events (
			id UUID PRIMARY KEY,
			provider VARCHAR(20) NOT NULL,
			event_type VARCHAR(255) NOT NULL,
			event_id VARCHAR(255) NOT NULL,
			payload BYTEA NOT NULL,
			processed BOOLEAN NOT NULL DEFAULT FALSE,
			processed_at TIMESTAMPTZ,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT ux_webhook_events_event_id UNIQUE (event_id)
		)`,
		// Payloads are kept as the exact signed bytes. JSONB would reject
		// escapes such as \u0000 that providers are free to send.
		`DO $$
		BEGIN
			IF EXISTS (
				SELECT 1 FROM information_schema.columns
				WHERE table_name = 'webhook_events' AND column_name = 'payload' AND data_type = 'jsonb'
			) THEN
				ALTER TABLE webhook_events
					ALTER COLUMN payload TYPE BYTEA USING convert_to(payload::text, 'UTF8');
			END IF;
		END $$`,
		`CREATE INDEX IF NOT EXISTS idx_webhook_events_provider_type ON webhook_events(provider, event_type)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			payment_provider VARCHAR(20) NOT NULL,
			payment_id VARCHAR(255) NOT NULL,
			payment_intent_id VARCHAR(255),
			customer_email VARCHAR(320),
			customer_name VARCHAR(255),
			total_amount BIGINT NOT NULL,
			currency VARCHAR(3) NOT NULL,
			status VARCHAR(20) NOT NULL,
			webhook_event_id UUID REFERENCES webhook_events(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT ux_orders_provider_payment UNIQUE (payment_provider, payment_id)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_payment_intent_id ON orders(payment_intent_id) WHERE payment_intent_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return err
		}
	}

	return nil
}
