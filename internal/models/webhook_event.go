package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WebhookEvent is the append-only audit record of a verified provider
// notification. EventID is the provider-assigned dedup key.
type WebhookEvent struct {
	ID           uuid.UUID       `json:"id"`
	Provider     Provider        `json:"provider"`
	EventType    string          `json:"event_type"`
	EventID      string          `json:"event_id"`
	Payload      json.RawMessage `json:"payload"`
	Processed    bool            `json:"processed"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ProcessingState tracks where an inbound event is in the pipeline.
type ProcessingState string

const (
	StateReceived        ProcessingState = "received"
	StateVerified        ProcessingState = "verified"
	StateDuplicate       ProcessingState = "duplicate"
	StateLogged          ProcessingState = "logged"
	StateDispatched      ProcessingState = "dispatched"
	StateOrderCreated    ProcessingState = "order_created"
	StateSkipped         ProcessingState = "skipped"
	StateFailed          ProcessingState = "failed"
	StateMarkedProcessed ProcessingState = "marked_processed"
)
