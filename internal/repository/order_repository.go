package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
)

const orderColumns = `id, payment_provider, payment_id, payment_intent_id, customer_email, customer_name,
	total_amount, currency, status, webhook_event_id, created_at, updated_at`

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) FindByPayment(ctx context.Context, provider models.Provider, paymentID string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_provider = $1 AND payment_id = $2`, provider, paymentID)
	return scanOrder(row)
}

func (r *OrderRepository) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_intent_id = $1`, paymentIntentID)
	return scanOrder(row)
}

// Create inserts the order unless any uniqueness constraint already holds a
// row for the same payment, in which case it reports false and no error.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) (bool, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO orders (
			id, payment_provider, payment_id, payment_intent_id,
			customer_email, customer_name, total_amount, currency,
			status, webhook_event_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT DO NOTHING
		RETURNING created_at, updated_at
	`,
		order.ID,
		order.PaymentProvider,
		order.PaymentID,
		nullString(order.PaymentIntentID),
		nullString(order.CustomerEmail),
		nullString(order.CustomerName),
		order.TotalAmount,
		order.Currency,
		order.Status,
		nullUUID(order.WebhookEventID),
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create order for payment %s: %w", order.PaymentID, err)
	}
	return true, nil
}

func scanOrder(row *sql.Row) (*models.Order, error) {
	var (
		order           models.Order
		paymentIntentID sql.NullString
		customerEmail   sql.NullString
		customerName    sql.NullString
		webhookEventID  uuid.NullUUID
	)
	err := row.Scan(
		&order.ID,
		&order.PaymentProvider,
		&order.PaymentID,
		&paymentIntentID,
		&customerEmail,
		&customerName,
		&order.TotalAmount,
		&order.Currency,
		&order.Status,
		&webhookEventID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	order.PaymentIntentID = stringPtr(paymentIntentID)
	order.CustomerEmail = stringPtr(customerEmail)
	order.CustomerName = stringPtr(customerName)
	if webhookEventID.Valid {
		order.WebhookEventID = &webhookEventID.UUID
	}
	return &order, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
