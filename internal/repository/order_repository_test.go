package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/repository"
)

var orderColumns = []string{
	"id", "payment_provider", "payment_id", "payment_intent_id", "customer_email", "customer_name",
	"total_amount", "currency", "status", "webhook_event_id", "created_at", "updated_at",
}

func TestFindByPayment(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := repository.NewOrderRepository(db)

	id, eventID := uuid.New(), uuid.New()
	now := time.Now().UTC()
	query := regexp.QuoteMeta(`FROM orders WHERE payment_provider = $1 AND payment_id = $2`)

	mock.ExpectQuery(query).
		WithArgs("stripe", "pi_1").
		WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(
			id.String(), "stripe", "pi_1", "pi_1", "a@b.com", nil,
			int64(2500), "USD", "completed", eventID.String(), now, now,
		))
	mock.ExpectQuery(query).
		WithArgs("stripe", "pi_missing").
		WillReturnRows(sqlmock.NewRows(orderColumns))

	order, err := repo.FindByPayment(context.Background(), models.ProviderStripe, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, id, order.ID)
	assert.Equal(t, int64(2500), order.TotalAmount)
	assert.Equal(t, models.OrderCompleted, order.Status)
	require.NotNil(t, order.CustomerEmail)
	assert.Equal(t, "a@b.com", *order.CustomerEmail)
	assert.Nil(t, order.CustomerName)
	require.NotNil(t, order.WebhookEventID)
	assert.Equal(t, eventID, *order.WebhookEventID)

	_, err = repo.FindByPayment(context.Background(), models.ProviderStripe, "pi_missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByPaymentIntent_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE payment_intent_id = $1`)).
		WithArgs("pi_9").
		WillReturnRows(sqlmock.NewRows(orderColumns))

	_, err = repository.NewOrderRepository(db).FindByPaymentIntent(context.Background(), "pi_9")

	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder(t *testing.T) {
	insert := regexp.QuoteMeta(`ON CONFLICT DO NOTHING`)
	intent := "pi_1"

	newOrder := func() *models.Order {
		return &models.Order{
			PaymentProvider: models.ProviderStripe,
			PaymentID:       "ch_1",
			PaymentIntentID: &intent,
			TotalAmount:     1999,
			Currency:        "USD",
			Status:          models.OrderCompleted,
		}
	}

	t.Run("inserted", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		now := time.Now().UTC()
		mock.ExpectQuery(insert).
			WithArgs(sqlmock.AnyArg(), "stripe", "ch_1", "pi_1", nil, nil, int64(1999), "USD", "completed", nil).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		order := newOrder()
		created, err := repository.NewOrderRepository(db).Create(context.Background(), order)

		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, uuid.Nil, order.ID)
		assert.Equal(t, now, order.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("constraint conflict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(insert).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}))

		created, err := repository.NewOrderRepository(db).Create(context.Background(), newOrder())

		require.NoError(t, err)
		assert.False(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
