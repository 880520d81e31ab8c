package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/repository"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/repository/memory"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/service"
)

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) FindByPayment(ctx context.Context, provider models.Provider, paymentID string) (*models.Order, error) {
	args := m.Called(ctx, provider, paymentID)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *mockOrderRepo) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	args := m.Called(ctx, paymentIntentID)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *mockOrderRepo) Create(ctx context.Context, order *models.Order) (bool, error) {
	args := m.Called(ctx, order)
	return args.Bool(0), args.Error(1)
}

func TestMaterialize_CreatesNormalizedOrder(t *testing.T) {
	store := memory.NewStore()
	queue := &recordingQueue{}
	m := service.NewOrderMaterializer(store, queue)
	eventID := uuid.New()

	order, created, err := m.Materialize(context.Background(), models.NewOrder{
		Provider:        models.ProviderStripe,
		PaymentID:       "pi_1",
		PaymentIntentID: "pi_1",
		CustomerEmail:   "a@b.com",
		TotalAmount:     1999,
		Currency:        "usd",
		WebhookEventID:  eventID,
	})

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1999), order.TotalAmount)
	assert.Equal(t, "USD", order.Currency)
	assert.Equal(t, models.OrderCompleted, order.Status)
	require.NotNil(t, order.CustomerEmail)
	assert.Equal(t, "a@b.com", *order.CustomerEmail)
	assert.Nil(t, order.CustomerName)
	require.NotNil(t, order.WebhookEventID)
	assert.Equal(t, eventID, *order.WebhookEventID)

	msgs := queue.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, order.ID, msgs[0].OrderID)
	assert.Equal(t, int64(1999), msgs[0].Amount)
}

func TestMaterialize_SkipsExistingPayment(t *testing.T) {
	store := memory.NewStore()
	queue := &recordingQueue{}
	m := service.NewOrderMaterializer(store, queue)
	in := models.NewOrder{Provider: models.ProviderSquare, PaymentID: "sq_1", TotalAmount: 100, Currency: "USD"}

	first, created, err := m.Materialize(context.Background(), in)
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := m.Materialize(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, queue.Messages(), 1)
	assert.Len(t, store.Orders(), 1)
}

func TestMaterialize_SkipsExistingPaymentIntent(t *testing.T) {
	store := memory.NewStore()
	m := service.NewOrderMaterializer(store, nil)

	_, created, err := m.Materialize(context.Background(), models.NewOrder{
		Provider: models.ProviderStripe, PaymentID: "ch_1", PaymentIntentID: "pi_1", TotalAmount: 500, Currency: "eur",
	})
	require.NoError(t, err)
	require.True(t, created)

	existing, created, err := m.Materialize(context.Background(), models.NewOrder{
		Provider: models.ProviderStripe, PaymentID: "cs_1", PaymentIntentID: "pi_1", TotalAmount: 500, Currency: "eur",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "ch_1", existing.PaymentID)
	assert.Len(t, store.Orders(), 1)
}

func TestMaterialize_ConstraintConflictIsNotAnError(t *testing.T) {
	repo := &mockOrderRepo{}
	queue := &recordingQueue{}
	m := service.NewOrderMaterializer(repo, queue)
	ctx := context.Background()

	repo.On("FindByPayment", ctx, models.ProviderStripe, "ch_1").Return(nil, repository.ErrNotFound).Once()
	repo.On("FindByPaymentIntent", ctx, "pi_1").Return(nil, repository.ErrNotFound).Once()
	repo.On("Create", ctx, mock.MatchedBy(func(o *models.Order) bool {
		return o.PaymentID == "ch_1" && o.Currency == "USD" && o.TotalAmount == 2500
	})).Return(false, nil).Once()

	order, created, err := m.Materialize(ctx, models.NewOrder{
		Provider: models.ProviderStripe, PaymentID: "ch_1", PaymentIntentID: "pi_1", TotalAmount: 2500, Currency: "usd",
	})

	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, order)
	assert.Empty(t, queue.Messages())
	repo.AssertExpectations(t)
}

func TestMaterialize_Errors(t *testing.T) {
	ctx := context.Background()
	dbErr := errors.New("connection refused")

	t.Run("missing payment id", func(t *testing.T) {
		repo := &mockOrderRepo{}
		_, _, err := service.NewOrderMaterializer(repo, nil).Materialize(ctx, models.NewOrder{
			Provider: models.ProviderStripe, TotalAmount: 1, Currency: "usd",
		})
		assert.ErrorIs(t, err, service.ErrMissingPaymentID)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("missing currency", func(t *testing.T) {
		repo := &mockOrderRepo{}
		_, _, err := service.NewOrderMaterializer(repo, nil).Materialize(ctx, models.NewOrder{
			Provider: models.ProviderSquare, PaymentID: "sq_1", TotalAmount: 1,
		})
		assert.ErrorIs(t, err, service.ErrMissingCurrency)
	})

	t.Run("negative amount", func(t *testing.T) {
		repo := &mockOrderRepo{}
		_, _, err := service.NewOrderMaterializer(repo, nil).Materialize(ctx, models.NewOrder{
			Provider: models.ProviderSquare, PaymentID: "sq_1", TotalAmount: -5, Currency: "usd",
		})
		assert.ErrorIs(t, err, service.ErrNegativeAmount)
	})

	t.Run("lookup failure", func(t *testing.T) {
		repo := &mockOrderRepo{}
		repo.On("FindByPayment", ctx, models.ProviderSquare, "sq_1").Return(nil, dbErr).Once()

		_, _, err := service.NewOrderMaterializer(repo, nil).Materialize(ctx, models.NewOrder{
			Provider: models.ProviderSquare, PaymentID: "sq_1", TotalAmount: 1, Currency: "usd",
		})
		assert.ErrorIs(t, err, dbErr)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("insert failure", func(t *testing.T) {
		repo := &mockOrderRepo{}
		repo.On("FindByPayment", ctx, models.ProviderSquare, "sq_1").Return(nil, repository.ErrNotFound).Once()
		repo.On("Create", ctx, mock.Anything).Return(false, dbErr).Once()

		_, created, err := service.NewOrderMaterializer(repo, nil).Materialize(ctx, models.NewOrder{
			Provider: models.ProviderSquare, PaymentID: "sq_1", TotalAmount: 1, Currency: "usd",
		})
		assert.ErrorIs(t, err, dbErr)
		assert.False(t, created)
		repo.AssertExpectations(t)
	})
}
