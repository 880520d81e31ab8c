package memory_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/repository"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/repository/memory"
)

func TestStore_EventLifecycle(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	processed, err := store.IsEventProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, processed)

	id, err := store.LogEvent(ctx, models.ProviderStripe, "payment_intent.succeeded", "evt_1", []byte(`{}`))
	require.NoError(t, err)

	processed, err = store.IsEventProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, processed)

	_, err = store.LogEvent(ctx, models.ProviderStripe, "payment_intent.succeeded", "evt_1", []byte(`{}`))
	assert.ErrorIs(t, err, repository.ErrDuplicateEvent)

	require.NoError(t, store.MarkProcessed(ctx, id, false, "boom"))
	event, ok := store.Event("evt_1")
	require.True(t, ok)
	assert.True(t, event.Processed)
	require.NotNil(t, event.ErrorMessage)
	assert.Equal(t, "boom", *event.ErrorMessage)

	failed, err := store.ListFailed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "evt_1", failed[0].EventID)

	assert.ErrorIs(t, store.MarkProcessed(ctx, uuid.New(), true, ""), repository.ErrNotFound)
}

func TestStore_ConcurrentLogEventSingleWinner(t *testing.T) {
	store := memory.NewStore()
	var (
		wg      sync.WaitGroup
		winners int32
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.LogEvent(context.Background(), models.ProviderSquare, "payment.updated", "sq_evt", nil)
			if err == nil {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners)
	assert.Equal(t, 1, store.EventCount())
}

func TestStore_OrderUniqueness(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	intent := "pi_1"

	created, err := store.Create(ctx, &models.Order{
		PaymentProvider: models.ProviderStripe,
		PaymentID:       "ch_1",
		PaymentIntentID: &intent,
		TotalAmount:     1000,
		Currency:        "USD",
		Status:          models.OrderCompleted,
	})
	require.NoError(t, err)
	assert.True(t, created)

	// Same payment.
	created, err = store.Create(ctx, &models.Order{PaymentProvider: models.ProviderStripe, PaymentID: "ch_1"})
	require.NoError(t, err)
	assert.False(t, created)

	// Different payment, same intent.
	created, err = store.Create(ctx, &models.Order{PaymentProvider: models.ProviderStripe, PaymentID: "cs_1", PaymentIntentID: &intent})
	require.NoError(t, err)
	assert.False(t, created)

	// Same payment id under another provider is a different payment.
	created, err = store.Create(ctx, &models.Order{PaymentProvider: models.ProviderSquare, PaymentID: "ch_1"})
	require.NoError(t, err)
	assert.True(t, created)

	order, err := store.FindByPaymentIntent(ctx, intent)
	require.NoError(t, err)
	assert.Equal(t, "ch_1", order.PaymentID)

	_, err = store.FindByPayment(ctx, models.ProviderSquare, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.Len(t, store.Orders(), 2)
}

func TestStore_ListFailedLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	for i := 0; i < 5; i++ {
		id, err := store.LogEvent(ctx, models.ProviderStripe, "charge.succeeded", fmt.Sprintf("evt_%d", i), nil)
		require.NoError(t, err)
		require.NoError(t, store.MarkProcessed(ctx, id, i%2 == 1, "failed"))
	}

	failed, err := store.ListFailed(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, failed, 2)

	all, err := store.ListFailed(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
