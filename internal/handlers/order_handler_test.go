package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/handlers"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/repository/memory"
)

func newOrderEngine(store *memory.Store) *gin.Engine {
	h := handlers.NewOrderHandler(store, store)
	r := gin.New()
	r.GET("/api/orders/:provider/:payment_id", h.GetOrder)
	r.GET("/api/webhooks/events/failed", h.ListFailedEvents)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestGetOrder(t *testing.T) {
	store := memory.NewStore()
	_, err := store.Create(context.Background(), &models.Order{
		PaymentProvider: models.ProviderSquare,
		PaymentID:       "sq_pay_1",
		TotalAmount:     1999,
		Currency:        "USD",
		Status:          models.OrderCompleted,
	})
	require.NoError(t, err)
	r := newOrderEngine(store)

	w := get(r, "/api/orders/square/sq_pay_1")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "sq_pay_1", body["payment_id"])
	assert.Equal(t, float64(1999), body["total_amount"])
	assert.Equal(t, "completed", body["status"])

	assert.Equal(t, http.StatusNotFound, get(r, "/api/orders/square/unknown").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/api/orders/paypal/sq_pay_1").Code)
}

func TestListFailedEvents(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	id, err := store.LogEvent(ctx, models.ProviderStripe, "charge.succeeded", "evt_bad", []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, store.MarkProcessed(ctx, id, false, "payment id is required"))
	r := newOrderEngine(store)

	w := get(r, "/api/webhooks/events/failed?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["count"])
	events, ok := body["events"].([]interface{})
	require.True(t, ok)
	require.Len(t, events, 1)
	assert.Equal(t, "evt_bad", events[0].(map[string]interface{})["event_id"])

	assert.Equal(t, http.StatusBadRequest, get(r, "/api/webhooks/events/failed?limit=abc").Code)
}

func TestListFailedEvents_Empty(t *testing.T) {
	w := get(newOrderEngine(memory.NewStore()), "/api/webhooks/events/failed")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, []interface{}{}, body["events"])
}
