package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/models"
	"github.com/akylbek/payment-system/webhook-ingestor/internal/repository"
)

// Store keeps webhook events and orders in process memory. It enforces the
// same uniqueness rules as the Postgres schema, so it is safe under
// concurrent deliveries within one process.
type Store struct {
	mu sync.RWMutex

	events        map[uuid.UUID]*models.WebhookEvent
	eventsByExtID map[string]uuid.UUID

	orders          map[uuid.UUID]*models.Order
	ordersByPayment map[string]uuid.UUID
	ordersByIntent  map[string]uuid.UUID
}

func NewStore() *Store {
	return &Store{
		events:          make(map[uuid.UUID]*models.WebhookEvent),
		eventsByExtID:   make(map[string]uuid.UUID),
		orders:          make(map[uuid.UUID]*models.Order),
		ordersByPayment: make(map[string]uuid.UUID),
		ordersByIntent:  make(map[string]uuid.UUID),
	}
}

func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.eventsByExtID[eventID]
	return ok, nil
}

func (s *Store) LogEvent(ctx context.Context, provider models.Provider, eventType, eventID string, payload []byte) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.eventsByExtID[eventID]; ok {
		return uuid.Nil, repository.ErrDuplicateEvent
	}

	event := &models.WebhookEvent{
		ID:        uuid.New(),
		Provider:  provider,
		EventType: eventType,
		EventID:   eventID,
		Payload:   append([]byte(nil), payload...),
		CreatedAt: time.Now().UTC(),
	}
	s.events[event.ID] = event
	s.eventsByExtID[eventID] = event.ID
	return event.ID, nil
}

func (s *Store) MarkProcessed(ctx context.Context, id uuid.UUID, success bool, errorMessage string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	if event.Processed {
		return nil
	}
	now := time.Now().UTC()
	event.Processed = true
	event.ProcessedAt = &now
	if !success {
		msg := errorMessage
		event.ErrorMessage = &msg
	}
	return nil
}

func (s *Store) ListFailed(ctx context.Context, limit int) ([]models.WebhookEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.WebhookEvent
	for _, event := range s.events {
		if event.ErrorMessage != nil {
			result = append(result, *event)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Event returns a copy of the stored event with the given provider event id.
func (s *Store) Event(eventID string) (models.WebhookEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.eventsByExtID[eventID]
	if !ok {
		return models.WebhookEvent{}, false
	}
	return *s.events[id], true
}

func (s *Store) EventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *Store) FindByPayment(ctx context.Context, provider models.Provider, paymentID string) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.ordersByPayment[paymentKey(provider, paymentID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	order := *s.orders[id]
	return &order, nil
}

func (s *Store) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.ordersByIntent[paymentIntentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	order := *s.orders[id]
	return &order, nil
}

func (s *Store) Create(ctx context.Context, order *models.Order) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := paymentKey(order.PaymentProvider, order.PaymentID)
	if _, ok := s.ordersByPayment[key]; ok {
		return false, nil
	}
	if order.PaymentIntentID != nil {
		if _, ok := s.ordersByIntent[*order.PaymentIntentID]; ok {
			return false, nil
		}
	}

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	stored := *order
	s.orders[order.ID] = &stored
	s.ordersByPayment[key] = order.ID
	if order.PaymentIntentID != nil {
		s.ordersByIntent[*order.PaymentIntentID] = order.ID
	}
	return true, nil
}

func (s *Store) Orders() []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Order, 0, len(s.orders))
	for _, order := range s.orders {
		result = append(result, *order)
	}
	return result
}

func paymentKey(provider models.Provider, paymentID string) string {
	return string(provider) + ":" + paymentID
}
