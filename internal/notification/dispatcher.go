package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/webhook-ingestor/internal/telemetry"
)

const defaultSendTimeout = 10 * time.Second

// Dispatcher decouples notification delivery from the webhook request. Orders
// are committed before Enqueue is called and nothing that happens here is
// reported back to the caller.
type Dispatcher struct {
	notifiers   []Notifier
	queue       chan OrderConfirmation
	workers     int
	sendTimeout time.Duration

	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
}

func NewDispatcher(workers, queueSize int, notifiers ...Notifier) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Dispatcher{
		notifiers:   notifiers,
		queue:       make(chan OrderConfirmation, queueSize),
		workers:     workers,
		sendTimeout: defaultSendTimeout,
	}
}

// Start launches the worker pool. Workers exit once Stop has drained the queue.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	telemetry.Logger.Info("Notification dispatcher started",
		zap.Int("workers", d.workers),
		zap.Int("notifiers", len(d.notifiers)),
	)
}

// Enqueue hands a confirmation to the workers without blocking. It returns
// false when the message was dropped.
func (d *Dispatcher) Enqueue(msg OrderConfirmation) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		telemetry.Logger.Warn("Notification dropped, dispatcher stopped",
			zap.String("order_id", msg.OrderID.String()))
		return false
	}

	select {
	case d.queue <- msg:
		return true
	default:
		telemetry.NotificationsTotal.WithLabelValues("queue", "dropped").Inc()
		telemetry.Logger.Warn("Notification queue full, dropping confirmation",
			zap.String("order_id", msg.OrderID.String()),
			zap.String("payment_id", msg.PaymentID),
		)
		return false
	}
}

// Stop stops accepting messages and waits for queued ones to be delivered or
// for ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg OrderConfirmation) {
	for _, n := range d.notifiers {
		ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
		err := n.Notify(ctx, msg)
		cancel()

		if err != nil {
			telemetry.NotificationsTotal.WithLabelValues(n.Name(), "failed").Inc()
			telemetry.Logger.Warn("Order notification failed",
				zap.String("channel", n.Name()),
				zap.String("order_id", msg.OrderID.String()),
				zap.Error(err),
			)
			continue
		}
		telemetry.NotificationsTotal.WithLabelValues(n.Name(), "sent").Inc()
	}
}
