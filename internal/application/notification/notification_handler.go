// Package notification sends customer, admin and broker emails in response to
// marketplace domain events.
package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tradelinemarket/backend/internal/domain/broker"
	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/domain/shared"
)

const (
	defaultQueueSize   = 64
	defaultSendTimeout = 30 * time.Second
)

// Mailer delivers the marketplace emails
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, o *order.Order) error
	SendNewOrderAdminNotice(ctx context.Context, o *order.Order) error
	SendPaymentConfirmation(ctx context.Context, o *order.Order) error
	SendOrderFulfilled(ctx context.Context, o *order.Order) error
	SendBrokerWelcome(ctx context.Context, b *broker.Broker) error
}

// Options tunes the delivery queue
type Options struct {
	QueueSize   int
	SendTimeout time.Duration
	Logger      *zap.Logger
}

// Handler turns order and broker events into emails. Events are queued and
// delivered by one background worker so SMTP latency never reaches the
// request that raised them.
type Handler struct {
	orders  order.Repository
	brokers broker.Repository
	mailer  Mailer
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
	queue  chan shared.DomainEvent
	done   chan struct{}
}

// NewHandler creates a Handler and starts its worker
func NewHandler(orders order.Repository, brokers broker.Repository, mailer Mailer, opts Options) *Handler {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		orders:  orders,
		brokers: brokers,
		mailer:  mailer,
		timeout: opts.SendTimeout,
		logger:  logger.Named("notifications"),
		queue:   make(chan shared.DomainEvent, opts.QueueSize),
		done:    make(chan struct{}),
	}
	go h.run()
	return h
}

// EventTypes returns the events that produce an email
func (h *Handler) EventTypes() []string {
	return []string{
		order.EventTypeOrderCreated,
		order.EventTypeOrderPaid,
		order.EventTypeOrderCompleted,
		broker.EventTypeBrokerCreated,
	}
}

// Handle queues the event. It blocks only while the queue is full.
func (h *Handler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return fmt.Errorf("notification handler closed, dropping %s", event.EventType())
	}
	select {
	case h.queue <- event:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue %s notification: %w", event.EventType(), ctx.Err())
	}
}

// Close stops accepting events and waits for queued ones to be delivered
func (h *Handler) Close() error {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.queue)
	}
	h.mu.Unlock()
	<-h.done
	return nil
}

func (h *Handler) run() {
	defer close(h.done)
	for event := range h.queue {
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		if err := h.deliver(ctx, event); err != nil {
			h.logger.Error("Failed to send notification",
				zap.String("event_type", event.EventType()),
				zap.String("aggregate_id", event.AggregateID().String()),
				zap.Error(err))
		}
		cancel()
	}
}

func (h *Handler) deliver(ctx context.Context, event shared.DomainEvent) error {
	if event.EventType() == broker.EventTypeBrokerCreated {
		b, err := h.brokers.FindByID(ctx, event.AggregateID())
		if err != nil {
			return fmt.Errorf("load broker: %w", err)
		}
		return h.mailer.SendBrokerWelcome(ctx, b)
	}

	o, err := h.orders.FindByID(ctx, event.AggregateID())
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	switch event.EventType() {
	case order.EventTypeOrderCreated:
		return errors.Join(
			h.mailer.SendOrderConfirmation(ctx, o),
			h.mailer.SendNewOrderAdminNotice(ctx, o))
	case order.EventTypeOrderPaid:
		return h.mailer.SendPaymentConfirmation(ctx, o)
	case order.EventTypeOrderCompleted:
		return h.mailer.SendOrderFulfilled(ctx, o)
	}
	return nil
}

var _ shared.EventHandler = (*Handler)(nil)
