package messaging

import (
	"context"

	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// LoggingHandler records every event at info level
type LoggingHandler struct {
	logger *zap.Logger
}

// NewLoggingHandler creates a LoggingHandler
func NewLoggingHandler(logger *zap.Logger) *LoggingHandler {
	return &LoggingHandler{logger: logger}
}

func (h *LoggingHandler) EventTypes() []string { return nil }

func (h *LoggingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.logger.Info("Domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_id", event.AggregateID().String()))
	return nil
}

// NewOrderEventBus wires the bus for the configured environment. Without
// brokers events are only logged.
func NewOrderEventBus(cfg config.KafkaConfig, logger *zap.Logger) *InMemoryEventBus {
	bus := NewInMemoryEventBus(logger)
	if len(cfg.Brokers) == 0 {
		bus.Subscribe(NewLoggingHandler(bus.logger))
		bus.logger.Info("Kafka brokers not configured, order events are logged only")
		return bus
	}
	writer := NewKafkaWriter(cfg)
	bus.Subscribe(NewKafkaPublisher(writer, cfg.WriteTimeout, logger))
	bus.logger.Info("Order events stream to Kafka",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", writer.Topic))
	return bus
}
