package broker

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tradelinemarket/backend/internal/domain/shared"
)

// AggregateTypeBroker names the broker aggregate in events
const AggregateTypeBroker = "Broker"

// Event type constants
const (
	EventTypeBrokerCreated       = "broker.created"
	EventTypeBrokerStatusChanged = "broker.status_changed"
	EventTypeBrokerTermsChanged  = "broker.terms_changed"
	EventTypeBrokerSecretReset   = "broker.secret_reset"
)

// CreatedEvent is raised when a broker registers
type CreatedEvent struct {
	shared.BaseDomainEvent
	BrokerID uuid.UUID `json:"broker_id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
}

// NewCreatedEvent creates a new CreatedEvent
func NewCreatedEvent(b *Broker) *CreatedEvent {
	return &CreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBrokerCreated, AggregateTypeBroker, b.ID),
		BrokerID:        b.ID,
		Email:           b.Email,
		Name:            b.Name,
	}
}

// StatusChangedEvent is raised on approve, suspend and deactivate
type StatusChangedEvent struct {
	shared.BaseDomainEvent
	BrokerID uuid.UUID `json:"broker_id"`
	Status   Status    `json:"status"`
}

// NewStatusChangedEvent creates a new StatusChangedEvent
func NewStatusChangedEvent(b *Broker, status Status) *StatusChangedEvent {
	return &StatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBrokerStatusChanged, AggregateTypeBroker, b.ID),
		BrokerID:        b.ID,
		Status:          status,
	}
}

// TermsChangedEvent is raised when pricing terms change. Cached prices for the
// broker are stale after this event.
type TermsChangedEvent struct {
	shared.BaseDomainEvent
	BrokerID            uuid.UUID       `json:"broker_id"`
	RevenueSharePercent decimal.Decimal `json:"revenue_share_percent"`
	MarkupType          string          `json:"markup_type"`
	MarkupValue         decimal.Decimal `json:"markup_value"`
}

// NewTermsChangedEvent creates a new TermsChangedEvent
func NewTermsChangedEvent(b *Broker) *TermsChangedEvent {
	return &TermsChangedEvent{
		BaseDomainEvent:     shared.NewBaseDomainEvent(EventTypeBrokerTermsChanged, AggregateTypeBroker, b.ID),
		BrokerID:            b.ID,
		RevenueSharePercent: b.RevenueSharePercent,
		MarkupType:          b.MarkupType.String(),
		MarkupValue:         b.MarkupValue,
	}
}

// SecretResetEvent is raised when the API secret is rotated
type SecretResetEvent struct {
	shared.BaseDomainEvent
	BrokerID uuid.UUID `json:"broker_id"`
}

// NewSecretResetEvent creates a new SecretResetEvent
func NewSecretResetEvent(b *Broker) *SecretResetEvent {
	return &SecretResetEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBrokerSecretReset, AggregateTypeBroker, b.ID),
		BrokerID:        b.ID,
	}
}
