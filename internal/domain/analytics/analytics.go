// Package analytics records widget funnel counters, the admin activity trail
// and inbound webhook payloads.
package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/domain/shared/valueobject"
)

// WidgetEvent is a funnel step reported by the embedded widget
type WidgetEvent string

const (
	WidgetEventView            WidgetEvent = "view"
	WidgetEventClick           WidgetEvent = "click"
	WidgetEventAddToCart       WidgetEvent = "add_to_cart"
	WidgetEventCheckoutStarted WidgetEvent = "checkout_started"
)

// IsValid checks if the event is a known funnel step
func (e WidgetEvent) IsValid() bool {
	switch e {
	case WidgetEventView, WidgetEventClick, WidgetEventAddToCart, WidgetEventCheckoutStarted:
		return true
	}
	return false
}

// Column returns the counter column incremented by the event
func (e WidgetEvent) Column() string {
	switch e {
	case WidgetEventView:
		return "views"
	case WidgetEventClick:
		return "clicks"
	case WidgetEventAddToCart:
		return "add_to_carts"
	case WidgetEventCheckoutStarted:
		return "checkouts_started"
	}
	return ""
}

// Daily holds one broker's counters for one UTC day
type Daily struct {
	ID               uuid.UUID
	BrokerID         uuid.UUID
	Date             time.Time
	Views            int64
	Clicks           int64
	AddToCarts       int64
	CheckoutsStarted int64
	Orders           int64
	Revenue          valueobject.Cents
}

// ConversionRate is orders per view, in percent
func (d Daily) ConversionRate() float64 {
	if d.Views == 0 {
		return 0
	}
	return float64(d.Orders) / float64(d.Views) * 100
}

// Day truncates t to its UTC calendar day
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Summary totals a range of daily rows
type Summary struct {
	Views            int64             `json:"views"`
	Clicks           int64             `json:"clicks"`
	AddToCarts       int64             `json:"add_to_carts"`
	CheckoutsStarted int64             `json:"checkouts_started"`
	Orders           int64             `json:"orders"`
	Revenue          valueobject.Cents `json:"revenue"`
}

// Summarize totals daily rows
func Summarize(rows []Daily) Summary {
	var s Summary
	for _, r := range rows {
		s.Views += r.Views
		s.Clicks += r.Clicks
		s.AddToCarts += r.AddToCarts
		s.CheckoutsStarted += r.CheckoutsStarted
		s.Orders += r.Orders
		s.Revenue = s.Revenue.Add(r.Revenue)
	}
	return s
}

// Repository defines the interface for analytics persistence
type Repository interface {
	// Increment bumps the counter for event on the given day, creating the row if needed
	Increment(ctx context.Context, brokerID uuid.UUID, day time.Time, event WidgetEvent) error

	// RecordOrder bumps orders and revenue for the given day
	RecordOrder(ctx context.Context, brokerID uuid.UUID, day time.Time, revenue valueobject.Cents) error

	// FindRange returns rows for a broker with Date >= since, oldest first
	FindRange(ctx context.Context, brokerID uuid.UUID, since time.Time) ([]Daily, error)
}

// Actor identifies who performed an audited action
type Actor struct {
	Role string
	ID   *uuid.UUID
}

// SystemActor is used for webhook and background actions
var SystemActor = Actor{Role: "system"}

// ActivityLog is one audited action
type ActivityLog struct {
	ID         uuid.UUID
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	Actor      Actor
	Metadata   map[string]any
	CreatedAt  time.Time
}

// Audited action names
const (
	ActionBrokerCreated     = "BROKER_CREATED"
	ActionBrokerUpdated     = "BROKER_UPDATED"
	ActionBrokerApproved    = "BROKER_APPROVED"
	ActionBrokerSuspended   = "BROKER_SUSPENDED"
	ActionBrokerDeactivated = "BROKER_DEACTIVATED"
	ActionBrokerSecretReset = "BROKER_SECRET_RESET"
	ActionOrderCreated      = "ORDER_CREATED"
	ActionOrderMarkedPaid   = "ORDER_MARKED_PAID"
	ActionOrderDeleted      = "ORDER_DELETED"
	ActionOrderCancelled    = "ORDER_CANCELLED"
	ActionOrderRefunded     = "ORDER_REFUNDED"
	ActionOrderRefundDue    = "ORDER_REFUND_REQUIRED"
	ActionOrderFulfilled    = "ORDER_SUBMITTED_TO_SUPPLIER"
	ActionOrderCompleted    = "ORDER_COMPLETED"
	ActionPayoutCreated     = "PAYOUT_CREATED"
	ActionPayoutProcessed   = "PAYOUT_PROCESSED"
	ActionDocumentsVerified = "DOCUMENTS_VERIFIED"
	ActionAutomationCreated = "AUTOMATION_SESSION_CREATED"
	ActionAdminLogin        = "ADMIN_LOGIN"
)

// NewActivityLog creates an activity entry
func NewActivityLog(action, entityType string, entityID *uuid.UUID, actor Actor, metadata map[string]any) *ActivityLog {
	return &ActivityLog{
		ID:         uuid.New(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Actor:      actor,
		Metadata:   metadata,
		CreatedAt:  time.Now(),
	}
}

// ActivityRepository defines the interface for activity log persistence
type ActivityRepository interface {
	// Create appends an entry
	Create(ctx context.Context, log *ActivityLog) error

	// FindRecent lists entries newest first
	FindRecent(ctx context.Context, filter shared.Filter) ([]ActivityLog, int64, error)
}

// WebhookStatus is the processing outcome of an inbound webhook
type WebhookStatus string

const (
	WebhookStatusReceived  WebhookStatus = "RECEIVED"
	WebhookStatusProcessed WebhookStatus = "PROCESSED"
	WebhookStatusIgnored   WebhookStatus = "IGNORED"
	WebhookStatusFailed    WebhookStatus = "FAILED"
)

// WebhookLog stores an inbound webhook payload
type WebhookLog struct {
	ID        uuid.UUID
	Source    string
	EventID   string
	EventType string
	Payload   []byte
	Status    WebhookStatus
	Error     string
	OrderID   *uuid.UUID
	CreatedAt time.Time
}

// NewWebhookLog creates a RECEIVED log entry
func NewWebhookLog(source, eventID, eventType string, payload []byte) *WebhookLog {
	return &WebhookLog{
		ID:        uuid.New(),
		Source:    source,
		EventID:   eventID,
		EventType: eventType,
		Payload:   payload,
		Status:    WebhookStatusReceived,
		CreatedAt: time.Now(),
	}
}

// WebhookLogRepository defines the interface for webhook log persistence
type WebhookLogRepository interface {
	// Create stores a log entry
	Create(ctx context.Context, log *WebhookLog) error
}
