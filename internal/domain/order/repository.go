package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/domain/shared/valueobject"
)

// Repository defines the interface for order persistence
type Repository interface {
	// FindByID finds an order with its items
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByStripeSession finds the order a checkout session was created for
	FindByStripeSession(ctx context.Context, sessionID string) (*Order, error)

	// FindByStripePaymentIntent finds the order paid by a payment intent
	FindByStripePaymentIntent(ctx context.Context, intentID string) (*Order, error)

	// FindAll lists orders with items. Filters: "status", "payment_status",
	// "broker_id", "client_id".
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, int64, error)

	// Create inserts the order and its items
	Create(ctx context.Context, o *Order) error

	// Update persists header changes (status, payment, supplier fields)
	Update(ctx context.Context, o *Order) error

	// MarkPaid writes the paid state only if the row is not already PAID.
	// Returns shared.ErrAlreadyPaid when another writer won.
	MarkPaid(ctx context.Context, o *Order) error

	// Delete hard-deletes the order, its items, commission and webhook logs.
	// Returns shared.ErrNotFound when the id does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// ExistsByOrderNumber checks if an order number is taken
	ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error)

	// Stats aggregates dashboard totals, optionally for one broker
	Stats(ctx context.Context, brokerID *uuid.UUID) (Stats, error)
}

// Stats is the dashboard summary over orders
type Stats struct {
	Total           int64
	Pending         int64
	Completed       int64
	PlatformRevenue valueobject.Cents // platform_net_revenue over COMPLETED orders
	GrossSales      valueobject.Cents // total_charged over PAID orders
	BrokerEarnings  valueobject.Cents // revenue share + markup over PAID orders
}

// Period bounds a commission query to [From, To). Zero times are unbounded.
type Period struct {
	From time.Time
	To   time.Time
}

// CommissionRepository defines the interface for commission persistence
type CommissionRepository interface {
	// Create inserts a commission record
	Create(ctx context.Context, c *CommissionRecord) error

	// FindByOrderID finds the commission of an order
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*CommissionRecord, error)

	// FindPayable returns PENDING commissions of COMPLETED, PAID orders for a broker
	// created within the period.
	FindPayable(ctx context.Context, brokerID uuid.UUID, period Period) ([]CommissionRecord, error)

	// FindByPayoutID returns the commissions assigned to a payout
	FindByPayoutID(ctx context.Context, payoutID uuid.UUID) ([]CommissionRecord, error)

	// PendingTotals sums payable commission per broker
	PendingTotals(ctx context.Context) ([]PendingCommission, error)

	// Update persists payout status changes
	Update(ctx context.Context, c *CommissionRecord) error
}

// PendingCommission is the payable amount owed to one broker
type PendingCommission struct {
	BrokerID     uuid.UUID
	RecordCount  int64
	RevenueShare valueobject.Cents
	Markup       valueobject.Cents
	Total        valueobject.Cents
}
