package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/domain/broker"
	"github.com/tradelinemarket/backend/internal/domain/client"
	"github.com/tradelinemarket/backend/internal/domain/identity"
	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/domain/payout"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/domain/shared/valueobject"
)

// =============================================================================
// Broker
// =============================================================================

// MockBrokerRepository is a mock implementation of broker.Repository
type MockBrokerRepository struct {
	mock.Mock
}

func (m *MockBrokerRepository) FindByID(ctx context.Context, id uuid.UUID) (*broker.Broker, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*broker.Broker), args.Error(1)
}

func (m *MockBrokerRepository) FindByEmail(ctx context.Context, email string) (*broker.Broker, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*broker.Broker), args.Error(1)
}

func (m *MockBrokerRepository) FindByAPIKey(ctx context.Context, apiKey string) (*broker.Broker, error) {
	args := m.Called(ctx, apiKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*broker.Broker), args.Error(1)
}

func (m *MockBrokerRepository) FindAll(ctx context.Context, filter shared.Filter) ([]broker.Broker, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]broker.Broker), args.Get(1).(int64), args.Error(2)
}

func (m *MockBrokerRepository) Save(ctx context.Context, b *broker.Broker) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBrokerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockBrokerRepository) CountByStatus(ctx context.Context, status broker.Status) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

// =============================================================================
// Order
// =============================================================================

// MockOrderRepository is a mock implementation of order.Repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByStripeSession(ctx context.Context, sessionID string) (*order.Order, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByStripePaymentIntent(ctx context.Context, intentID string) (*order.Order, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]order.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) MarkPaid(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	args := m.Called(ctx, orderNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) Stats(ctx context.Context, brokerID *uuid.UUID) (order.Stats, error) {
	args := m.Called(ctx, brokerID)
	return args.Get(0).(order.Stats), args.Error(1)
}

// MockCommissionRepository is a mock implementation of order.CommissionRepository
type MockCommissionRepository struct {
	mock.Mock
}

func (m *MockCommissionRepository) Create(ctx context.Context, c *order.CommissionRecord) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCommissionRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*order.CommissionRecord, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.CommissionRecord), args.Error(1)
}

func (m *MockCommissionRepository) FindPayable(ctx context.Context, brokerID uuid.UUID, period order.Period) ([]order.CommissionRecord, error) {
	args := m.Called(ctx, brokerID, period)
	return args.Get(0).([]order.CommissionRecord), args.Error(1)
}

func (m *MockCommissionRepository) FindByPayoutID(ctx context.Context, payoutID uuid.UUID) ([]order.CommissionRecord, error) {
	args := m.Called(ctx, payoutID)
	return args.Get(0).([]order.CommissionRecord), args.Error(1)
}

func (m *MockCommissionRepository) PendingTotals(ctx context.Context) ([]order.PendingCommission, error) {
	args := m.Called(ctx)
	return args.Get(0).([]order.PendingCommission), args.Error(1)
}

func (m *MockCommissionRepository) Update(ctx context.Context, c *order.CommissionRecord) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

// =============================================================================
// Client, admin, payout
// =============================================================================

// MockClientRepository is a mock implementation of client.Repository
type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*client.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Client), args.Error(1)
}

func (m *MockClientRepository) FindByEmail(ctx context.Context, email string) (*client.Client, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Client), args.Error(1)
}

func (m *MockClientRepository) FindByResetToken(ctx context.Context, token string) (*client.Client, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Client), args.Error(1)
}

func (m *MockClientRepository) Save(ctx context.Context, c *client.Client) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

// MockAdminRepository is a mock implementation of identity.AdminRepository
type MockAdminRepository struct {
	mock.Mock
}

func (m *MockAdminRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Admin, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Admin), args.Error(1)
}

func (m *MockAdminRepository) FindByEmail(ctx context.Context, email string) (*identity.Admin, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Admin), args.Error(1)
}

func (m *MockAdminRepository) Save(ctx context.Context, admin *identity.Admin) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

// MockPayoutRepository is a mock implementation of payout.Repository
type MockPayoutRepository struct {
	mock.Mock
}

func (m *MockPayoutRepository) FindByID(ctx context.Context, id uuid.UUID) (*payout.Payout, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payout.Payout), args.Error(1)
}

func (m *MockPayoutRepository) FindByBroker(ctx context.Context, brokerID uuid.UUID, filter shared.Filter) ([]payout.Payout, int64, error) {
	args := m.Called(ctx, brokerID, filter)
	return args.Get(0).([]payout.Payout), args.Get(1).(int64), args.Error(2)
}

func (m *MockPayoutRepository) Save(ctx context.Context, p *payout.Payout) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// =============================================================================
// Analytics
// =============================================================================

// MockAnalyticsRepository is a mock implementation of analytics.Repository
type MockAnalyticsRepository struct {
	mock.Mock
}

func (m *MockAnalyticsRepository) Increment(ctx context.Context, brokerID uuid.UUID, day time.Time, event analytics.WidgetEvent) error {
	args := m.Called(ctx, brokerID, day, event)
	return args.Error(0)
}

func (m *MockAnalyticsRepository) RecordOrder(ctx context.Context, brokerID uuid.UUID, day time.Time, revenue valueobject.Cents) error {
	args := m.Called(ctx, brokerID, day, revenue)
	return args.Error(0)
}

func (m *MockAnalyticsRepository) FindRange(ctx context.Context, brokerID uuid.UUID, since time.Time) ([]analytics.Daily, error) {
	args := m.Called(ctx, brokerID, since)
	return args.Get(0).([]analytics.Daily), args.Error(1)
}

// MockActivityRepository is a mock implementation of analytics.ActivityRepository
type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) Create(ctx context.Context, log *analytics.ActivityLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockActivityRepository) FindRecent(ctx context.Context, filter shared.Filter) ([]analytics.ActivityLog, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]analytics.ActivityLog), args.Get(1).(int64), args.Error(2)
}

// ActionIs matches an activity log argument by action name
func ActionIs(action string) any {
	return mock.MatchedBy(func(l *analytics.ActivityLog) bool {
		return l != nil && l.Action == action
	})
}

// MockWebhookLogRepository is a mock implementation of analytics.WebhookLogRepository
type MockWebhookLogRepository struct {
	mock.Mock
}

func (m *MockWebhookLogRepository) Create(ctx context.Context, log *analytics.WebhookLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

var (
	_ broker.Repository              = (*MockBrokerRepository)(nil)
	_ order.Repository               = (*MockOrderRepository)(nil)
	_ order.CommissionRepository     = (*MockCommissionRepository)(nil)
	_ client.Repository              = (*MockClientRepository)(nil)
	_ identity.AdminRepository       = (*MockAdminRepository)(nil)
	_ payout.Repository              = (*MockPayoutRepository)(nil)
	_ analytics.Repository           = (*MockAnalyticsRepository)(nil)
	_ analytics.ActivityRepository   = (*MockActivityRepository)(nil)
	_ analytics.WebhookLogRepository = (*MockWebhookLogRepository)(nil)
)
