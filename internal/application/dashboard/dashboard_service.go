// Package dashboard aggregates the admin and broker landing pages and the
// activity trail.
package dashboard

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apporder "github.com/tradelinemarket/backend/internal/application/order"
	apppayout "github.com/tradelinemarket/backend/internal/application/payout"
	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/domain/shared"
)

// RecentOrderLimit is how many orders the dashboards show
const RecentOrderLimit = 10

// BrokerCounter counts registered brokers
type BrokerCounter interface {
	Counts(ctx context.Context) (total, active int64, err error)
}

// OrderReader reads order listings and totals
type OrderReader interface {
	Stats(ctx context.Context, brokerID *uuid.UUID) (apporder.StatsResponse, error)
	List(ctx context.Context, filter shared.Filter) ([]apporder.OrderResponse, int64, error)
	ListForBroker(ctx context.Context, brokerID uuid.UUID, filter shared.Filter) ([]apporder.OrderResponse, int64, error)
}

// CommissionReader reports unpaid commission
type CommissionReader interface {
	PendingForBroker(ctx context.Context, brokerID uuid.UUID) (*apppayout.PendingCommissionResponse, error)
}

// DashboardServiceDeps wires DashboardService
type DashboardServiceDeps struct {
	Brokers     BrokerCounter
	Orders      OrderReader
	Commissions CommissionReader
	Activity    analytics.ActivityRepository
	Logger      *zap.Logger
}

// DashboardService builds dashboard views
type DashboardService struct {
	brokers     BrokerCounter
	orders      OrderReader
	commissions CommissionReader
	activity    analytics.ActivityRepository
	logger      *zap.Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(deps DashboardServiceDeps) *DashboardService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		brokers:     deps.Brokers,
		orders:      deps.Orders,
		commissions: deps.Commissions,
		activity:    deps.Activity,
		logger:      logger.Named("dashboard"),
	}
}

// Admin returns platform totals and the most recent orders
func (s *DashboardService) Admin(ctx context.Context) (*AdminDashboardResponse, error) {
	total, active, err := s.brokers.Counts(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.orders.Stats(ctx, nil)
	if err != nil {
		return nil, err
	}
	recent, _, err := s.orders.List(ctx, recentFilter())
	if err != nil {
		return nil, err
	}
	return &AdminDashboardResponse{
		Brokers:       total,
		ActiveBrokers: active,
		StatsResponse: stats,
		RecentOrders:  recent,
	}, nil
}

// Broker returns one broker's totals, unpaid commission and recent orders
func (s *DashboardService) Broker(ctx context.Context, brokerID uuid.UUID) (*BrokerDashboardResponse, error) {
	stats, err := s.orders.Stats(ctx, &brokerID)
	if err != nil {
		return nil, err
	}
	pending, err := s.commissions.PendingForBroker(ctx, brokerID)
	if err != nil {
		return nil, err
	}
	recent, _, err := s.orders.ListForBroker(ctx, brokerID, recentFilter())
	if err != nil {
		return nil, err
	}
	return &BrokerDashboardResponse{
		StatsResponse:     stats,
		PendingCommission: pending.Total,
		RecentOrders:      recent,
	}, nil
}

// Activity lists audit entries newest first
func (s *DashboardService) Activity(ctx context.Context, filter shared.Filter) ([]ActivityResponse, int64, error) {
	logs, total, err := s.activity.FindRecent(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ActivityResponse, len(logs))
	for i := range logs {
		out[i] = ToActivityResponse(&logs[i])
	}
	return out, total, nil
}

func recentFilter() shared.Filter {
	f := shared.DefaultFilter()
	f.PageSize = RecentOrderLimit
	f.OrderBy = "created_at"
	f.OrderDir = "desc"
	return f
}
