package order

import (
	"context"

	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/domain/client"
	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/domain/payout"
)

// TransactionScope runs a unit of work atomically. All repositories handed to
// fn share one database transaction, which is rolled back when fn returns an error.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the repositories that take part in
// checkout, settlement and payout transactions.
type TransactionalRepositories interface {
	Orders() order.Repository
	Commissions() order.CommissionRepository
	Clients() client.Repository
	Payouts() payout.Repository
	Analytics() analytics.Repository
	Activity() analytics.ActivityRepository
}

// NoOpTransactionScope hands out plain repositories without a transaction.
// Used by unit tests.
type NoOpTransactionScope struct {
	OrderRepo      order.Repository
	CommissionRepo order.CommissionRepository
	ClientRepo     client.Repository
	PayoutRepo     payout.Repository
	AnalyticsRepo  analytics.Repository
	ActivityRepo   analytics.ActivityRepository
}

// Execute calls fn directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) Orders() order.Repository { return s.OrderRepo }
func (s *NoOpTransactionScope) Commissions() order.CommissionRepository { return s.CommissionRepo }
func (s *NoOpTransactionScope) Clients() client.Repository { return s.ClientRepo }
func (s *NoOpTransactionScope) Payouts() payout.Repository { return s.PayoutRepo }
func (s *NoOpTransactionScope) Analytics() analytics.Repository { return s.AnalyticsRepo }
func (s *NoOpTransactionScope) Activity() analytics.ActivityRepository { return s.ActivityRepo }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
