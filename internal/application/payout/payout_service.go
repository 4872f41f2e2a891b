// Package payout batches broker commissions into payouts and records when
// they are sent.
package payout

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apporder "github.com/tradelinemarket/backend/internal/application/order"
	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/domain/broker"
	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/domain/payout"
	"github.com/tradelinemarket/backend/internal/domain/shared"
)

// PayoutServiceDeps wires PayoutService
type PayoutServiceDeps struct {
	Scope       apporder.TransactionScope
	Payouts     payout.Repository
	Commissions order.CommissionRepository
	Brokers     broker.Repository
	Logger      *zap.Logger
}

// PayoutService handles broker payout operations
type PayoutService struct {
	scope       apporder.TransactionScope
	payouts     payout.Repository
	commissions order.CommissionRepository
	brokers     broker.Repository
	logger      *zap.Logger
}

// NewPayoutService creates a new PayoutService
func NewPayoutService(deps PayoutServiceDeps) *PayoutService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayoutService{
		scope:       deps.Scope,
		payouts:     deps.Payouts,
		commissions: deps.Commissions,
		brokers:     deps.Brokers,
		logger:      logger.Named("payouts"),
	}
}

// Pending lists payable commission totals per broker, with broker names
func (s *PayoutService) Pending(ctx context.Context) ([]PendingCommissionResponse, error) {
	totals, err := s.commissions.PendingTotals(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PendingCommissionResponse, len(totals))
	for i, t := range totals {
		out[i] = toPendingResponse(t)
		b, err := s.brokers.FindByID(ctx, t.BrokerID)
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				return nil, err
			}
			continue
		}
		out[i].BrokerName = b.Name
		out[i].BrokerEmail = b.Email
	}
	return out, nil
}

// PendingForBroker returns the payable commission owed to one broker
func (s *PayoutService) PendingForBroker(ctx context.Context, brokerID uuid.UUID) (*PendingCommissionResponse, error) {
	totals, err := s.commissions.PendingTotals(ctx)
	if err != nil {
		return nil, err
	}
	resp := toPendingResponse(order.PendingCommission{BrokerID: brokerID})
	for _, t := range totals {
		if t.BrokerID == brokerID {
			resp = toPendingResponse(t)
			break
		}
	}
	return &resp, nil
}

// Create batches the broker's payable commissions in the period into a
// PENDING payout. The period end is inclusive of its whole day.
func (s *PayoutService) Create(ctx context.Context, req CreatePayoutRequest, actor analytics.Actor) (*PayoutResponse, error) {
	b, err := s.brokers.FindByID(ctx, req.BrokerID)
	if err != nil {
		return nil, err
	}

	query := order.Period{From: req.PeriodStart}
	if !req.PeriodEnd.IsZero() {
		query.To = analytics.Day(req.PeriodEnd).AddDate(0, 0, 1)
	}

	var created *payout.Payout
	err = s.scope.Execute(ctx, func(repos apporder.TransactionalRepositories) error {
		commissions, err := repos.Commissions().FindPayable(ctx, b.ID, query)
		if err != nil {
			return err
		}
		p, err := payout.New(b.ID, order.Period{From: req.PeriodStart, To: req.PeriodEnd}, req.PaymentMethod, commissions)
		if err != nil {
			return err
		}
		for i := range commissions {
			if err := repos.Commissions().Update(ctx, &commissions[i]); err != nil {
				return err
			}
		}
		if err := repos.Payouts().Save(ctx, p); err != nil {
			return err
		}
		entry := analytics.NewActivityLog(analytics.ActionPayoutCreated, "payout", &p.ID, actor, map[string]any{
			"broker_id":        b.ID.String(),
			"total_amount":     p.TotalAmount.USD().StringFixed(2),
			"commission_count": p.CommissionCount,
		})
		if err := repos.Activity().Create(ctx, entry); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payout created",
		zap.String("payout_id", created.ID.String()),
		zap.String("broker_id", b.ID.String()),
		zap.Int("commissions", created.CommissionCount),
		zap.Int64("total_cents", created.TotalAmount.Int64()))
	resp := ToPayoutResponse(created)
	resp.BrokerName = b.Name
	return &resp, nil
}

// Process marks a payout sent and completes its commissions
func (s *PayoutService) Process(ctx context.Context, id uuid.UUID, req ProcessPayoutRequest, actor analytics.Actor) (*PayoutResponse, error) {
	var processed *payout.Payout
	err := s.scope.Execute(ctx, func(repos apporder.TransactionalRepositories) error {
		p, err := repos.Payouts().FindByID(ctx, id)
		if err != nil {
			return err
		}
		commissions, err := repos.Commissions().FindByPayoutID(ctx, p.ID)
		if err != nil {
			return err
		}
		if err := p.Process(req.TransactionID, commissions); err != nil {
			return err
		}
		for i := range commissions {
			if err := repos.Commissions().Update(ctx, &commissions[i]); err != nil {
				return err
			}
		}
		if err := repos.Payouts().Save(ctx, p); err != nil {
			return err
		}
		entry := analytics.NewActivityLog(analytics.ActionPayoutProcessed, "payout", &p.ID, actor, map[string]any{
			"broker_id":      p.BrokerID.String(),
			"transaction_id": p.TransactionID,
		})
		if err := repos.Activity().Create(ctx, entry); err != nil {
			return err
		}
		processed = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payout processed",
		zap.String("payout_id", processed.ID.String()),
		zap.String("transaction_id", processed.TransactionID))
	resp := ToPayoutResponse(processed)
	return &resp, nil
}

// ListForBroker returns a page of a broker's payouts
func (s *PayoutService) ListForBroker(ctx context.Context, brokerID uuid.UUID, filter shared.Filter) ([]PayoutResponse, int64, error) {
	list, total, err := s.payouts.FindByBroker(ctx, brokerID, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]PayoutResponse, len(list))
	for i := range list {
		out[i] = ToPayoutResponse(&list[i])
	}
	return out, total, nil
}
