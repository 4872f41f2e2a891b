// Package payout models commission payments to brokers.
package payout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/domain/shared/valueobject"
)

// Status of a payout batch
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
)

// Payout pays a broker the commissions earned over a period
type Payout struct {
	shared.BaseEntity
	BrokerID          uuid.UUID
	TotalAmount       valueobject.Cents
	TotalRevenueShare valueobject.Cents
	TotalMarkup       valueobject.Cents
	PeriodStart       time.Time
	PeriodEnd         time.Time
	PaymentMethod     string
	Status            Status
	TransactionID     string
	ProcessedAt       *time.Time
	CommissionCount   int
}

// New creates a pending payout covering the given commissions and assigns
// each commission to it.
func New(brokerID uuid.UUID, period order.Period, paymentMethod string, commissions []order.CommissionRecord) (*Payout, error) {
	if brokerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BROKER", "Broker ID cannot be empty")
	}
	if !period.To.IsZero() && period.To.Before(period.From) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period end must not be before period start")
	}
	if len(commissions) == 0 {
		return nil, shared.NewDomainError("NO_COMMISSIONS", "No pending commissions in the selected period")
	}

	p := &Payout{
		BaseEntity:      shared.NewBaseEntity(),
		BrokerID:        brokerID,
		PeriodStart:     period.From,
		PeriodEnd:       period.To,
		PaymentMethod:   strings.TrimSpace(paymentMethod),
		Status:          StatusPending,
		CommissionCount: len(commissions),
	}
	for i := range commissions {
		c := &commissions[i]
		if c.BrokerID != brokerID {
			return nil, shared.NewDomainError("INVALID_COMMISSION", fmt.Sprintf("Commission %s belongs to another broker", c.ID))
		}
		if err := c.AssignToPayout(p.ID); err != nil {
			return nil, err
		}
		p.TotalRevenueShare = p.TotalRevenueShare.Add(c.RevenueShareAmount)
		p.TotalMarkup = p.TotalMarkup.Add(c.MarkupAmount)
		p.TotalAmount = p.TotalAmount.Add(c.TotalCommission)
	}
	return p, nil
}

// Process marks the payout sent and completes each commission
func (p *Payout) Process(transactionID string, commissions []order.CommissionRecord) error {
	if p.Status != StatusPending {
		return shared.NewDomainError("INVALID_STATE", "Payout has already been processed")
	}
	if strings.TrimSpace(transactionID) == "" {
		return shared.NewDomainError("INVALID_TRANSACTION_ID", "Transaction ID cannot be empty")
	}
	for i := range commissions {
		if err := commissions[i].MarkPaidOut(); err != nil {
			return err
		}
	}
	now := time.Now()
	p.Status = StatusCompleted
	p.TransactionID = strings.TrimSpace(transactionID)
	p.ProcessedAt = &now
	p.UpdatedAt = now
	return nil
}

// Repository defines the interface for payout persistence
type Repository interface {
	// FindByID finds a payout by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payout, error)

	// FindByBroker lists a broker's payouts newest first
	FindByBroker(ctx context.Context, brokerID uuid.UUID, filter shared.Filter) ([]Payout, int64, error)

	// Save creates or updates a payout
	Save(ctx context.Context, p *Payout) error
}
