package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/domain/shared/valueobject"
)

// CommissionPayoutStatus tracks whether a broker commission has been paid out
type CommissionPayoutStatus string

const (
	CommissionPending    CommissionPayoutStatus = "PENDING"
	CommissionProcessing CommissionPayoutStatus = "PROCESSING"
	CommissionCompleted  CommissionPayoutStatus = "COMPLETED"
)

// CommissionRecord is the broker's earnings on one order
type CommissionRecord struct {
	ID                 uuid.UUID
	OrderID            uuid.UUID
	BrokerID           uuid.UUID
	RevenueShareAmount valueobject.Cents
	MarkupAmount       valueobject.Cents
	TotalCommission    valueobject.Cents
	PayoutStatus       CommissionPayoutStatus
	PayoutID           *uuid.UUID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewCommissionRecord builds the commission for a brokered order.
// Direct sales have no commission and return nil.
func NewCommissionRecord(o *Order) *CommissionRecord {
	if o.BrokerID == nil {
		return nil
	}
	now := time.Now()
	return &CommissionRecord{
		ID:                 uuid.New(),
		OrderID:            o.ID,
		BrokerID:           *o.BrokerID,
		RevenueShareAmount: o.BrokerRevenueShare,
		MarkupAmount:       o.BrokerMarkup,
		TotalCommission:    o.BrokerRevenueShare.Add(o.BrokerMarkup),
		PayoutStatus:       CommissionPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// AssignToPayout moves a pending commission into a payout batch
func (c *CommissionRecord) AssignToPayout(payoutID uuid.UUID) error {
	if c.PayoutStatus != CommissionPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Commission is already %s", c.PayoutStatus))
	}
	c.PayoutID = &payoutID
	c.PayoutStatus = CommissionProcessing
	c.UpdatedAt = time.Now()
	return nil
}

// MarkPaidOut completes a commission once its payout is processed
func (c *CommissionRecord) MarkPaidOut() error {
	if c.PayoutStatus != CommissionProcessing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete commission in %s status", c.PayoutStatus))
	}
	c.PayoutStatus = CommissionCompleted
	c.UpdatedAt = time.Now()
	return nil
}
