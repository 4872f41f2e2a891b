package payout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/domain/payout"
)

// CreatePayoutRequest batches a broker's payable commissions
type CreatePayoutRequest struct {
	BrokerID      uuid.UUID `json:"broker_id" binding:"required"`
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
	PaymentMethod string    `json:"payment_method" binding:"required,max=50"`
}

// ProcessPayoutRequest records the transfer reference of a sent payout
type ProcessPayoutRequest struct {
	TransactionID string `json:"transaction_id" binding:"required,max=100"`
}

// PayoutResponse represents a payout in API responses
type PayoutResponse struct {
	ID                uuid.UUID       `json:"id"`
	BrokerID          uuid.UUID       `json:"broker_id"`
	BrokerName        string          `json:"broker_name,omitempty"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	TotalRevenueShare decimal.Decimal `json:"total_revenue_share"`
	TotalMarkup       decimal.Decimal `json:"total_markup"`
	CommissionCount   int             `json:"commission_count"`
	PeriodStart       *time.Time      `json:"period_start,omitempty"`
	PeriodEnd         *time.Time      `json:"period_end,omitempty"`
	PaymentMethod     string          `json:"payment_method"`
	Status            string          `json:"status"`
	TransactionID     string          `json:"transaction_id,omitempty"`
	ProcessedAt       *time.Time      `json:"processed_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ToPayoutResponse converts a domain Payout
func ToPayoutResponse(p *payout.Payout) PayoutResponse {
	return PayoutResponse{
		ID:                p.ID,
		BrokerID:          p.BrokerID,
		TotalAmount:       p.TotalAmount.USD(),
		TotalRevenueShare: p.TotalRevenueShare.USD(),
		TotalMarkup:       p.TotalMarkup.USD(),
		CommissionCount:   p.CommissionCount,
		PeriodStart:       optionalTime(p.PeriodStart),
		PeriodEnd:         optionalTime(p.PeriodEnd),
		PaymentMethod:     p.PaymentMethod,
		Status:            string(p.Status),
		TransactionID:     p.TransactionID,
		ProcessedAt:       p.ProcessedAt,
		CreatedAt:         p.CreatedAt,
	}
}

// PendingCommissionResponse is the unpaid commission owed to one broker
type PendingCommissionResponse struct {
	BrokerID     uuid.UUID       `json:"broker_id"`
	BrokerName   string          `json:"broker_name"`
	BrokerEmail  string          `json:"broker_email,omitempty"`
	RecordCount  int64           `json:"record_count"`
	RevenueShare decimal.Decimal `json:"revenue_share"`
	Markup       decimal.Decimal `json:"markup"`
	Total        decimal.Decimal `json:"total"`
}

func toPendingResponse(p order.PendingCommission) PendingCommissionResponse {
	return PendingCommissionResponse{
		BrokerID:     p.BrokerID,
		RecordCount:  p.RecordCount,
		RevenueShare: p.RevenueShare.USD(),
		Markup:       p.Markup.USD(),
		Total:        p.Total.USD(),
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
