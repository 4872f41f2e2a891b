package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/tradelinemarket/backend/internal/domain/payout"
	"github.com/tradelinemarket/backend/internal/domain/shared/valueobject"
)

// PayoutModel is the persistence model for broker payouts.
type PayoutModel struct {
	BaseModel
	BrokerID          uuid.UUID         `gorm:"type:uuid;not null;index"`
	TotalAmount       valueobject.Cents `gorm:"type:bigint;not null"`
	TotalRevenueShare valueobject.Cents `gorm:"type:bigint;not null"`
	TotalMarkup       valueobject.Cents `gorm:"type:bigint;not null"`
	PeriodStart       time.Time         `gorm:"not null"`
	PeriodEnd         time.Time         `gorm:"not null"`
	PaymentMethod     string            `gorm:"type:varchar(50)"`
	Status            payout.Status     `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	TransactionID     string            `gorm:"type:varchar(200)"`
	ProcessedAt       *time.Time
	CommissionCount   int `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (PayoutModel) TableName() string {
	return "payouts"
}

// ToDomain converts the persistence model to a domain Payout.
func (m *PayoutModel) ToDomain() *payout.Payout {
	return &payout.Payout{
		BaseEntity:        m.BaseModel.ToDomain(),
		BrokerID:          m.BrokerID,
		TotalAmount:       m.TotalAmount,
		TotalRevenueShare: m.TotalRevenueShare,
		TotalMarkup:       m.TotalMarkup,
		PeriodStart:       m.PeriodStart,
		PeriodEnd:         m.PeriodEnd,
		PaymentMethod:     m.PaymentMethod,
		Status:            m.Status,
		TransactionID:     m.TransactionID,
		ProcessedAt:       m.ProcessedAt,
		CommissionCount:   m.CommissionCount,
	}
}

// PayoutModelFromDomain creates a persistence model from a domain Payout.
func PayoutModelFromDomain(p *payout.Payout) *PayoutModel {
	m := &PayoutModel{
		BrokerID:          p.BrokerID,
		TotalAmount:       p.TotalAmount,
		TotalRevenueShare: p.TotalRevenueShare,
		TotalMarkup:       p.TotalMarkup,
		PeriodStart:       p.PeriodStart,
		PeriodEnd:         p.PeriodEnd,
		PaymentMethod:     p.PaymentMethod,
		Status:            p.Status,
		TransactionID:     p.TransactionID,
		ProcessedAt:       p.ProcessedAt,
		CommissionCount:   p.CommissionCount,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}
