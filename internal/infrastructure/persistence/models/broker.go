package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tradelinemarket/backend/internal/domain/broker"
	"github.com/tradelinemarket/backend/internal/domain/pricing"
)

// BrokerModel is the persistence model for the Broker aggregate root.
type BrokerModel struct {
	AggregateModel
	Name                string             `gorm:"type:varchar(200);not null"`
	Email               string             `gorm:"type:varchar(200);not null;uniqueIndex"`
	CompanyName         string             `gorm:"type:varchar(200)"`
	Phone               string             `gorm:"type:varchar(50)"`
	Website             string             `gorm:"type:varchar(500)"`
	APIKey              string             `gorm:"column:api_key;type:varchar(80);not null;uniqueIndex"`
	APISecretHash       string             `gorm:"column:api_secret_hash;type:varchar(255);not null"`
	PasswordHash        string             `gorm:"type:varchar(255)"`
	RevenueSharePercent decimal.Decimal    `gorm:"type:decimal(5,2);not null;default:10"`
	MarkupType          pricing.MarkupType `gorm:"type:varchar(20);not null;default:'PERCENTAGE'"`
	MarkupValue         decimal.Decimal    `gorm:"type:decimal(12,2);not null;default:0"`
	Status              broker.Status      `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ApprovedBy          *uuid.UUID         `gorm:"type:uuid"`
	ApprovedAt          *time.Time
	LastLoginAt         *time.Time
	Notes               string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (BrokerModel) TableName() string {
	return "brokers"
}

// ToDomain converts the persistence model to a domain Broker.
func (m *BrokerModel) ToDomain() *broker.Broker {
	return &broker.Broker{
		BaseAggregateRoot:   m.ToAggregateRoot(),
		Name:                m.Name,
		Email:               m.Email,
		CompanyName:         m.CompanyName,
		Phone:               m.Phone,
		Website:             m.Website,
		APIKey:              m.APIKey,
		APISecretHash:       m.APISecretHash,
		PasswordHash:        m.PasswordHash,
		RevenueSharePercent: m.RevenueSharePercent,
		MarkupType:          m.MarkupType,
		MarkupValue:         m.MarkupValue,
		Status:              m.Status,
		ApprovedBy:          m.ApprovedBy,
		ApprovedAt:          m.ApprovedAt,
		LastLoginAt:         m.LastLoginAt,
		Notes:               m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Broker.
func (m *BrokerModel) FromDomain(b *broker.Broker) {
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	m.Name = b.Name
	m.Email = b.Email
	m.CompanyName = b.CompanyName
	m.Phone = b.Phone
	m.Website = b.Website
	m.APIKey = b.APIKey
	m.APISecretHash = b.APISecretHash
	m.PasswordHash = b.PasswordHash
	m.RevenueSharePercent = b.RevenueSharePercent
	m.MarkupType = b.MarkupType
	m.MarkupValue = b.MarkupValue
	m.Status = b.Status
	m.ApprovedBy = b.ApprovedBy
	m.ApprovedAt = b.ApprovedAt
	m.LastLoginAt = b.LastLoginAt
	m.Notes = b.Notes
}

// BrokerModelFromDomain creates a persistence model from a domain Broker.
func BrokerModelFromDomain(b *broker.Broker) *BrokerModel {
	m := &BrokerModel{}
	m.FromDomain(b)
	return m
}
