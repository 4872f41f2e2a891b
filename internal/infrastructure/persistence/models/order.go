package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/domain/shared/valueobject"
)

// OrderModel is the persistence model for the Order aggregate root.
type OrderModel struct {
	AggregateModel
	OrderNumber           string              `gorm:"type:varchar(20);not null;uniqueIndex"`
	BrokerID              *uuid.UUID          `gorm:"type:uuid;index"`
	ClientID              *uuid.UUID          `gorm:"type:uuid;index"`
	CustomerName          string              `gorm:"type:varchar(200);not null"`
	CustomerEmail         string              `gorm:"type:varchar(200);not null;index"`
	CustomerPhone         string              `gorm:"type:varchar(50)"`
	Items                 []OrderItemModel    `gorm:"foreignKey:OrderID;references:ID"`
	SubtotalBase          valueobject.Cents   `gorm:"type:bigint;not null;default:0"`
	BrokerRevenueShare    valueobject.Cents   `gorm:"type:bigint;not null;default:0"`
	BrokerMarkup          valueobject.Cents   `gorm:"type:bigint;not null;default:0"`
	Discount              valueobject.Cents   `gorm:"type:bigint;not null;default:0"`
	PlatformNetRevenue    valueobject.Cents   `gorm:"type:bigint;not null;default:0"`
	TotalCharged          valueobject.Cents   `gorm:"type:bigint;not null;default:0"`
	PromoCode             string              `gorm:"type:varchar(50)"`
	Status                order.Status        `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	PaymentStatus         order.PaymentStatus `gorm:"type:varchar(20);not null;default:'UNPAID';index"`
	PaymentMethod         order.PaymentMethod `gorm:"type:varchar(20)"`
	PaidAt                *time.Time
	StripeSessionID       string `gorm:"type:varchar(255);index"`
	StripePaymentIntentID string `gorm:"type:varchar(255);index"`
	SupplierOrderID       string `gorm:"type:varchar(100)"`
	SupplierStatus        string `gorm:"type:varchar(50)"`
	FulfilledAt           *time.Time
	CompletedAt           *time.Time
	CancelledAt           *time.Time
	Note                  string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order with its items.
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		BaseAggregateRoot: m.ToAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		BrokerID:          m.BrokerID,
		ClientID:          m.ClientID,
		Customer: order.Customer{
			Name:  m.CustomerName,
			Email: m.CustomerEmail,
			Phone: m.CustomerPhone,
		},
		SubtotalBase:          m.SubtotalBase,
		BrokerRevenueShare:    m.BrokerRevenueShare,
		BrokerMarkup:          m.BrokerMarkup,
		Discount:              m.Discount,
		PlatformNetRevenue:    m.PlatformNetRevenue,
		TotalCharged:          m.TotalCharged,
		PromoCode:             m.PromoCode,
		Status:                m.Status,
		PaymentStatus:         m.PaymentStatus,
		PaymentMethod:         m.PaymentMethod,
		PaidAt:                m.PaidAt,
		StripeSessionID:       m.StripeSessionID,
		StripePaymentIntentID: m.StripePaymentIntentID,
		SupplierOrderID:       m.SupplierOrderID,
		SupplierStatus:        m.SupplierStatus,
		FulfilledAt:           m.FulfilledAt,
		CompletedAt:           m.CompletedAt,
		CancelledAt:           m.CancelledAt,
		Note:                  m.Note,
		Items:                 make([]order.Item, len(m.Items)),
	}
	for i, item := range m.Items {
		o.Items[i] = item.ToDomain()
	}
	return o
}

// FromDomain populates the persistence model from a domain Order.
func (m *OrderModel) FromDomain(o *order.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.BrokerID = o.BrokerID
	m.ClientID = o.ClientID
	m.CustomerName = o.Customer.Name
	m.CustomerEmail = o.Customer.Email
	m.CustomerPhone = o.Customer.Phone
	m.SubtotalBase = o.SubtotalBase
	m.BrokerRevenueShare = o.BrokerRevenueShare
	m.BrokerMarkup = o.BrokerMarkup
	m.Discount = o.Discount
	m.PlatformNetRevenue = o.PlatformNetRevenue
	m.TotalCharged = o.TotalCharged
	m.PromoCode = o.PromoCode
	m.Status = o.Status
	m.PaymentStatus = o.PaymentStatus
	m.PaymentMethod = o.PaymentMethod
	m.PaidAt = o.PaidAt
	m.StripeSessionID = o.StripeSessionID
	m.StripePaymentIntentID = o.StripePaymentIntentID
	m.SupplierOrderID = o.SupplierOrderID
	m.SupplierStatus = o.SupplierStatus
	m.FulfilledAt = o.FulfilledAt
	m.CompletedAt = o.CompletedAt
	m.CancelledAt = o.CancelledAt
	m.Note = o.Note
	m.Items = make([]OrderItemModel, len(o.Items))
	for i := range o.Items {
		m.Items[i] = OrderItemModelFromDomain(o.Items[i])
		m.Items[i].Position = i
	}
}

// OrderModelFromDomain creates a persistence model from a domain Order.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for an order line.
type OrderItemModel struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primary_key"`
	OrderID            uuid.UUID         `gorm:"type:uuid;not null;index"`
	Position           int               `gorm:"not null;default:0"`
	CardID             string            `gorm:"type:varchar(50);not null"`
	BankName           string            `gorm:"type:varchar(200);not null"`
	CreditLimit        int64             `gorm:"not null;default:0"`
	Quantity           int               `gorm:"not null"`
	BasePrice          valueobject.Cents `gorm:"type:bigint;not null"`
	BrokerRevenueShare valueobject.Cents `gorm:"type:bigint;not null;default:0"`
	BrokerMarkup       valueobject.Cents `gorm:"type:bigint;not null;default:0"`
	CustomerPrice      valueobject.Cents `gorm:"type:bigint;not null"`
	CreatedAt          time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain Item.
func (m *OrderItemModel) ToDomain() order.Item {
	return order.Item{
		ID:                 m.ID,
		OrderID:            m.OrderID,
		CardID:             m.CardID,
		BankName:           m.BankName,
		CreditLimit:        m.CreditLimit,
		Quantity:           m.Quantity,
		BasePrice:          m.BasePrice,
		BrokerRevenueShare: m.BrokerRevenueShare,
		BrokerMarkup:       m.BrokerMarkup,
		CustomerPrice:      m.CustomerPrice,
		CreatedAt:          m.CreatedAt,
	}
}

// OrderItemModelFromDomain creates a persistence model from a domain Item.
func OrderItemModelFromDomain(i order.Item) OrderItemModel {
	return OrderItemModel{
		ID:                 i.ID,
		OrderID:            i.OrderID,
		CardID:             i.CardID,
		BankName:           i.BankName,
		CreditLimit:        i.CreditLimit,
		Quantity:           i.Quantity,
		BasePrice:          i.BasePrice,
		BrokerRevenueShare: i.BrokerRevenueShare,
		BrokerMarkup:       i.BrokerMarkup,
		CustomerPrice:      i.CustomerPrice,
		CreatedAt:          i.CreatedAt,
	}
}

// CommissionRecordModel is the persistence model for a broker commission.
type CommissionRecordModel struct {
	ID                 uuid.UUID                    `gorm:"type:uuid;primary_key"`
	OrderID            uuid.UUID                    `gorm:"type:uuid;not null;uniqueIndex"`
	BrokerID           uuid.UUID                    `gorm:"type:uuid;not null;index"`
	RevenueShareAmount valueobject.Cents            `gorm:"type:bigint;not null"`
	MarkupAmount       valueobject.Cents            `gorm:"type:bigint;not null"`
	TotalCommission    valueobject.Cents            `gorm:"type:bigint;not null"`
	PayoutStatus       order.CommissionPayoutStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	PayoutID           *uuid.UUID                   `gorm:"type:uuid;index"`
	CreatedAt          time.Time                    `gorm:"not null"`
	UpdatedAt          time.Time                    `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CommissionRecordModel) TableName() string {
	return "commission_records"
}

// ToDomain converts the persistence model to a domain CommissionRecord.
func (m *CommissionRecordModel) ToDomain() *order.CommissionRecord {
	return &order.CommissionRecord{
		ID:                 m.ID,
		OrderID:            m.OrderID,
		BrokerID:           m.BrokerID,
		RevenueShareAmount: m.RevenueShareAmount,
		MarkupAmount:       m.MarkupAmount,
		TotalCommission:    m.TotalCommission,
		PayoutStatus:       m.PayoutStatus,
		PayoutID:           m.PayoutID,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// CommissionRecordModelFromDomain creates a persistence model from a domain CommissionRecord.
func CommissionRecordModelFromDomain(c *order.CommissionRecord) *CommissionRecordModel {
	return &CommissionRecordModel{
		ID:                 c.ID,
		OrderID:            c.OrderID,
		BrokerID:           c.BrokerID,
		RevenueShareAmount: c.RevenueShareAmount,
		MarkupAmount:       c.MarkupAmount,
		TotalCommission:    c.TotalCommission,
		PayoutStatus:       c.PayoutStatus,
		PayoutID:           c.PayoutID,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}
