package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/domain/shared/valueobject"
)

// BrokerAnalyticsModel holds one broker's widget counters for one day.
type BrokerAnalyticsModel struct {
	ID               uuid.UUID         `gorm:"type:uuid;primary_key"`
	BrokerID         uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_broker_analytics_day,priority:1"`
	Date             time.Time         `gorm:"type:date;not null;uniqueIndex:idx_broker_analytics_day,priority:2"`
	Views            int64             `gorm:"not null;default:0"`
	Clicks           int64             `gorm:"not null;default:0"`
	AddToCarts       int64             `gorm:"not null;default:0"`
	CheckoutsStarted int64             `gorm:"not null;default:0"`
	Orders           int64             `gorm:"not null;default:0"`
	Revenue          valueobject.Cents `gorm:"type:bigint;not null;default:0"`
}

// TableName returns the table name for GORM
func (BrokerAnalyticsModel) TableName() string {
	return "broker_analytics"
}

// ToDomain converts the persistence model to a domain Daily row.
func (m *BrokerAnalyticsModel) ToDomain() analytics.Daily {
	return analytics.Daily{
		ID:               m.ID,
		BrokerID:         m.BrokerID,
		Date:             m.Date,
		Views:            m.Views,
		Clicks:           m.Clicks,
		AddToCarts:       m.AddToCarts,
		CheckoutsStarted: m.CheckoutsStarted,
		Orders:           m.Orders,
		Revenue:          m.Revenue,
	}
}

// ActivityLogModel is an append-only audit entry.
type ActivityLogModel struct {
	ID         uuid.UUID      `gorm:"type:uuid;primary_key"`
	Action     string         `gorm:"type:varchar(50);not null;index"`
	EntityType string         `gorm:"type:varchar(50);not null"`
	EntityID   *uuid.UUID     `gorm:"type:uuid;index"`
	ActorRole  string         `gorm:"type:varchar(20);not null"`
	ActorID    *uuid.UUID     `gorm:"type:uuid"`
	Metadata   map[string]any `gorm:"serializer:json;type:text"`
	CreatedAt  time.Time      `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ActivityLogModel) TableName() string {
	return "activity_logs"
}

// ToDomain converts the persistence model to a domain ActivityLog.
func (m *ActivityLogModel) ToDomain() analytics.ActivityLog {
	return analytics.ActivityLog{
		ID:         m.ID,
		Action:     m.Action,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		Actor:      analytics.Actor{Role: m.ActorRole, ID: m.ActorID},
		Metadata:   m.Metadata,
		CreatedAt:  m.CreatedAt,
	}
}

// ActivityLogModelFromDomain creates a persistence model from a domain ActivityLog.
func ActivityLogModelFromDomain(l *analytics.ActivityLog) *ActivityLogModel {
	return &ActivityLogModel{
		ID:         l.ID,
		Action:     l.Action,
		EntityType: l.EntityType,
		EntityID:   l.EntityID,
		ActorRole:  l.Actor.Role,
		ActorID:    l.Actor.ID,
		Metadata:   l.Metadata,
		CreatedAt:  l.CreatedAt,
	}
}

// WebhookLogModel stores an inbound webhook payload.
type WebhookLogModel struct {
	ID        uuid.UUID               `gorm:"type:uuid;primary_key"`
	Source    string                  `gorm:"type:varchar(30);not null"`
	EventID   string                  `gorm:"type:varchar(255);index"`
	EventType string                  `gorm:"type:varchar(100);not null"`
	Payload   string                  `gorm:"type:text"`
	Status    analytics.WebhookStatus `gorm:"type:varchar(20);not null"`
	Error     string                  `gorm:"type:text"`
	OrderID   *uuid.UUID              `gorm:"type:uuid;index"`
	CreatedAt time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WebhookLogModel) TableName() string {
	return "webhook_logs"
}

// WebhookLogModelFromDomain creates a persistence model from a domain WebhookLog.
func WebhookLogModelFromDomain(l *analytics.WebhookLog) *WebhookLogModel {
	return &WebhookLogModel{
		ID:        l.ID,
		Source:    l.Source,
		EventID:   l.EventID,
		EventType: l.EventType,
		Payload:   string(l.Payload),
		Status:    l.Status,
		Error:     l.Error,
		OrderID:   l.OrderID,
		CreatedAt: l.CreatedAt,
	}
}
