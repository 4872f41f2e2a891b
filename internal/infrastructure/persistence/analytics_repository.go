package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/domain/shared/valueobject"
	"github.com/tradelinemarket/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAnalyticsRepository implements analytics.Repository with upserts on (broker_id, date)
type GormAnalyticsRepository struct {
	db *gorm.DB
}

// NewGormAnalyticsRepository creates a new GormAnalyticsRepository
func NewGormAnalyticsRepository(db *gorm.DB) *GormAnalyticsRepository {
	return &GormAnalyticsRepository{db: db}
}

func (r *GormAnalyticsRepository) upsert(ctx context.Context, row *models.BrokerAnalyticsModel, increments map[string]any) error {
	set := make(map[string]any, len(increments))
	for col, delta := range increments {
		set[col] = gorm.Expr(fmt.Sprintf("broker_analytics.%s + ?", col), delta)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "broker_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(set),
	}).Create(row).Error
}

// Increment bumps one widget counter for the day
func (r *GormAnalyticsRepository) Increment(ctx context.Context, brokerID uuid.UUID, day time.Time, event analytics.WidgetEvent) error {
	col := event.Column()
	if col == "" {
		return shared.NewDomainError("INVALID_EVENT", fmt.Sprintf("Unknown widget event: %s", event))
	}

	row := &models.BrokerAnalyticsModel{ID: uuid.New(), BrokerID: brokerID, Date: analytics.Day(day)}
	switch event {
	case analytics.WidgetEventView:
		row.Views = 1
	case analytics.WidgetEventClick:
		row.Clicks = 1
	case analytics.WidgetEventAddToCart:
		row.AddToCarts = 1
	case analytics.WidgetEventCheckoutStarted:
		row.CheckoutsStarted = 1
	}
	return r.upsert(ctx, row, map[string]any{col: 1})
}

// RecordOrder bumps the order count and revenue for the day
func (r *GormAnalyticsRepository) RecordOrder(ctx context.Context, brokerID uuid.UUID, day time.Time, revenue valueobject.Cents) error {
	row := &models.BrokerAnalyticsModel{
		ID:       uuid.New(),
		BrokerID: brokerID,
		Date:     analytics.Day(day),
		Orders:   1,
		Revenue:  revenue,
	}
	return r.upsert(ctx, row, map[string]any{"orders": 1, "revenue": int64(revenue)})
}

// FindRange returns the broker's rows since the given day, oldest first
func (r *GormAnalyticsRepository) FindRange(ctx context.Context, brokerID uuid.UUID, since time.Time) ([]analytics.Daily, error) {
	var rows []models.BrokerAnalyticsModel
	if err := r.db.WithContext(ctx).
		Where("broker_id = ? AND date >= ?", brokerID, analytics.Day(since)).
		Order("date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]analytics.Daily, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var _ analytics.Repository = (*GormAnalyticsRepository)(nil)

// GormActivityRepository implements analytics.ActivityRepository using GORM
type GormActivityRepository struct {
	db *gorm.DB
}

// NewGormActivityRepository creates a new GormActivityRepository
func NewGormActivityRepository(db *gorm.DB) *GormActivityRepository {
	return &GormActivityRepository{db: db}
}

// Create appends an activity entry
func (r *GormActivityRepository) Create(ctx context.Context, log *analytics.ActivityLog) error {
	return r.db.WithContext(ctx).Create(models.ActivityLogModelFromDomain(log)).Error
}

// FindRecent lists entries newest first. Filters: "entity_type", "action".
func (r *GormActivityRepository) FindRecent(ctx context.Context, filter shared.Filter) ([]analytics.ActivityLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ActivityLogModel{})
	for _, col := range []string{"entity_type", "action"} {
		if v, ok := filter.Filters[col]; ok && v != "" {
			query = query.Where(col+" = ?", v)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Order("created_at DESC")
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.ActivityLogModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]analytics.ActivityLog, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

var _ analytics.ActivityRepository = (*GormActivityRepository)(nil)

// GormWebhookLogRepository implements analytics.WebhookLogRepository using GORM
type GormWebhookLogRepository struct {
	db *gorm.DB
}

// NewGormWebhookLogRepository creates a new GormWebhookLogRepository
func NewGormWebhookLogRepository(db *gorm.DB) *GormWebhookLogRepository {
	return &GormWebhookLogRepository{db: db}
}

// Create stores a webhook log entry
func (r *GormWebhookLogRepository) Create(ctx context.Context, log *analytics.WebhookLog) error {
	return r.db.WithContext(ctx).Create(models.WebhookLogModelFromDomain(log)).Error
}

var _ analytics.WebhookLogRepository = (*GormWebhookLogRepository)(nil)
