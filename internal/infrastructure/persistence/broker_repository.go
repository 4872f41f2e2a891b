package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/tradelinemarket/backend/internal/domain/broker"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormBrokerRepository implements broker.Repository using GORM
type GormBrokerRepository struct {
	db *gorm.DB
}

// NewGormBrokerRepository creates a new GormBrokerRepository
func NewGormBrokerRepository(db *gorm.DB) *GormBrokerRepository {
	return &GormBrokerRepository{db: db}
}

// FindByID finds a broker by its ID
func (r *GormBrokerRepository) FindByID(ctx context.Context, id uuid.UUID) (*broker.Broker, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByEmail finds a broker by email
func (r *GormBrokerRepository) FindByEmail(ctx context.Context, email string) (*broker.Broker, error) {
	return r.findOne(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

// FindByAPIKey finds a broker by its API key
func (r *GormBrokerRepository) FindByAPIKey(ctx context.Context, apiKey string) (*broker.Broker, error) {
	if apiKey == "" {
		return nil, shared.ErrNotFound
	}
	return r.findOne(ctx, "api_key = ?", apiKey)
}

func (r *GormBrokerRepository) findOne(ctx context.Context, query string, arg any) (*broker.Broker, error) {
	var model models.BrokerModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists brokers matching the filter along with the total count
func (r *GormBrokerRepository) FindAll(ctx context.Context, filter shared.Filter) ([]broker.Broker, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BrokerModel{})

	if status, ok := filter.Filters["status"]; ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company_name) LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(orderClause(filter.OrderBy, filter.OrderDir, BrokerSortFields))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.BrokerModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	brokers := make([]broker.Broker, len(rows))
	for i := range rows {
		brokers[i] = *rows[i].ToDomain()
	}
	return brokers, total, nil
}

// Save creates or updates a broker
func (r *GormBrokerRepository) Save(ctx context.Context, b *broker.Broker) error {
	return r.db.WithContext(ctx).Save(models.BrokerModelFromDomain(b)).Error
}

// ExistsByEmail checks if a broker with the email exists
func (r *GormBrokerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.BrokerModel{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Count(&count).Error
	return count > 0, err
}

// CountByStatus counts brokers, all of them when status is empty
func (r *GormBrokerRepository) CountByStatus(ctx context.Context, status broker.Status) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BrokerModel{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

var _ broker.Repository = (*GormBrokerRepository)(nil)
