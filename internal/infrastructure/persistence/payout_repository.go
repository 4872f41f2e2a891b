package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tradelinemarket/backend/internal/domain/payout"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPayoutRepository implements payout.Repository using GORM
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewGormPayoutRepository creates a new GormPayoutRepository
func NewGormPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

// FindByID finds a payout by its ID
func (r *GormPayoutRepository) FindByID(ctx context.Context, id uuid.UUID) (*payout.Payout, error) {
	var model models.PayoutModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByBroker lists a broker's payouts
func (r *GormPayoutRepository) FindByBroker(ctx context.Context, brokerID uuid.UUID, filter shared.Filter) ([]payout.Payout, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PayoutModel{}).Where("broker_id = ?", brokerID)
	if status, ok := filter.Filters["status"]; ok && status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(orderClause(filter.OrderBy, filter.OrderDir, PayoutSortFields))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.PayoutModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	payouts := make([]payout.Payout, len(rows))
	for i := range rows {
		payouts[i] = *rows[i].ToDomain()
	}
	return payouts, total, nil
}

// Save creates or updates a payout
func (r *GormPayoutRepository) Save(ctx context.Context, p *payout.Payout) error {
	return r.db.WithContext(ctx).Save(models.PayoutModelFromDomain(p)).Error
}

var _ payout.Repository = (*GormPayoutRepository)(nil)
