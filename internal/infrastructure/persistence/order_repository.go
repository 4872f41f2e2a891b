package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/domain/shared/valueobject"
	"github.com/tradelinemarket/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// FindByID finds an order with its items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByStripeSession finds the order a checkout session belongs to
func (r *GormOrderRepository) FindByStripeSession(ctx context.Context, sessionID string) (*order.Order, error) {
	if sessionID == "" {
		return nil, shared.ErrNotFound
	}
	return r.findOne(ctx, "stripe_session_id = ?", sessionID)
}

// FindByStripePaymentIntent finds the order paid by a payment intent
func (r *GormOrderRepository) FindByStripePaymentIntent(ctx context.Context, intentID string) (*order.Order, error) {
	if intentID == "" {
		return nil, shared.ErrNotFound
	}
	return r.findOne(ctx, "stripe_payment_intent_id = ?", intentID)
}

func (r *GormOrderRepository) findOne(ctx context.Context, query string, arg any) (*order.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		Where(query, arg).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists orders with their items and the total count
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{})

	for _, col := range []string{"status", "payment_status", "broker_id", "client_id"} {
		if v, ok := filter.Filters[col]; ok && v != nil && v != "" {
			query = query.Where(col+" = ?", v)
		}
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(order_number) LIKE ? OR LOWER(customer_email) LIKE ? OR LOWER(customer_name) LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Preload("Items", preloadItems).
		Order(orderClause(filter.OrderBy, filter.OrderDir, OrderSortFields))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.OrderModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]order.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, total, nil
}

// Create inserts the order and its items
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Create(models.OrderModelFromDomain(o)).Error
}

// Update persists the order header with an optimistic version check. A copy
// read before another writer saved the row fails with CONCURRENT_MODIFICATION.
// Items are immutable after creation.
func (r *GormOrderRepository) Update(ctx context.Context, o *order.Order) error {
	expected := o.Version
	result := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("id = ? AND version = ?", o.ID, expected).
		Updates(map[string]any{
			"customer_name":            o.Customer.Name,
			"customer_email":           o.Customer.Email,
			"customer_phone":           o.Customer.Phone,
			"status":                   o.Status,
			"payment_status":           o.PaymentStatus,
			"payment_method":           o.PaymentMethod,
			"paid_at":                  o.PaidAt,
			"stripe_session_id":        o.StripeSessionID,
			"stripe_payment_intent_id": o.StripePaymentIntentID,
			"supplier_order_id":        o.SupplierOrderID,
			"supplier_status":          o.SupplierStatus,
			"fulfilled_at":             o.FulfilledAt,
			"completed_at":             o.CompletedAt,
			"cancelled_at":             o.CancelledAt,
			"note":                     o.Note,
			"version":                  expected + 1,
			"updated_at":               o.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if err := r.mustExist(ctx, o.ID); err != nil {
			return err
		}
		return shared.ErrConcurrentModification
	}
	o.Version = expected + 1
	return nil
}

// MarkPaid records the payment only while the stored row is unpaid, so of two
// concurrent writers exactly one succeeds.
func (r *GormOrderRepository) MarkPaid(ctx context.Context, o *order.Order) error {
	result := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("id = ? AND payment_status <> ?", o.ID, order.PaymentStatusPaid).
		Updates(map[string]any{
			"payment_status":           o.PaymentStatus,
			"status":                   o.Status,
			"payment_method":           o.PaymentMethod,
			"paid_at":                  o.PaidAt,
			"stripe_payment_intent_id": o.StripePaymentIntentID,
			"note":                     o.Note,
			"version":                  gorm.Expr("version + 1"),
			"updated_at":               o.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		o.Version++
		return nil
	}
	if err := r.mustExist(ctx, o.ID); err != nil {
		return err
	}
	return shared.ErrAlreadyPaid
}

func (r *GormOrderRepository) mustExist(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes the order with its items, commission and webhook logs.
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.WebhookLogModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.CommissionRecordModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.OrderModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// ExistsByOrderNumber checks if an order number is taken
func (r *GormOrderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error
	return count > 0, err
}

type orderStatsRow struct {
	Total           int64
	Pending         int64
	Completed       int64
	PlatformRevenue int64
	GrossSales      int64
	BrokerEarnings  int64
}

// Stats aggregates dashboard totals in one query
func (r *GormOrderRepository) Stats(ctx context.Context, brokerID *uuid.UUID) (order.Stats, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{}).Select(
		`COUNT(*) AS total,
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending,
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed,
		COALESCE(SUM(CASE WHEN status = ? THEN platform_net_revenue ELSE 0 END), 0) AS platform_revenue,
		COALESCE(SUM(CASE WHEN payment_status = ? THEN total_charged ELSE 0 END), 0) AS gross_sales,
		COALESCE(SUM(CASE WHEN payment_status = ? THEN broker_revenue_share + broker_markup ELSE 0 END), 0) AS broker_earnings`,
		order.StatusPending, order.StatusCompleted, order.StatusCompleted,
		order.PaymentStatusPaid, order.PaymentStatusPaid,
	)
	if brokerID != nil {
		query = query.Where("broker_id = ?", *brokerID)
	}

	var row orderStatsRow
	if err := query.Scan(&row).Error; err != nil {
		return order.Stats{}, err
	}
	return order.Stats{
		Total:           row.Total,
		Pending:         row.Pending,
		Completed:       row.Completed,
		PlatformRevenue: valueobject.Cents(row.PlatformRevenue),
		GrossSales:      valueobject.Cents(row.GrossSales),
		BrokerEarnings:  valueobject.Cents(row.BrokerEarnings),
	}, nil
}

var _ order.Repository = (*GormOrderRepository)(nil)

// GormCommissionRepository implements order.CommissionRepository using GORM
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewGormCommissionRepository creates a new GormCommissionRepository
func NewGormCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// Create inserts a commission record
func (r *GormCommissionRepository) Create(ctx context.Context, c *order.CommissionRecord) error {
	return r.db.WithContext(ctx).Create(models.CommissionRecordModelFromDomain(c)).Error
}

// FindByOrderID finds the commission of an order
func (r *GormCommissionRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*order.CommissionRecord, error) {
	var model models.CommissionRecordModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// payable restricts commissions to unpaid ones on completed, paid orders
func (r *GormCommissionRepository) payable(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.CommissionRecordModel{}).
		Joins("JOIN orders ON orders.id = commission_records.order_id").
		Where("commission_records.payout_status = ?", order.CommissionPending).
		Where("orders.status = ? AND orders.payment_status = ?", order.StatusCompleted, order.PaymentStatusPaid)
}

// FindPayable returns a broker's payable commissions within the period
func (r *GormCommissionRepository) FindPayable(ctx context.Context, brokerID uuid.UUID, period order.Period) ([]order.CommissionRecord, error) {
	query := r.payable(ctx).Where("commission_records.broker_id = ?", brokerID)
	if !period.From.IsZero() {
		query = query.Where("commission_records.created_at >= ?", period.From)
	}
	if !period.To.IsZero() {
		query = query.Where("commission_records.created_at < ?", period.To)
	}

	var rows []models.CommissionRecordModel
	if err := query.Select("commission_records.*").Order("commission_records.created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return commissionsToDomain(rows), nil
}

// FindByPayoutID returns the commissions assigned to a payout
func (r *GormCommissionRepository) FindByPayoutID(ctx context.Context, payoutID uuid.UUID) ([]order.CommissionRecord, error) {
	var rows []models.CommissionRecordModel
	if err := r.db.WithContext(ctx).Where("payout_id = ?", payoutID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return commissionsToDomain(rows), nil
}

type pendingCommissionRow struct {
	BrokerID     uuid.UUID
	RecordCount  int64
	RevenueShare int64
	Markup       int64
	Total        int64
}

// PendingTotals sums payable commission per broker, largest first
func (r *GormCommissionRepository) PendingTotals(ctx context.Context) ([]order.PendingCommission, error) {
	var rows []pendingCommissionRow
	err := r.payable(ctx).
		Select(`commission_records.broker_id AS broker_id,
			COUNT(*) AS record_count,
			SUM(commission_records.revenue_share_amount) AS revenue_share,
			SUM(commission_records.markup_amount) AS markup,
			SUM(commission_records.total_commission) AS total`).
		Group("commission_records.broker_id").
		Order("total DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]order.PendingCommission, len(rows))
	for i, row := range rows {
		out[i] = order.PendingCommission{
			BrokerID:     row.BrokerID,
			RecordCount:  row.RecordCount,
			RevenueShare: valueobject.Cents(row.RevenueShare),
			Markup:       valueobject.Cents(row.Markup),
			Total:        valueobject.Cents(row.Total),
		}
	}
	return out, nil
}

// Update persists payout status changes
func (r *GormCommissionRepository) Update(ctx context.Context, c *order.CommissionRecord) error {
	c.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(models.CommissionRecordModelFromDomain(c)).Error
}

func commissionsToDomain(rows []models.CommissionRecordModel) []order.CommissionRecord {
	out := make([]order.CommissionRecord, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ order.CommissionRepository = (*GormCommissionRepository)(nil)
