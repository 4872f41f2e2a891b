// Package order implements checkout, settlement, supplier fulfillment and
// order listings.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appcatalog "github.com/tradelinemarket/backend/internal/application/catalog"
	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/domain/broker"
	"github.com/tradelinemarket/backend/internal/domain/client"
	"github.com/tradelinemarket/backend/internal/domain/order"
	"github.com/tradelinemarket/backend/internal/domain/pricing"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/infrastructure/payment"
	"github.com/tradelinemarket/backend/internal/infrastructure/upstream"
)

const maxOrderNumberAttempts = 5

// Quoter prices a cart
type Quoter interface {
	Quote(ctx context.Context, items []appcatalog.QuoteItem, terms *pricing.BrokerTerms, promoCode string, excludeBanks []string) (pricing.Quote, error)
}

// SupplierGateway places and tracks orders with the supplier
type SupplierGateway interface {
	CreateOrder(ctx context.Context, req upstream.SupplierOrderRequest) (*upstream.SupplierOrder, error)
	GetOrder(ctx context.Context, supplierOrderID string) (*upstream.SupplierOrder, error)
}

// CheckoutGateway creates hosted card checkout sessions
type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, in payment.CheckoutInput) (*payment.CheckoutSession, error)
}

// OrderServiceDeps wires OrderService. Checkout and Supplier are optional.
type OrderServiceDeps struct {
	Scope     TransactionScope
	Orders    order.Repository
	Clients   client.Repository
	Brokers   broker.Repository
	Activity  analytics.ActivityRepository
	Quoter    Quoter
	Events    shared.EventPublisher
	Supplier  SupplierGateway
	Checkout  CheckoutGateway
	PortalURL string
	Logger    *zap.Logger
}

// OrderService handles order lifecycle operations
type OrderService struct {
	scope     TransactionScope
	orders    order.Repository
	clients   client.Repository
	brokers   broker.Repository
	activity  analytics.ActivityRepository
	quoter    Quoter
	events    shared.EventPublisher
	supplier  SupplierGateway
	checkout  CheckoutGateway
	portalURL string
	logger    *zap.Logger
	now       func() time.Time
}

// NewOrderService creates a new OrderService
func NewOrderService(deps OrderServiceDeps) *OrderService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		scope:     deps.Scope,
		orders:    deps.Orders,
		clients:   deps.Clients,
		brokers:   deps.Brokers,
		activity:  deps.Activity,
		quoter:    deps.Quoter,
		events:    deps.Events,
		supplier:  deps.Supplier,
		checkout:  deps.Checkout,
		portalURL: strings.TrimRight(deps.PortalURL, "/"),
		logger:    logger.Named("orders"),
		now:       time.Now,
	}
}

// GetByID returns an order with its broker name and client KYC summary
func (s *OrderService) GetByID(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	s.enrich(ctx, &resp, map[uuid.UUID]string{}, true)
	return &resp, nil
}

// List returns a page of orders for the admin console
func (s *OrderService) List(ctx context.Context, filter shared.Filter) ([]OrderResponse, int64, error) {
	return s.list(ctx, filter, true)
}

// ListForBroker returns a page of one broker's orders
func (s *OrderService) ListForBroker(ctx context.Context, brokerID uuid.UUID, filter shared.Filter) ([]OrderResponse, int64, error) {
	filter = withFilter(filter, "broker_id", brokerID.String())
	return s.list(ctx, filter, false)
}

func (s *OrderService) list(ctx context.Context, filter shared.Filter, withClient bool) ([]OrderResponse, int64, error) {
	orders, total, err := s.orders.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	names := map[uuid.UUID]string{}
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = ToOrderResponse(&orders[i])
		s.enrich(ctx, &out[i], names, withClient)
	}
	return out, total, nil
}

// ListForClient returns a client's own orders
func (s *OrderService) ListForClient(ctx context.Context, clientID uuid.UUID, filter shared.Filter) ([]PortalOrderResponse, int64, error) {
	filter = withFilter(filter, "client_id", clientID.String())
	orders, total, err := s.orders.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]PortalOrderResponse, len(orders))
	for i := range orders {
		out[i] = ToPortalOrderResponse(&orders[i])
	}
	return out, total, nil
}

// GetForClient returns one of a client's orders. Orders of other clients are
// reported as not found.
func (s *OrderService) GetForClient(ctx context.Context, clientID, orderID uuid.UUID) (*PortalOrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.ClientID == nil || *o.ClientID != clientID {
		return nil, shared.ErrNotFound
	}
	resp := ToPortalOrderResponse(o)
	return &resp, nil
}

// GetForBroker returns one of a broker's orders
func (s *OrderService) GetForBroker(ctx context.Context, brokerID, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BrokerID == nil || *o.BrokerID != brokerID {
		return nil, shared.ErrNotFound
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// Stats aggregates order totals, optionally for one broker
func (s *OrderService) Stats(ctx context.Context, brokerID *uuid.UUID) (StatsResponse, error) {
	st, err := s.orders.Stats(ctx, brokerID)
	if err != nil {
		return StatsResponse{}, err
	}
	return ToStatsResponse(st), nil
}

// MarkPaid settles an order. The repository write is conditional so two
// concurrent settlements of the same order yield exactly one winner; the
// loser gets ALREADY_PAID.
func (s *OrderService) MarkPaid(ctx context.Context, id uuid.UUID, req MarkPaidRequest, actor analytics.Actor) (*OrderResponse, error) {
	method := order.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.PaymentMethod)))
	if method == "" {
		method = order.PaymentMethodOther
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unknown payment method")
	}

	var paid *order.Order
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.Orders().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := o.MarkPaid(method, s.now()); err != nil {
			return err
		}
		if req.Note != "" {
			o.SetNote(req.Note)
		}
		if err := repos.Orders().MarkPaid(ctx, o); err != nil {
			return err
		}
		if o.IsBrokered() {
			if err := repos.Analytics().RecordOrder(ctx, *o.BrokerID, analytics.Day(*o.PaidAt), o.TotalCharged); err != nil {
				return fmt.Errorf("record order analytics: %w", err)
			}
		}
		entry := analytics.NewActivityLog(analytics.ActionOrderMarkedPaid, "order", &o.ID, actor, map[string]any{
			"order_number":   o.OrderNumber,
			"payment_method": method.String(),
			"total_charged":  o.TotalCharged.Int64(),
		})
		if err := repos.Activity().Create(ctx, entry); err != nil {
			return fmt.Errorf("record activity: %w", err)
		}
		paid = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order marked paid",
		zap.String("order_id", paid.ID.String()),
		zap.String("order_number", paid.OrderNumber),
		zap.String("payment_method", method.String()))
	s.publish(ctx, paid)

	resp := ToOrderResponse(paid)
	return &resp, nil
}

// MarkPaymentFailed records a declined card payment
func (s *OrderService) MarkPaymentFailed(ctx context.Context, id uuid.UUID) error {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := o.MarkPaymentFailed(); err != nil {
		return err
	}
	return s.orders.Update(ctx, o)
}

// FlagRefundDue notes a late card payment on a closed order for an operator to refund
func (s *OrderService) FlagRefundDue(ctx context.Context, id uuid.UUID, intentID string) error {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := o.FlagRefundDue(intentID); err != nil {
		return err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return err
	}
	s.audit(ctx, analytics.ActionOrderRefundDue, o, analytics.SystemActor, map[string]any{
		"order_number":             o.OrderNumber,
		"status":                   o.Status.String(),
		"stripe_payment_intent_id": intentID,
	})
	s.logger.Warn("Card payment received for closed order",
		zap.String("order_id", o.ID.String()),
		zap.String("status", o.Status.String()),
		zap.String("payment_intent", intentID))
	return nil
}

// Delete hard-deletes an order and its dependents
func (s *OrderService) Delete(ctx context.Context, id uuid.UUID, actor analytics.Actor) error {
	var deleted *order.Order
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.Orders().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := repos.Orders().Delete(ctx, id); err != nil {
			return err
		}
		entry := analytics.NewActivityLog(analytics.ActionOrderDeleted, "order", &o.ID, actor, map[string]any{
			"order_number":   o.OrderNumber,
			"payment_status": o.PaymentStatus.String(),
		})
		if err := repos.Activity().Create(ctx, entry); err != nil {
			return fmt.Errorf("record activity: %w", err)
		}
		deleted = o
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Order deleted", zap.String("order_id", id.String()))
	if s.events != nil {
		if err := s.events.Publish(ctx, order.NewDeletedEvent(deleted)); err != nil {
			s.logger.Warn("Failed to publish order event", zap.Error(err))
		}
	}
	return nil
}

// Fulfill submits a paid order to the supplier and moves it to PROCESSING
func (s *OrderService) Fulfill(ctx context.Context, id uuid.UUID, actor analytics.Actor) (*OrderResponse, error) {
	if s.supplier == nil {
		return nil, shared.NewDomainError("SUPPLIER_UNAVAILABLE", "Supplier integration is not configured")
	}
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.IsPaid() {
		return nil, shared.NewDomainError("NOT_PAID", "Order must be paid before fulfillment")
	}
	if o.Status != order.StatusProcessing || o.SupplierOrderID != "" {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot submit order in %s status", o.Status))
	}

	req := upstream.SupplierOrderRequest{
		PlatformOrderID: o.OrderNumber,
		CustomerName:    o.Customer.Name,
		CustomerEmail:   o.Customer.Email,
		CustomerPhone:   o.Customer.Phone,
		Items:           make([]upstream.SupplierLineItem, len(o.Items)),
	}
	for i, it := range o.Items {
		req.Items[i] = upstream.SupplierLineItem{CardID: it.CardID, Quantity: it.Quantity}
	}
	so, err := s.supplier.CreateOrder(ctx, req)
	if err != nil {
		s.logger.Error("Supplier order submission failed",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
		return nil, err
	}

	if err := o.AttachSupplierOrder(so.ID.String(), so.Status); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	s.audit(ctx, analytics.ActionOrderFulfilled, o, actor, map[string]any{
		"order_number":      o.OrderNumber,
		"supplier_order_id": o.SupplierOrderID,
	})
	s.logger.Info("Order submitted to supplier",
		zap.String("order_id", o.ID.String()),
		zap.String("supplier_order_id", o.SupplierOrderID))

	resp := ToOrderResponse(o)
	return &resp, nil
}

// SyncSupplierStatus refreshes the supplier status and completes the order
// once the supplier reports it fulfilled.
func (s *OrderService) SyncSupplierStatus(ctx context.Context, id uuid.UUID, actor analytics.Actor) (*OrderResponse, error) {
	if s.supplier == nil {
		return nil, shared.NewDomainError("SUPPLIER_UNAVAILABLE", "Supplier integration is not configured")
	}
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.SupplierOrderID == "" {
		return nil, shared.NewDomainError("NOT_SUBMITTED", "Order has not been submitted to the supplier")
	}
	so, err := s.supplier.GetOrder(ctx, o.SupplierOrderID)
	if err != nil {
		return nil, err
	}

	o.UpdateSupplierStatus(so.Status)
	completed := false
	if so.IsCompleted() && o.Status == order.StatusProcessing {
		if err := o.Complete(o.SupplierOrderID); err != nil {
			return nil, err
		}
		completed = true
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	if completed {
		s.audit(ctx, analytics.ActionOrderCompleted, o, actor, map[string]any{"order_number": o.OrderNumber})
		s.publish(ctx, o)
	}

	resp := ToOrderResponse(o)
	return &resp, nil
}

// Complete marks a processing order fulfilled without asking the supplier
func (s *OrderService) Complete(ctx context.Context, id uuid.UUID, actor analytics.Actor) (*OrderResponse, error) {
	return s.transition(ctx, id, actor, analytics.ActionOrderCompleted, func(o *order.Order) error {
		return o.Complete(o.SupplierOrderID)
	})
}

// Cancel cancels an order
func (s *OrderService) Cancel(ctx context.Context, id uuid.UUID, reason string, actor analytics.Actor) (*OrderResponse, error) {
	return s.transition(ctx, id, actor, analytics.ActionOrderCancelled, func(o *order.Order) error {
		return o.Cancel(reason)
	})
}

// Refund marks a paid order refunded
func (s *OrderService) Refund(ctx context.Context, id uuid.UUID, actor analytics.Actor) (*OrderResponse, error) {
	return s.transition(ctx, id, actor, analytics.ActionOrderRefunded, func(o *order.Order) error {
		return o.Refund()
	})
}

func (s *OrderService) transition(ctx context.Context, id uuid.UUID, actor analytics.Actor, action string, apply func(*order.Order) error) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(o); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	s.audit(ctx, action, o, actor, map[string]any{
		"order_number": o.OrderNumber,
		"status":       o.Status.String(),
	})
	s.publish(ctx, o)

	resp := ToOrderResponse(o)
	return &resp, nil
}

// enrich fills the broker name and, for admins, the client KYC summary.
// Lookups are best effort: a missing broker or client leaves the field empty.
func (s *OrderService) enrich(ctx context.Context, resp *OrderResponse, names map[uuid.UUID]string, withClient bool) {
	if resp.BrokerID != nil && s.brokers != nil {
		name, ok := names[*resp.BrokerID]
		if !ok {
			if b, err := s.brokers.FindByID(ctx, *resp.BrokerID); err == nil {
				name = b.Name
			}
			names[*resp.BrokerID] = name
		}
		resp.BrokerName = name
	}
	if withClient && resp.ClientID != nil && s.clients != nil {
		if c, err := s.clients.FindByID(ctx, *resp.ClientID); err == nil {
			resp.Client = ToClientSummary(c)
		}
	}
}

func (s *OrderService) publish(ctx context.Context, o *order.Order) {
	events := o.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	o.ClearDomainEvents()
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish order events",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
	}
}

func (s *OrderService) audit(ctx context.Context, action string, o *order.Order, actor analytics.Actor, metadata map[string]any) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Create(ctx, analytics.NewActivityLog(action, "order", &o.ID, actor, metadata)); err != nil {
		s.logger.Warn("Failed to record activity",
			zap.String("action", action),
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
	}
}

func (s *OrderService) nextOrderNumber(ctx context.Context, repo order.Repository) (string, error) {
	for i := 0; i < maxOrderNumberAttempts; i++ {
		number, err := order.GenerateOrderNumber(s.now())
		if err != nil {
			return "", err
		}
		taken, err := repo.ExistsByOrderNumber(ctx, number)
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
	}
	return "", errors.New("could not allocate a unique order number")
}

func withFilter(filter shared.Filter, key, value string) shared.Filter {
	filters := make(map[string]any, len(filter.Filters)+1)
	for k, v := range filter.Filters {
		filters[k] = v
	}
	filters[key] = value
	filter.Filters = filters
	return filter
}
