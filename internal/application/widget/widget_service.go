// Package widget serves the embeddable storefront widget on behalf of a
// broker authenticated by API key.
package widget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appbroker "github.com/tradelinemarket/backend/internal/application/broker"
	appcatalog "github.com/tradelinemarket/backend/internal/application/catalog"
	apporder "github.com/tradelinemarket/backend/internal/application/order"
	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/domain/pricing"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/infrastructure/config"
)

// Widget cart limits used when configuration leaves them unset
const (
	DefaultMaxItemsPerOrder   = 10
	DefaultMaxQuantityPerItem = 3
)

// PriceLister returns a broker's price list
type PriceLister interface {
	BrokerPricing(ctx context.Context, brokerID uuid.UUID, terms pricing.BrokerTerms, excludeBanks []string) ([]appcatalog.PricedTradeline, error)
}

// OrderPlacer creates orders from a widget cart
type OrderPlacer interface {
	Checkout(ctx context.Context, req apporder.CheckoutRequest) (*apporder.CheckoutResponse, error)
}

// WidgetServiceDeps wires WidgetService
type WidgetServiceDeps struct {
	Prices    PriceLister
	Quoter    apporder.Quoter
	Orders    OrderPlacer
	Analytics analytics.Repository
	Config    config.WidgetConfig
	Logger    *zap.Logger
}

// WidgetService handles public widget requests
type WidgetService struct {
	prices    PriceLister
	quoter    apporder.Quoter
	orders    OrderPlacer
	analytics analytics.Repository
	theme     appbroker.Theme
	maxItems  int
	maxQty    int
	logger    *zap.Logger
	now       func() time.Time
}

// NewWidgetService creates a new WidgetService
func NewWidgetService(deps WidgetServiceDeps) *WidgetService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxItems := deps.Config.MaxItemsPerOrder
	if maxItems <= 0 {
		maxItems = DefaultMaxItemsPerOrder
	}
	maxQty := deps.Config.MaxQuantityPerItem
	if maxQty <= 0 {
		maxQty = DefaultMaxQuantityPerItem
	}
	return &WidgetService{
		prices:    deps.Prices,
		quoter:    deps.Quoter,
		orders:    deps.Orders,
		analytics: deps.Analytics,
		theme:     appbroker.ThemeFromConfig(deps.Config),
		maxItems:  maxItems,
		maxQty:    maxQty,
		logger:    logger.Named("widget"),
		now:       time.Now,
	}
}

// Pricing returns the broker's catalog without banks the visitor already holds
func (s *WidgetService) Pricing(ctx context.Context, wb appbroker.WidgetBroker, excludeBanks []string) (*PricingResponse, error) {
	list, err := s.prices.BrokerPricing(ctx, wb.ID, wb.Terms, excludeBanks)
	if err != nil {
		return nil, err
	}
	return &PricingResponse{
		Broker:  brokerInfo(wb),
		Pricing: appcatalog.ToTradelineResponses(list),
		Settings: PricingSettings{
			MarkupType: string(wb.Terms.MarkupType),
			Currency:   appcatalog.Currency,
		},
		Timestamp: s.now().UTC(),
	}, nil
}

// Calculate prices a cart with the broker's terms
func (s *WidgetService) Calculate(ctx context.Context, wb appbroker.WidgetBroker, items []appcatalog.QuoteItem, promoCode string) (*appcatalog.QuoteResponse, error) {
	if err := s.checkCart(items); err != nil {
		return nil, err
	}
	terms := wb.Terms
	q, err := s.quoter.Quote(ctx, items, &terms, promoCode, nil)
	if err != nil {
		return nil, err
	}
	resp := appcatalog.ToQuoteResponse(q)
	return &resp, nil
}

// Track records a funnel event. Counter failures are logged, never returned.
func (s *WidgetService) Track(ctx context.Context, wb appbroker.WidgetBroker, event string) error {
	ev := analytics.WidgetEvent(strings.TrimSpace(event))
	if !ev.IsValid() {
		return shared.NewDomainError("INVALID_EVENT", "Event must be one of view, click, add_to_cart, checkout_started")
	}
	if err := s.analytics.Increment(ctx, wb.ID, analytics.Day(s.now()), ev); err != nil {
		s.logger.Warn("Failed to record widget event",
			zap.String("broker_id", wb.ID.String()),
			zap.String("event", string(ev)),
			zap.Error(err))
	}
	return nil
}

// Config returns the widget bootstrap settings
func (s *WidgetService) Config(wb appbroker.WidgetBroker) ConfigResponse {
	success, cancel := checkoutURLs(wb.Website)
	return ConfigResponse{
		Broker: brokerInfo(wb),
		Features: Features{
			ShowStock:            true,
			ShowPurchaseDeadline: true,
			ShowReportingPeriod:  true,
			EnableCart:           true,
			MaxItemsPerOrder:     s.maxItems,
			MaxQuantityPerItem:   s.maxQty,
		},
		Theme:    s.theme,
		Checkout: CheckoutURLs{SuccessURL: success, CancelURL: cancel},
	}
}

// Checkout places an unpaid order attributed to the broker
func (s *WidgetService) Checkout(ctx context.Context, wb appbroker.WidgetBroker, customer apporder.CheckoutCustomer, items []appcatalog.QuoteItem, promoCode string) (*apporder.CheckoutResponse, error) {
	if err := s.checkCart(items); err != nil {
		return nil, err
	}
	brokerID := wb.ID
	terms := wb.Terms
	req := apporder.CheckoutRequest{
		BrokerID:  &brokerID,
		Terms:     &terms,
		Customer:  customer,
		Items:     items,
		PromoCode: promoCode,
	}
	if success, cancel := checkoutURLs(wb.Website); success != nil {
		req.SuccessURL = *success
		req.CancelURL = *cancel
	}

	resp, err := s.orders.Checkout(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Widget checkout",
		zap.String("broker_id", wb.ID.String()),
		zap.String("order_number", resp.OrderNumber))
	return resp, nil
}

func (s *WidgetService) checkCart(items []appcatalog.QuoteItem) error {
	if len(items) == 0 {
		return shared.NewDomainError("INVALID_INPUT", "At least one item is required")
	}
	if len(items) > s.maxItems {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("At most %d items per order", s.maxItems))
	}
	for _, item := range items {
		if item.Quantity < 1 || item.Quantity > s.maxQty {
			return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Quantity for %s must be between 1 and %d", item.CardID, s.maxQty))
		}
	}
	return nil
}

func brokerInfo(wb appbroker.WidgetBroker) BrokerInfo {
	return BrokerInfo{Name: wb.Name, BusinessName: wb.CompanyName, Website: wb.Website}
}

func checkoutURLs(website string) (*string, *string) {
	website = strings.TrimRight(strings.TrimSpace(website), "/")
	if website == "" {
		return nil, nil
	}
	success := website + "/thank-you"
	cancel := website + "/cart"
	return &success, &cancel
}
