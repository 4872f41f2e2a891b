package widget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appbroker "github.com/tradelinemarket/backend/internal/application/broker"
	appcatalog "github.com/tradelinemarket/backend/internal/application/catalog"
	apporder "github.com/tradelinemarket/backend/internal/application/order"
	"github.com/tradelinemarket/backend/internal/domain/analytics"
	"github.com/tradelinemarket/backend/internal/domain/broker"
	"github.com/tradelinemarket/backend/internal/domain/pricing"
	"github.com/tradelinemarket/backend/internal/domain/shared"
	"github.com/tradelinemarket/backend/internal/domain/shared/valueobject"
	"github.com/tradelinemarket/backend/internal/infrastructure/config"
	"github.com/tradelinemarket/backend/tests/testutil"
)

// =============================================================================
// Mocks
// =============================================================================

type MockPriceLister struct {
	mock.Mock
}

func (m *MockPriceLister) BrokerPricing(ctx context.Context, brokerID uuid.UUID, terms pricing.BrokerTerms, excludeBanks []string) ([]appcatalog.PricedTradeline, error) {
	args := m.Called(ctx, brokerID, terms, excludeBanks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appcatalog.PricedTradeline), args.Error(1)
}

type MockQuoter struct {
	mock.Mock
}

func (m *MockQuoter) Quote(ctx context.Context, items []appcatalog.QuoteItem, terms *pricing.BrokerTerms, promoCode string, excludeBanks []string) (pricing.Quote, error) {
	args := m.Called(ctx, items, terms, promoCode, excludeBanks)
	return args.Get(0).(pricing.Quote), args.Error(1)
}

type MockOrderPlacer struct {
	mock.Mock
}

func (m *MockOrderPlacer) Checkout(ctx context.Context, req apporder.CheckoutRequest) (*apporder.CheckoutResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporder.CheckoutResponse), args.Error(1)
}

// =============================================================================
// Fixture
// =============================================================================

type widgetFixture struct {
	prices    *MockPriceLister
	quoter    *MockQuoter
	orders    *MockOrderPlacer
	analytics *testutil.MockAnalyticsRepository
	service   *WidgetService
	now       time.Time
}

func setupWidgetService(t *testing.T) *widgetFixture {
	t.Helper()
	f := &widgetFixture{
		prices:    new(MockPriceLister),
		quoter:    new(MockQuoter),
		orders:    new(MockOrderPlacer),
		analytics: new(testutil.MockAnalyticsRepository),
		now:       time.Date(2026, 10, 17, 15, 4, 5, 0, time.UTC),
	}
	f.service = NewWidgetService(WidgetServiceDeps{
		Prices:    f.prices,
		Quoter:    f.quoter,
		Orders:    f.orders,
		Analytics: f.analytics,
		Config:    config.WidgetConfig{PrimaryColor: "#000000"},
		Logger:    zap.NewNop(),
	})
	f.service.now = func() time.Time { return f.now }
	return f
}

func widgetBroker(website string) appbroker.WidgetBroker {
	return appbroker.WidgetBroker{
		ID:          uuid.New(),
		Name:        "Jane Broker",
		CompanyName: "Credit Partners LLC",
		Website:     website,
		Status:      broker.StatusActive,
		Terms:       testutil.BrokerTerms(),
	}
}

// =============================================================================
// Tests
// =============================================================================

func TestWidgetService_Pricing(t *testing.T) {
	ctx := context.Background()
	f := setupWidgetService(t)
	wb := widgetBroker("https://brokerage.test")
	exclude := []string{"Citi"}

	priced := []appcatalog.PricedTradeline{{
		Tradeline: testutil.Tradelines()[0],
		Pricing:   pricing.Breakdown{BasePrice: 20000, CustomerPrice: valueobject.Cents(25000)},
	}}
	f.prices.On("BrokerPricing", ctx, wb.ID, wb.Terms, exclude).Return(priced, nil)

	resp, err := f.service.Pricing(ctx, wb, exclude)

	require.NoError(t, err)
	require.Len(t, resp.Pricing, 1)
	assert.Equal(t, "250", resp.Pricing[0].Price.String())
	assert.Equal(t, "Credit Partners LLC", resp.Broker.BusinessName)
	assert.Equal(t, "PERCENTAGE", resp.Settings.MarkupType)
	assert.Equal(t, "USD", resp.Settings.Currency)
	assert.Equal(t, f.now, resp.Timestamp)
}

func TestWidgetService_Calculate(t *testing.T) {
	ctx := context.Background()

	t.Run("uses broker terms", func(t *testing.T) {
		f := setupWidgetService(t)
		wb := widgetBroker("")
		items := []appcatalog.QuoteItem{{CardID: "101", Quantity: 2}}
		terms := wb.Terms
		q, err := pricing.BuildQuote([]pricing.LineInput{
			{CardID: "101", BankName: "Chase", BasePrice: 20000, Quantity: 2},
		}, &terms, "")
		require.NoError(t, err)
		f.quoter.On("Quote", ctx, items, &terms, "", []string(nil)).Return(q, nil)

		resp, err := f.service.Calculate(ctx, wb, items, "")

		require.NoError(t, err)
		assert.Equal(t, 2, resp.ItemCount)
		assert.Equal(t, q.TotalCharged.USD().String(), resp.Total.String())
	})

	t.Run("cart limits", func(t *testing.T) {
		f := setupWidgetService(t)
		wb := widgetBroker("")
		tooMany := make([]appcatalog.QuoteItem, DefaultMaxItemsPerOrder+1)
		for i := range tooMany {
			tooMany[i] = appcatalog.QuoteItem{CardID: "101", Quantity: 1}
		}

		tests := []struct {
			name  string
			items []appcatalog.QuoteItem
		}{
			{"empty cart", nil},
			{"too many items", tooMany},
			{"quantity above limit", []appcatalog.QuoteItem{{CardID: "101", Quantity: DefaultMaxQuantityPerItem + 1}}},
			{"zero quantity", []appcatalog.QuoteItem{{CardID: "101", Quantity: 0}}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.service.Calculate(ctx, wb, tt.items, "")
				assert.ErrorIs(t, err, shared.ErrInvalidInput)
			})
		}
		f.quoter.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestWidgetService_Track(t *testing.T) {
	ctx := context.Background()

	t.Run("increments counter for today", func(t *testing.T) {
		f := setupWidgetService(t)
		wb := widgetBroker("")
		day := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
		f.analytics.On("Increment", ctx, wb.ID, day, analytics.WidgetEventAddToCart).Return(nil)

		require.NoError(t, f.service.Track(ctx, wb, "add_to_cart"))
		f.analytics.AssertExpectations(t)
	})

	t.Run("unknown event", func(t *testing.T) {
		f := setupWidgetService(t)

		err := f.service.Track(ctx, widgetBroker(""), "purchase")

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_EVENT", domainErr.Code)
	})

	t.Run("counter failure swallowed", func(t *testing.T) {
		f := setupWidgetService(t)
		wb := widgetBroker("")
		f.analytics.On("Increment", ctx, wb.ID, mock.Anything, analytics.WidgetEventView).Return(errors.New("db down"))

		assert.NoError(t, f.service.Track(ctx, wb, "view"))
	})
}

func TestWidgetService_Config(t *testing.T) {
	f := setupWidgetService(t)

	t.Run("urls from website", func(t *testing.T) {
		cfg := f.service.Config(widgetBroker("https://brokerage.test/"))

		require.NotNil(t, cfg.Checkout.SuccessURL)
		assert.Equal(t, "https://brokerage.test/thank-you", *cfg.Checkout.SuccessURL)
		assert.Equal(t, "https://brokerage.test/cart", *cfg.Checkout.CancelURL)
		assert.Equal(t, 10, cfg.Features.MaxItemsPerOrder)
		assert.Equal(t, 3, cfg.Features.MaxQuantityPerItem)
		assert.Equal(t, "#000000", cfg.Theme.PrimaryColor)
		assert.Equal(t, appbroker.DefaultSuccessColor, cfg.Theme.SuccessColor)
	})

	t.Run("no website", func(t *testing.T) {
		cfg := f.service.Config(widgetBroker(""))

		assert.Nil(t, cfg.Checkout.SuccessURL)
		assert.Nil(t, cfg.Checkout.CancelURL)
	})
}

func TestWidgetService_Checkout(t *testing.T) {
	ctx := context.Background()
	f := setupWidgetService(t)
	wb := widgetBroker("https://brokerage.test")
	items := []appcatalog.QuoteItem{{CardID: "101", Quantity: 1}}
	customer := apporder.CheckoutCustomer{Name: "John Client", Email: "john@client.test", Signature: "John Client"}

	f.orders.On("Checkout", ctx, mock.MatchedBy(func(req apporder.CheckoutRequest) bool {
		return req.BrokerID != nil && *req.BrokerID == wb.ID &&
			req.Terms != nil && req.Terms.RevenueSharePercent.Equal(decimal.NewFromInt(15)) &&
			req.SuccessURL == "https://brokerage.test/thank-you" &&
			req.CancelURL == "https://brokerage.test/cart" &&
			req.PromoCode == "PKGDEAL"
	})).Return(&apporder.CheckoutResponse{OrderID: uuid.New(), OrderNumber: "TLM26101234"}, nil)

	resp, err := f.service.Checkout(ctx, wb, customer, items, "PKGDEAL")

	require.NoError(t, err)
	assert.Equal(t, "TLM26101234", resp.OrderNumber)
	f.orders.AssertExpectations(t)
}
